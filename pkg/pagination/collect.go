package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Page sizes used by the service's list endpoints.
const (
	// PageSizeFollow applies to follower/following relationship lists.
	PageSizeFollow = 50

	// PageSizeDefault applies to almost everything else.
	PageSizeDefault = 100
)

// ErrNilFetch is returned when Collect is called without a fetch function.
var ErrNilFetch = errors.New("pagination: nil fetch function")

// Prometheus metrics for pagination.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yay_pagination_pages_total",
		Help: "Total pages fetched by list",
	}, []string{"list"})

	recordsFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yay_pagination_records_total",
		Help: "Total records fetched by list",
	}, []string{"list"})

	collectDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yay_pagination_collect_duration_seconds",
		Help:    "Duration of a full collect call by list",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"list"})
)

// Cursor is an opaque continuation token. Only presence is ever inspected.
type Cursor string

// Present reports whether the cursor points at a further page.
func (c Cursor) Present() bool { return c != "" }

// Page is one fetch result.
type Page[T any] struct {
	Items []T
	Next  Cursor
}

// FetchFunc fetches one page. cursor is empty for the first page; number is
// how many records to ask for.
type FetchFunc[T any] func(ctx context.Context, cursor Cursor, number int) (Page[T], error)

// TotalFunc reports how many records the remote resource holds. It is only
// consulted for unbounded requests.
type TotalFunc func(ctx context.Context) (int, error)

// Progress is reported after every page.
type Progress struct {
	List    string
	Pages   int
	Fetched int

	// Target is the expected final count, or zero when unknown.
	Target int
}

// ProgressFunc observes pagination progress. It must not block for long:
// pages are fetched sequentially on the caller's goroutine.
type ProgressFunc func(Progress)

// Options configure a single Collect call.
type Options struct {
	// List names the list for logs and metrics (e.g. "followers").
	List string

	// PageSize is the endpoint's maximum page size (default PageSizeDefault).
	PageSize int

	// Default replaces an unset requested amount. When Default is itself
	// unset, one page of PageSize records is fetched.
	Default Amount

	// Total, if set, bounds unbounded requests.
	Total TotalFunc

	// Progress, if set, is called after each page.
	Progress ProgressFunc

	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

func (o Options) resolve(requested Amount) Amount {
	if !requested.IsUnset() {
		return requested
	}
	if !o.Default.IsUnset() {
		return o.Default
	}
	return Exactly(o.PageSize)
}

// Collect fetches pages sequentially, following cursors, until requested
// records are gathered, the service stops returning a cursor, or a page
// comes back empty. An empty page ends the walk even when it carries a
// cursor.
//
// The result preserves service order and may be shorter than requested.
// Any fetch error aborts the walk and no partial result is returned.
func Collect[T any](ctx context.Context, fetch FetchFunc[T], opts Options, requested Amount) ([]T, error) {
	if fetch == nil {
		return nil, ErrNilFetch
	}
	if opts.PageSize <= 0 {
		opts.PageSize = PageSizeDefault
	}
	if opts.List == "" {
		opts.List = "unnamed"
	}

	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	logger = logger.With().Str("list", opts.List).Logger()

	start := time.Now()
	defer func() {
		collectDuration.WithLabelValues(opts.List).Observe(time.Since(start).Seconds())
	}()

	requested = opts.resolve(requested)
	remaining := newBudget(requested)
	target, _ := requested.Count()

	if requested.IsUnbounded() && opts.Total != nil {
		total, err := opts.Total(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch %s total: %w", opts.List, err)
		}
		remaining = budget{n: total}
		target = total
	}

	logger.Debug().
		Str("requested", requested.String()).
		Int("page_size", opts.PageSize).
		Int("target", target).
		Msg("Starting pagination")

	var (
		items []T
		pages int
	)

	record := func(page Page[T]) {
		pages++
		items = append(items, page.Items...)
		remaining.consume(opts.PageSize)

		pagesFetchedTotal.WithLabelValues(opts.List).Inc()
		recordsFetchedTotal.WithLabelValues(opts.List).Add(float64(len(page.Items)))

		logger.Debug().
			Int("page", pages).
			Int("records", len(page.Items)).
			Int("fetched", len(items)).
			Int("target", target).
			Bool("has_next", page.Next.Present()).
			Msg("Page fetched")

		if opts.Progress != nil {
			opts.Progress(Progress{
				List:    opts.List,
				Pages:   pages,
				Fetched: len(items),
				Target:  target,
			})
		}
	}

	page, err := fetch(ctx, "", remaining.number(opts.PageSize))
	if err != nil {
		return nil, fmt.Errorf("fetch %s page 1: %w", opts.List, err)
	}
	record(page)

	cursor := page.Next
	if len(page.Items) == 0 {
		cursor = ""
	}

	for cursor.Present() && remaining.wantsMore() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err = fetch(ctx, cursor, remaining.number(opts.PageSize))
		if err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", opts.List, pages+1, err)
		}
		if len(page.Items) == 0 {
			break
		}
		record(page)
		cursor = page.Next
	}

	if n, ok := requested.Count(); ok && len(items) > n {
		items = items[:n]
	}

	logger.Info().
		Int("pages", pages).
		Int("records", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")

	return items, nil
}
