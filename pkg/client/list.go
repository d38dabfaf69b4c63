package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/yay-client/pkg/pagination"
)

// listFetcher builds the fetch function for a cursor-paginated GET
// endpoint. The first page is requested without cursorParam; later pages
// send the cursor returned by decode.
func listFetcher[R, T any](c *Client, path string, base url.Values, cursorParam string, decode func(R) pagination.Page[T]) pagination.FetchFunc[T] {
	return func(ctx context.Context, cursor pagination.Cursor, number int) (pagination.Page[T], error) {
		params := make(url.Values, len(base)+2)
		for k, vs := range base {
			params[k] = append([]string(nil), vs...)
		}
		params.Set("number", strconv.Itoa(number))
		if cursor.Present() {
			params.Set(cursorParam, string(cursor))
		}

		var resp R
		if err := c.Do(ctx, http.MethodGet, path, params, &resp); err != nil {
			return pagination.Page[T]{}, err
		}
		return decode(resp), nil
	}
}

// listOptions returns the pagination options for one endpoint. A nil total
// means the endpoint has no total hint.
func (c *Client) listOptions(list string, pageSize int, def pagination.Amount, total pagination.TotalFunc) pagination.Options {
	return pagination.Options{
		List:     list,
		PageSize: pageSize,
		Default:  def,
		Total:    total,
		Progress: c.config.Progress,
		Logger:   &c.logger,
	}
}

// collect runs pagination.Collect. Failures that did not come from a
// request, such as a context cancelled between pages, are reported as
// KindUnknown with the cause kept.
func collect[T any](ctx context.Context, fetch pagination.FetchFunc[T], opts pagination.Options, amount pagination.Amount) ([]T, error) {
	items, err := pagination.Collect(ctx, fetch, opts, amount)
	if err != nil {
		if KindOf(err) == "" {
			return nil, transportError("paginate "+opts.List, err)
		}
		return nil, err
	}
	return items, nil
}

func idCursor(id int64) pagination.Cursor {
	if id == 0 {
		return ""
	}
	return pagination.Cursor(strconv.FormatInt(id, 10))
}

func lastID[T any](items []T, id func(T) int64) pagination.Cursor {
	if len(items) == 0 {
		return ""
	}
	return idCursor(id(items[len(items)-1]))
}

func onePage(pageSize int) pagination.Amount {
	return pagination.Exactly(pageSize)
}

// idPath joins prefix, the decimal id and any further path segments.
func idPath(prefix string, id int64, segments ...string) string {
	return strings.Join(append([]string{prefix, strconv.FormatInt(id, 10)}, segments...), "/")
}

func idParam(key string, id int64) url.Values {
	return url.Values{key: []string{strconv.FormatInt(id, 10)}}
}
