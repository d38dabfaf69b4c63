// Package metrics exposes the Prometheus metrics of the Yay! client.
// All metrics are defined in their respective packages (client, pagination,
// ratelimit, session) and registered via promauto on the default registry.
//
// This package serves them and documents what is available.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the Prometheus registerer used by the client packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving all registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - yay_requests_total{method, status} (Counter): Requests by HTTP method and status
//     ("network_error" for transport failures, "cooldown" for requests held back)
//   - yay_request_duration_seconds{method} (Histogram): Request duration by method
//   - yay_errors_total{kind} (Counter): Classified failures by kind
//
// Retry Metrics (pkg/client):
//   - yay_retries_total{kind} (Counter): Retry attempts by error kind
//   - yay_retry_backoff_seconds{kind} (Histogram): Backoff duration by error kind
//   - yay_retry_exhausted_total{kind} (Counter): Requests that exhausted their retries
//
// Pagination Metrics (pkg/pagination):
//   - yay_pagination_pages_total{list} (Counter): Pages fetched per list endpoint
//   - yay_pagination_records_total{list} (Counter): Records fetched per list endpoint
//   - yay_pagination_collect_duration_seconds{list} (Histogram): Duration of a full list walk
//
// Cooldown Metrics (pkg/ratelimit):
//   - yay_rate_limit_cooldowns_total{kind} (Counter): Shared cooldowns started
//   - yay_rate_limit_blocks_total (Counter): Requests held back by an active cooldown
//   - yay_rate_limit_cooldown_seconds (Histogram): Length of started cooldowns
//
// Session Metrics (pkg/session):
//   - yay_session_persist_operations_total{operation} (Counter): Saved-session reads and writes
//   - yay_session_persist_errors_total{operation} (Counter): Failed saved-session operations
//
// Example Prometheus Queries:
//
//   # Authentication failures
//   rate(yay_errors_total{kind="authentication"}[5m])
//
//   # Records per page for the followers walk
//   rate(yay_pagination_records_total{list="followers"}[5m]) /
//   rate(yay_pagination_pages_total{list="followers"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(yay_request_duration_seconds_bucket[5m]))
