package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/Sternrassler/yay-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// ErrRetryExhausted is returned when all retry attempts are exhausted.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// Prometheus metrics for retry operations.
var (
	yayRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yay_retries_total",
		Help: "Total number of retry attempts by error kind",
	}, []string{"kind"})

	yayRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yay_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error kind",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"kind"})

	yayRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yay_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error kind",
	}, []string{"kind"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64

	// NonIdempotent limits retries to rate-limit rejections. A transport
	// failure or 5xx may arrive after the server already acted, and
	// repeating a POST could then create a duplicate.
	NonIdempotent bool
}

// DefaultRetryConfig returns a configuration that never retries.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       1,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// shouldRetry reports whether a failed call may be repeated. Only rate
// limiting, transport failures and 5xx responses are transient; repeating
// anything else cannot change the outcome.
func shouldRetry(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch {
	case e.Kind == KindRateLimit:
		return true
	case e.Kind == KindUnknown && e.StatusCode == 0 && e.Err != nil:
		return !errors.Is(e.Err, context.Canceled)
	case e.Kind == KindUnknown && e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// idempotent reports whether repeating a request with method cannot change
// the outcome on the server.
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// retryWithBackoff executes fn with exponential backoff and ±20% jitter.
// A Retry-After hint on a rate-limit response stretches the wait.
func retryWithBackoff(ctx context.Context, config RetryConfig, logger zerolog.Logger, fn func() error) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err

		retryable := shouldRetry(err)
		if config.NonIdempotent && KindOf(err) != KindRateLimit {
			retryable = false
		}
		if !retryable || config.MaxAttempts == 1 {
			return lastErr
		}

		kind := string(KindOf(err))

		if attempt >= config.MaxAttempts {
			break
		}

		yayRetriesTotal.WithLabelValues(kind).Inc()

		wait := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		var e *Error
		if errors.As(err, &e) && e.Header != nil {
			if hint := ratelimit.RetryAfter(e.Header); hint > wait {
				wait = hint
			}
		}
		if wait > config.MaxBackoff {
			wait = config.MaxBackoff
		}
		yayRetryBackoffSeconds.WithLabelValues(kind).Observe(wait.Seconds())

		logger.Warn().
			Str("error_kind", kind).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry interrupted: %w: %w", lastErr, ctx.Err())
		case <-time.After(wait):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	kind := string(KindOf(lastErr))
	yayRetryExhaustedTotal.WithLabelValues(kind).Inc()
	logger.Warn().
		Str("error_kind", kind).
		Int("max_attempts", config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
}
