package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for cooldown tracking.
var (
	cooldownsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yay_rate_limit_cooldowns_total",
		Help: "Total number of cooldowns started by failure kind",
	}, []string{"kind"})

	cooldownBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yay_rate_limit_blocks_total",
		Help: "Total number of requests held back by an active cooldown",
	})

	cooldownSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "yay_rate_limit_cooldown_seconds",
		Help:    "Length of started cooldowns in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 900},
	})
)

// Tracker stores the shared cooldown in Redis.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new cooldown tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState returns the current cooldown, or nil when none is active.
func (t *Tracker) GetState(ctx context.Context) (*CooldownState, error) {
	until, err := t.redis.Get(ctx, RedisKeyCooldownUntil).Int64()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cooldown until: %w", err)
	}

	kind, err := t.redis.Get(ctx, RedisKeyCooldownKind).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get cooldown kind: %w", err)
	}

	state := &CooldownState{
		Kind:  kind,
		Until: time.UnixMilli(until),
	}
	if !state.Active() {
		return nil, nil
	}
	return state, nil
}

// StartCooldown records a cooldown for kind. The length comes from the
// response's Retry-After header when present, DefaultCooldown otherwise.
// An already running longer cooldown is kept.
func (t *Tracker) StartCooldown(ctx context.Context, kind string, headers http.Header) (*CooldownState, error) {
	d := RetryAfter(headers)
	if d <= 0 {
		d = DefaultCooldown
	}

	current, err := t.GetState(ctx)
	if err != nil {
		return nil, err
	}

	state := &CooldownState{Kind: kind, Until: time.Now().Add(d)}
	if current != nil && current.Until.After(state.Until) {
		return current, nil
	}

	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyCooldownUntil, state.Until.UnixMilli(), d)
	pipe.Set(ctx, RedisKeyCooldownKind, kind, d)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store cooldown in redis: %w", err)
	}

	cooldownsStartedTotal.WithLabelValues(kind).Inc()
	cooldownSeconds.Observe(d.Seconds())

	t.logger.Warn().
		Str("kind", kind).
		Dur("cooldown", d).
		Time("until", state.Until).
		Msg("Rate limited - starting shared cooldown")

	return state, nil
}

// ShouldAllowRequest reports whether a request may be sent now. When it may
// not, the active cooldown is returned.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, *CooldownState, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("get cooldown state: %w", err)
	}
	if state == nil {
		return true, nil, nil
	}

	t.logger.Debug().
		Str("kind", state.Kind).
		Dur("remaining", state.Remaining()).
		Msg("Cooldown active - holding request back")

	cooldownBlocksTotal.Inc()
	return false, state, nil
}

// Clear ends any active cooldown.
func (t *Tracker) Clear(ctx context.Context) error {
	if err := t.redis.Del(ctx, RedisKeyCooldownUntil, RedisKeyCooldownKind).Err(); err != nil {
		return fmt.Errorf("clear cooldown: %w", err)
	}
	return nil
}

// RetryAfter parses a Retry-After header given either in seconds or as an
// HTTP date. It returns 0 when the header is absent or unparseable and
// caps the result at MaxCooldown.
func RetryAfter(headers http.Header) time.Duration {
	v := strings.TrimSpace(headers.Get("Retry-After"))
	if v == "" {
		return 0
	}

	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		d = time.Until(at)
	}

	if d < 0 {
		return 0
	}
	if d > MaxCooldown {
		return MaxCooldown
	}
	return d
}
