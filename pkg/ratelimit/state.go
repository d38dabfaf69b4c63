// Package ratelimit shares a request cooldown across client instances.
// Once the service answers with a rate-limit failure, every client sharing
// the same Redis fails fast locally until the cooldown expires, instead of
// piling more throttled requests onto the service.
package ratelimit

import (
	"time"
)

// Redis keys for cooldown state storage.
const (
	RedisKeyCooldownUntil = "yay:rate_limit:cooldown_until"
	RedisKeyCooldownKind  = "yay:rate_limit:cooldown_kind"
)

const (
	// DefaultCooldown applies when the service gives no Retry-After hint.
	DefaultCooldown = 60 * time.Second

	// MaxCooldown caps server-provided Retry-After values.
	MaxCooldown = 15 * time.Minute
)

// CooldownState is the current shared cooldown.
type CooldownState struct {
	// Kind is the failure kind that started the cooldown (e.g. "rate_limit").
	Kind string `json:"kind"`

	// Until is when requests may be sent again.
	Until time.Time `json:"until"`
}

// Active reports whether requests should still be held back.
func (s *CooldownState) Active() bool {
	return s != nil && time.Now().Before(s.Until)
}

// Remaining returns the time left in the cooldown, or 0 once it has passed.
func (s *CooldownState) Remaining() time.Duration {
	if s == nil {
		return 0
	}
	d := time.Until(s.Until)
	if d < 0 {
		return 0
	}
	return d
}
