package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound indicates no saved session exists for the account.
	ErrNotFound = errors.New("saved session not found")

	// ErrInvalidRecord indicates the saved session is corrupted.
	ErrInvalidRecord = errors.New("invalid saved session")
)

// DefaultPersistTTL is used when a session does not report its own lifetime.
const DefaultPersistTTL = 24 * time.Hour

// Persister saves sessions so another process can resume them without a new login.
type Persister interface {
	Save(ctx context.Context, account string, sess Session) error
	Load(ctx context.Context, account string) (Session, error)
	Delete(ctx context.Context, account string) error
}

// record is the stored form of a session.
type record struct {
	Session Session   `json:"session"`
	SavedAt time.Time `json:"saved_at"`
}

// RedisPersister stores sessions in Redis with a TTL matching the token lifetime.
type RedisPersister struct {
	redis  *redis.Client
	prefix string
}

// NewRedisPersister creates a persister with the given key prefix
// (default "yay:session").
func NewRedisPersister(redisClient *redis.Client, prefix string) *RedisPersister {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = "yay:session"
	}
	return &RedisPersister{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Key returns the redis key for an account. Accounts are case-insensitive.
//
// Example:
//
//	yay:session:alice@example.com
func (p *RedisPersister) Key(account string) string {
	return p.prefix + ":" + strings.ToLower(strings.TrimSpace(account))
}

// Save stores sess for account. Sessions without an access token are not stored.
func (p *RedisPersister) Save(ctx context.Context, account string, sess Session) error {
	if !sess.Authenticated() {
		return fmt.Errorf("refusing to persist unauthenticated session")
	}

	ttl := DefaultPersistTTL
	if sess.ExpiresIn > 0 {
		ttl = time.Duration(sess.ExpiresIn) * time.Second
	}

	data, err := json.Marshal(record{Session: sess, SavedAt: time.Now()})
	if err != nil {
		PersistErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := p.redis.Set(ctx, p.Key(account), data, ttl).Err(); err != nil {
		PersistErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	PersistOperations.WithLabelValues("save").Inc()
	return nil
}

// Load returns the saved session for account, or ErrNotFound.
func (p *RedisPersister) Load(ctx context.Context, account string) (Session, error) {
	data, err := p.redis.Get(ctx, p.Key(account)).Bytes()
	if err != nil {
		if err == redis.Nil {
			PersistOperations.WithLabelValues("miss").Inc()
			return Session{}, ErrNotFound
		}
		PersistErrors.WithLabelValues("load").Inc()
		return Session{}, fmt.Errorf("redis get: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		PersistErrors.WithLabelValues("load").Inc()
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if !rec.Session.Authenticated() {
		return Session{}, fmt.Errorf("%w: missing access token", ErrInvalidRecord)
	}

	PersistOperations.WithLabelValues("load").Inc()
	return rec.Session, nil
}

// Delete removes the saved session for account.
func (p *RedisPersister) Delete(ctx context.Context, account string) error {
	if err := p.redis.Del(ctx, p.Key(account)).Err(); err != nil {
		PersistErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	PersistOperations.WithLabelValues("delete").Inc()
	return nil
}
