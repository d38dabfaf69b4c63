// Package session holds the bearer credentials of one client instance.
//
// A Store is a dumb holder: it never validates what it is given and never
// talks to the network. All policy (when to populate, when to clear) lives in
// the client's Authenticator.
package session

import (
	"net/http"
	"sync"
)

// Session is the credential set returned by a successful login.
// Either every field is unset (logged out) or AccessToken is set (logged in).
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresIn is the access token lifetime in seconds, as reported at login.
	ExpiresIn int `json:"expires_in,omitempty"`

	APIKey string `json:"api_key,omitempty"`

	// Identity is the id of the logged-in user. Zero when the session was
	// bootstrapped from a bare access token.
	Identity int64 `json:"identity,omitempty"`
}

// IsZero reports whether no credential is set.
func (s Session) IsZero() bool {
	return s == Session{}
}

// Authenticated reports whether the session carries an access token.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// Store holds the current Session. The zero value is an empty, logged-out store.
//
// Whole sessions are swapped under a lock, so readers never observe a
// half-written login and a Headers snapshot is atomic with respect to a
// concurrent Clear.
type Store struct {
	mu      sync.RWMutex
	current Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the current session.
func (s *Store) Set(sess Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}

// Clear drops every credential.
func (s *Store) Clear() {
	s.mu.Lock()
	s.current = Session{}
	s.mu.Unlock()
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Authenticated reports whether an access token is currently held.
func (s *Store) Authenticated() bool {
	return s.Snapshot().Authenticated()
}

// Headers returns a freshly built header set for request signing.
// It contains "Authorization: Bearer <token>" when authenticated and is
// empty otherwise. Callers may mutate the result freely.
func (s *Store) Headers() http.Header {
	sess := s.Snapshot()
	h := http.Header{}
	if sess.AccessToken != "" {
		h.Set("Authorization", "Bearer "+sess.AccessToken)
	}
	return h
}
