package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/Sternrassler/yay-client/pkg/session"
)

// Auth endpoints.
const (
	pathLogin   = "/v3/users/login_with_email"
	pathLogout  = "/v1/users/logout"
	pathRefresh = "/api/v1/oauth/token"
)

var (
	// ErrNoRefreshToken is returned by Refresh when the session has no refresh token,
	// e.g. because it was bootstrapped from a bare access token.
	ErrNoRefreshToken = errors.New("session has no refresh token")

	// ErrNoPersister is returned by Resume when the client has no Redis configured.
	ErrNoPersister = errors.New("session persistence not configured")
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	UserID       int64  `json:"user_id"`
}

// Authenticator performs login, logout and token refresh, and is the only
// writer of the client's session store. Operations are serialized so a
// login never interleaves with a logout.
type Authenticator struct {
	client    *Client
	store     *session.Store
	persister session.Persister

	mu      sync.Mutex
	account string
}

func newAuthenticator(c *Client, persister session.Persister) *Authenticator {
	return &Authenticator{
		client:    c,
		store:     c.session,
		persister: persister,
	}
}

// Login authenticates with email and password. On success all session
// fields are stored at once; on failure the store is left untouched and an
// *Error is returned, KindAuthentication for rejected credentials.
func (a *Authenticator) Login(ctx context.Context, email, password string) (session.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cfg := a.client.config
	params := url.Values{}
	params.Set("email", email)
	params.Set("password", password)
	params.Set("uuid", cfg.DeviceUUID)
	if cfg.APIKey != "" {
		params.Set("api_key", cfg.APIKey)
	}

	var resp tokenResponse
	if err := a.client.execute(ctx, http.MethodPost, pathLogin, params, http.Header{}, &resp); err != nil {
		a.client.logger.Warn().Err(err).Msg("Login failed")
		return session.Session{}, asLoginError(err)
	}
	if resp.AccessToken == "" {
		return session.Session{}, &Error{
			Kind:       KindAuthentication,
			StatusCode: http.StatusOK,
			Message:    "login response carries no access token",
		}
	}

	sess := session.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		APIKey:       cfg.APIKey,
		Identity:     resp.UserID,
	}
	a.store.Set(sess)
	a.account = email

	a.client.logger.Info().
		Int64("user_id", sess.Identity).
		Int("expires_in", sess.ExpiresIn).
		Msg("Logged in")

	a.persist(ctx, sess)
	return sess, nil
}

// asLoginError turns a rejected login into KindAuthentication. Specific
// kinds (throttling, quota, signing, forbidden) and transport failures keep
// their own kind.
func asLoginError(err error) error {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindUnknown && e.StatusCode >= 400 && e.StatusCode < 500 {
		converted := *e
		converted.Kind = KindAuthentication
		return &converted
	}
	return err
}

// Logout ends the remote session if one exists, then always clears the
// local session, even when the remote call fails. The remote failure, if
// any, is returned after clearing.
func (a *Authenticator) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var remoteErr error
	if a.store.Authenticated() {
		params := url.Values{}
		params.Set("uuid", a.client.config.DeviceUUID)
		remoteErr = a.client.Do(ctx, http.MethodPost, pathLogout, params, nil)
	}

	a.store.Clear()

	if a.persister != nil && a.account != "" {
		if err := a.persister.Delete(ctx, a.account); err != nil {
			a.client.logger.Warn().Err(err).Msg("Failed to delete saved session")
		}
	}
	a.account = ""

	if remoteErr != nil {
		a.client.logger.Warn().Err(remoteErr).Msg("Remote logout failed, local session cleared")
		return fmt.Errorf("remote logout: %w", remoteErr)
	}

	a.client.logger.Info().Msg("Logged out")
	return nil
}

// Refresh exchanges the refresh token for a new access token and replaces
// the whole session. The identity and API key carry over.
func (a *Authenticator) Refresh(ctx context.Context) (session.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.store.Snapshot()
	if current.RefreshToken == "" {
		return session.Session{}, ErrNoRefreshToken
	}

	params := url.Values{}
	params.Set("grant_type", "refresh_token")
	params.Set("refresh_token", current.RefreshToken)

	var resp tokenResponse
	if err := a.client.execute(ctx, http.MethodPost, pathRefresh, params, http.Header{}, &resp); err != nil {
		return session.Session{}, err
	}
	if resp.AccessToken == "" {
		return session.Session{}, &Error{
			Kind:       KindAuthentication,
			StatusCode: http.StatusOK,
			Message:    "refresh response carries no access token",
		}
	}

	sess := current
	sess.AccessToken = resp.AccessToken
	sess.ExpiresIn = resp.ExpiresIn
	if resp.RefreshToken != "" {
		sess.RefreshToken = resp.RefreshToken
	}
	a.store.Set(sess)

	a.client.logger.Info().
		Int64("user_id", sess.Identity).
		Int("expires_in", sess.ExpiresIn).
		Msg("Access token refreshed")

	a.persist(ctx, sess)
	return sess, nil
}

// Resume restores a session saved by an earlier Login for email, without
// contacting the service.
func (a *Authenticator) Resume(ctx context.Context, email string) (session.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.persister == nil {
		return session.Session{}, ErrNoPersister
	}

	sess, err := a.persister.Load(ctx, email)
	if err != nil {
		return session.Session{}, fmt.Errorf("resume session: %w", err)
	}
	a.store.Set(sess)
	a.account = email

	a.client.logger.Info().
		Int64("user_id", sess.Identity).
		Msg("Session resumed")

	return sess, nil
}

func (a *Authenticator) persist(ctx context.Context, sess session.Session) {
	if a.persister == nil || a.account == "" {
		return
	}
	if err := a.persister.Save(ctx, strings.TrimSpace(a.account), sess); err != nil {
		a.client.logger.Warn().Err(err).Msg("Failed to save session")
	}
}
