// Package client provides the Yay! API client: session handling, a single
// request choke point with error classification, and typed endpoint wrappers
// built on the pagination engine.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/yay-client/pkg/pagination"
	"github.com/Sternrassler/yay-client/pkg/ratelimit"
	"github.com/Sternrassler/yay-client/pkg/session"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for client operations.
var (
	yayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yay_requests_total",
		Help: "Total Yay requests by method and status",
	}, []string{"method", "status"})

	yayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yay_request_duration_seconds",
		Help:    "Yay request duration in seconds by method",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	yayErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yay_errors_total",
		Help: "Total Yay errors by kind",
	}, []string{"kind"})
)

const (
	// DefaultBaseURL is the main API host.
	DefaultBaseURL = "https://api.yay.space"

	// DefaultCASBaseURL hosts the activity (notification) API.
	DefaultCASBaseURL = "https://cas.yay.space"

	maxErrorBody = 64 << 10
)

// Client is the Yay! API client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	casBaseURL string
	config     Config
	logger     zerolog.Logger

	session  *session.Store
	auth     *Authenticator
	limiter  *rate.Limiter
	cooldown *ratelimit.Tracker
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root (default DefaultBaseURL).
	BaseURL string

	// CASBaseURL is the activity API root (default DefaultCASBaseURL).
	CASBaseURL string

	// APIKey is sent on login when set and stored in the session.
	APIKey string

	// AccessToken bootstraps an authenticated session without logging in.
	// Only the access token is known in that case.
	AccessToken string

	// UserAgent header sent with every request.
	UserAgent string

	// DeviceUUID identifies this client to the service (default: random).
	DeviceUUID string

	// Timeout bounds every single HTTP call.
	Timeout time.Duration

	// ProxyURL routes requests through an HTTP proxy when set.
	ProxyURL string

	// RateLimit paces outgoing requests (requests per second, 0 = unlimited).
	RateLimit float64

	// Retry. MaxRetries = 0 surfaces every failure immediately.
	MaxRetries     int
	InitialBackoff time.Duration

	// Redis, when set, enables session persistence and the shared
	// rate-limit cooldown.
	Redis *redis.Client

	// Progress observes every paginated list call.
	Progress pagination.ProgressFunc

	// Logger defaults to the global zerolog logger with component=yay-client.
	Logger *zerolog.Logger
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		CASBaseURL:     DefaultCASBaseURL,
		UserAgent:      "yay-client/0.1.0",
		Timeout:        10 * time.Second,
		RateLimit:      5,
		MaxRetries:     0,
		InitialBackoff: 1 * time.Second,
	}
}

// New creates a new client. If cfg.AccessToken is set the client starts
// authenticated; otherwise call Login.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CASBaseURL == "" {
		cfg.CASBaseURL = DefaultCASBaseURL
	}
	for _, raw := range []string{cfg.BaseURL, cfg.CASBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid base url %q", raw)
		}
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %g)", cfg.RateLimit)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 1 * time.Second
	}
	if cfg.DeviceUUID == "" {
		cfg.DeviceUUID = uuid.NewString()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	logger := log.With().Str("component", "yay-client").Logger()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "yay-client").Logger()
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		casBaseURL: strings.TrimRight(cfg.CASBaseURL, "/"),
		config:     cfg,
		logger:     logger,
		session:    session.NewStore(),
	}

	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	var persister session.Persister
	if cfg.Redis != nil {
		c.cooldown = ratelimit.NewTracker(cfg.Redis, logger)
		persister = session.NewRedisPersister(cfg.Redis, "")
	}
	c.auth = newAuthenticator(c, persister)

	if cfg.AccessToken != "" {
		c.session.Set(session.Session{AccessToken: cfg.AccessToken})
	}

	logger.Info().
		Str("base_url", c.baseURL).
		Bool("authenticated", c.session.Authenticated()).
		Msg("Client started")

	return c, nil
}

// Do sends one request with the current session headers and decodes a
// successful JSON body into out (which may be nil). Failures are returned
// as *Error; nothing is consumed without classification.
//
// params are sent as URL query pairs for every method, which is what the
// service expects.
func (c *Client) Do(ctx context.Context, method, path string, params url.Values, out any) error {
	return c.execute(ctx, method, path, params, c.session.Headers(), out)
}

// execute is the single choke point behind Do and the Authenticator.
func (c *Client) execute(ctx context.Context, method, path string, params url.Values, headers http.Header, out any) error {
	endpoint := c.resolve(path)

	if c.cooldown != nil {
		allowed, state, err := c.cooldown.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Cooldown check failed")
		} else if !allowed {
			yayErrorsTotal.WithLabelValues(state.Kind).Inc()
			yayRequestsTotal.WithLabelValues(method, "cooldown").Inc()
			return &Error{
				Kind:    ErrorKind(state.Kind),
				Message: fmt.Sprintf("cooldown active for %s", state.Remaining().Round(time.Second)),
			}
		}
	}

	retryCfg := DefaultRetryConfig()
	retryCfg.MaxAttempts = c.config.MaxRetries + 1
	retryCfg.InitialBackoff = c.config.InitialBackoff
	retryCfg.NonIdempotent = !idempotent(method)

	var body []byte
	err := retryWithBackoff(ctx, retryCfg, c.logger, func() error {
		var err error
		body, err = c.send(ctx, method, endpoint, params, headers)
		return err
	})
	if err != nil {
		return err
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		yayErrorsTotal.WithLabelValues(string(KindUnknown)).Inc()
		return &Error{
			Kind:       KindUnknown,
			StatusCode: http.StatusOK,
			Message:    "decode response",
			Body:       body,
			Err:        err,
		}
	}
	return nil
}

// send performs one HTTP round-trip and classifies the result.
func (c *Client) send(ctx context.Context, method, endpoint string, params url.Values, headers http.Header) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, transportError("rate limiter wait", err)
		}
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, transportError("build url", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, transportError("create request", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("endpoint", u.Path).
		Str("method", method).
		Msg("Executing request")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	yayRequestDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", u.Path).Msg("HTTP request failed")
		yayErrorsTotal.WithLabelValues(string(KindUnknown)).Inc()
		yayRequestsTotal.WithLabelValues(method, "network_error").Inc()
		return nil, transportError("http request", err)
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	yayRequestsTotal.WithLabelValues(method, status).Inc()

	reader := io.Reader(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reader = io.LimitReader(resp.Body, maxErrorBody)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		yayErrorsTotal.WithLabelValues(string(KindUnknown)).Inc()
		return nil, transportError("read response body", err)
	}

	if err := Classify(resp.StatusCode, body); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			apiErr.Header = resp.Header.Clone()
		}
		kind := KindOf(err)
		yayErrorsTotal.WithLabelValues(string(kind)).Inc()

		c.logger.Warn().
			Str("endpoint", u.Path).
			Str("method", method).
			Int("status", resp.StatusCode).
			Str("error_kind", string(kind)).
			Msg("Yay request error")

		if kind == KindRateLimit && c.cooldown != nil {
			if _, cerr := c.cooldown.StartCooldown(ctx, string(kind), resp.Header); cerr != nil {
				c.logger.Warn().Err(cerr).Msg("Failed to record cooldown")
			}
		}
		return nil, err
	}

	return body, nil
}

// resolve turns an API path into an absolute URL. Absolute URLs pass through.
func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Session returns a copy of the current credentials.
func (c *Client) Session() session.Session {
	return c.session.Snapshot()
}

// Authenticator returns the client's authenticator.
func (c *Client) Authenticator() *Authenticator {
	return c.auth
}

// Login authenticates with email and password. See Authenticator.Login.
func (c *Client) Login(ctx context.Context, email, password string) (session.Session, error) {
	return c.auth.Login(ctx, email, password)
}

// Logout ends the session. See Authenticator.Logout.
func (c *Client) Logout(ctx context.Context) error {
	return c.auth.Logout(ctx)
}

// Refresh renews the access token. See Authenticator.Refresh.
func (c *Client) Refresh(ctx context.Context) (session.Session, error) {
	return c.auth.Refresh(ctx)
}

// Resume restores a saved session. See Authenticator.Resume.
func (c *Client) Resume(ctx context.Context, email string) (session.Session, error) {
	return c.auth.Resume(ctx, email)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
