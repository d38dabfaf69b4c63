package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/yay-client/pkg/client"
	"github.com/Sternrassler/yay-client/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yayctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader(WithEnvPrefix("YAYTEST_DEFAULTS_")).Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, client.DefaultBaseURL, cfg.Client.BaseURL)
	assert.Equal(t, "10s", cfg.Client.Timeout)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
client:
  base_url: "http://localhost:9000"
  rate_limit: 2.5
  timeout: "3s"
redis:
  addr: "localhost:6379"
  db: 2
log:
  level: debug
  pretty: true
`)

	cfg, err := NewLoader(WithConfigFile(path), WithEnvPrefix("YAYTEST_FILE_")).Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.Client.BaseURL)
	assert.Equal(t, 2.5, cfg.Client.RateLimit)
	assert.Equal(t, "3s", cfg.Client.Timeout)
	assert.Equal(t, client.DefaultCASBaseURL, cfg.Client.CASBaseURL, "unset keys keep defaults")
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
client:
  max_retries: 1
`)
	t.Setenv("YAYTEST_ENV_CLIENT__MAX_RETRIES", "4")
	t.Setenv("YAYTEST_ENV_CLIENT__ACCESS_TOKEN", "tok")
	t.Setenv("YAYTEST_ENV_AUTH__EMAIL", "a@example.com")

	cfg, err := NewLoader(WithConfigFile(path), WithEnvPrefix("YAYTEST_ENV_")).Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Client.MaxRetries)
	assert.Equal(t, "tok", cfg.Client.AccessToken)
	assert.Equal(t, "a@example.com", cfg.Auth.Email)
}

func TestLoad_OverridesWin(t *testing.T) {
	t.Setenv("YAYTEST_OVR_LOG__LEVEL", "warn")

	cfg, err := NewLoader(
		WithEnvPrefix("YAYTEST_OVR_"),
		WithOverrides(map[string]any{"log.level": "error", "metrics.addr": ":9100"}),
	).Load()
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad timeout", "client:\n  timeout: soon\n", "client.timeout"},
		{"bad backoff", "client:\n  initial_backoff: 1x\n", "client.initial_backoff"},
		{"negative db", "redis:\n  db: -1\n", "redis.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := NewLoader(WithConfigFile(path), WithEnvPrefix("YAYTEST_INVALID_")).Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader(WithConfigFile("/nonexistent/yayctl.yaml")).Load()
	assert.Error(t, err)
}

func TestClientConfig(t *testing.T) {
	cfg := Default()
	cfg.Client.Timeout = "2s"
	cfg.Client.InitialBackoff = "250ms"
	cfg.Client.APIKey = "key"

	cc := cfg.ClientConfig(nil, nil)

	assert.Equal(t, 2*time.Second, cc.Timeout)
	assert.Equal(t, 250*time.Millisecond, cc.InitialBackoff)
	assert.Equal(t, "key", cc.APIKey)
	assert.Nil(t, cc.Redis)

	_, err := client.New(cc)
	assert.NoError(t, err)
}

func TestLogging(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warning"
	cfg.Log.Pretty = true

	lc := cfg.Logging()
	assert.Equal(t, logging.LevelWarn, lc.Level)
	assert.True(t, lc.Pretty)
	assert.Equal(t, "yayctl", lc.Service)
}

func TestNewRedis(t *testing.T) {
	assert.Nil(t, RedisConfig{}.NewRedis())

	rc := RedisConfig{Addr: "localhost:6379", DB: 3}.NewRedis()
	require.NotNil(t, rc)
	defer rc.Close()
	assert.Equal(t, 3, rc.Options().DB)
}

func TestEnvKey(t *testing.T) {
	l := NewLoader()
	assert.Equal(t, "client.rate_limit", l.envKey("YAY_CLIENT__RATE_LIMIT"))
	assert.Equal(t, "log.level", l.envKey("YAY_LOG__LEVEL"))
}
