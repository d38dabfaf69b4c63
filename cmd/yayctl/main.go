// Command yayctl is a small command-line front end for the Yay! client.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/yay-client/internal/config"
	"github.com/Sternrassler/yay-client/pkg/client"
	"github.com/Sternrassler/yay-client/pkg/logging"
	"github.com/Sternrassler/yay-client/pkg/metrics"
	"github.com/Sternrassler/yay-client/pkg/pagination"
	"github.com/Sternrassler/yay-client/pkg/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once the root has loaded the
// configuration.
type app struct {
	out    io.Writer
	cfg    config.Config
	logger zerolog.Logger
	redis  *redis.Client
	client *client.Client

	stopMetrics context.CancelFunc
}

// flagKeys maps persistent flags to configuration keys. Only flags the
// user actually set are applied, so file and environment values survive.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"pretty":       "log.pretty",
	"metrics-addr": "metrics.addr",
	"base-url":     "client.base_url",
	"access-token": "client.access_token",
	"redis-addr":   "redis.addr",
	"max-retries":  "client.max_retries",
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	var configFile string

	root := &cobra.Command{
		Use:           "yayctl",
		Short:         "Talk to the Yay! API from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, configFile)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "YAML configuration file")
	flags.String("log-level", "", "log level (debug, info, warn, error, disabled)")
	flags.Bool("pretty", false, "human-readable log output")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.String("base-url", "", "API base URL")
	flags.String("access-token", "", "use this access token instead of logging in")
	flags.String("redis-addr", "", "Redis address for session persistence and shared cooldown")
	flags.Int("max-retries", 0, "retry transient failures this many times")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newUserCmd(a),
		newFollowersCmd(a),
		newFollowingsCmd(a),
		newLettersCmd(a),
		newTimelineCmd(a),
		newNotificationsCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, configFile string) error {
	overrides := make(map[string]any)
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}

	opts := []config.Option{config.WithOverrides(overrides)}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	cfg, err := config.NewLoader(opts...).Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	logCfg := cfg.Logging()
	logCfg.Output = cmd.ErrOrStderr()
	a.logger = logging.Setup(logCfg)

	if cfg.Metrics.Addr != "" {
		ctx, cancel := context.WithCancel(cmd.Context())
		a.stopMetrics = cancel
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, a.logger); err != nil {
				a.logger.Error().Err(err).Str("addr", cfg.Metrics.Addr).Msg("Metrics server failed")
			}
		}()
	}

	a.redis = cfg.Redis.NewRedis()
	clientCfg := cfg.ClientConfig(&a.logger, a.redis)
	clientCfg.Progress = a.progress
	a.client, err = client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	if cmd.Name() != "login" {
		a.resume(cmd.Context())
	}
	return nil
}

// resume restores a persisted session for the configured account. A
// missing session is not an error: the command simply runs anonymously.
func (a *app) resume(ctx context.Context) {
	if a.cfg.Auth.Email == "" || a.redis == nil || a.cfg.Client.AccessToken != "" {
		return
	}
	_, err := a.client.Resume(ctx, a.cfg.Auth.Email)
	switch {
	case err == nil:
		a.logger.Debug().Str("account", a.cfg.Auth.Email).Msg("Session resumed")
	case errors.Is(err, session.ErrNotFound):
		a.logger.Debug().Str("account", a.cfg.Auth.Email).Msg("No saved session")
	default:
		a.logger.Warn().Err(err).Str("account", a.cfg.Auth.Email).Msg("Could not resume session")
	}
}

func (a *app) progress(p pagination.Progress) {
	a.logger.Info().
		Str("list", p.List).
		Int("pages", p.Pages).
		Int("fetched", p.Fetched).
		Int("target", p.Target).
		Msg("Page fetched")
}

func (a *app) close() error {
	if a.stopMetrics != nil {
		a.stopMetrics()
	}
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
