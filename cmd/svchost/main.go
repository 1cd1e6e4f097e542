package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	svchost "github.com/bft-labs/svchost"
	"github.com/bft-labs/svchost/internal/cliconfig"
	"github.com/bft-labs/svchost/internal/procsvc"
	"github.com/bft-labs/svchost/pkg/lifecycle"
	"github.com/bft-labs/svchost/pkg/log"
	"github.com/bft-labs/svchost/pkg/service"
	"github.com/bft-labs/svchost/plugins/configwatcher"
)

const longHelp = `Run a command as a supervised service.

svchost starts the command, keeps track of its lifecycle and stops it
cleanly on SIGINT/SIGTERM. When a watched configuration file changes the
command is stopped and started again. Lifecycle notifications can be
logged, POSTed to a webhook and exported as Prometheus metrics.

Configure via $HOME/.svchost/config.toml, SVCHOST_* environment variables
or flags (flags win over environment, environment over file).`

var exampleUsage = strings.TrimSpace(`
  svchost --name billing --command /usr/local/bin/billing -- --port 8080
  svchost --config /etc/svchost/billing.toml --metrics-addr :9100
  svchost --command ./worker --watch ./worker.toml --webhook-url https://hooks.example.com/svc
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:          "svchost [flags] [-- args...]",
		Short:        "Run a command as a supervised service",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			if len(args) > 0 {
				cfg.Args = args
				changed["arg"] = true
			}

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := cfg.Logger(os.Stderr)
			if err != nil {
				return err
			}
			logger.Info("configuration", log.Any("config", cfg.Redacted()))

			return run(cmd.Context(), cfg, logger)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.svchost/config.toml)")
	root.Flags().StringVar(&cfg.Name, "name", cfg.Name, "service name (defaults to the command's base name)")
	root.Flags().StringVar(&cfg.DisplayName, "display-name", cfg.DisplayName, "human readable service name")
	root.Flags().StringVar(&cfg.Description, "description", cfg.Description, "service description")

	root.Flags().StringVar(&cfg.Command, "command", cfg.Command, "executable to run")
	root.Flags().StringVar(&cfg.Dir, "dir", cfg.Dir, "working directory of the command")
	root.Flags().StringArrayVar(&cfg.Env, "env", cfg.Env, "extra KEY=VALUE environment for the command (repeatable)")

	root.Flags().StringSliceVar(&cfg.WatchPaths, "watch", cfg.WatchPaths, "restart the service when these files change")
	root.Flags().DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "quiet period after a file change before restarting")

	root.Flags().DurationVar(&cfg.StopTimeout, "stop-timeout", cfg.StopTimeout, "time the command gets to exit after SIGTERM")
	root.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "time the host waits for stop and unload on shutdown")
	root.Flags().StringVar(&cfg.UnmatchedPolicy, "unmatched", cfg.UnmatchedPolicy, "handling of events the current state does not accept: ignore, log or reject")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	root.Flags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")
	root.Flags().BoolVar(&cfg.LogEvents, "log-events", cfg.LogEvents, "log every lifecycle notification")

	root.Flags().StringVar(&cfg.WebhookURL, "webhook-url", cfg.WebhookURL, "POST lifecycle notifications to this URL")
	root.Flags().DurationVar(&cfg.WebhookTimeout, "webhook-timeout", cfg.WebhookTimeout, "webhook request timeout")
	root.Flags().IntVar(&cfg.EventBuffer, "event-buffer", cfg.EventBuffer, "notifications queued for the webhook before dropping")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (e.g. :9100)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "svchost:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliconfig.Config, logger *log.ZerologAdapter) error {
	policy, err := lifecycle.ParseUnmatchedPolicy(cfg.UnmatchedPolicy)
	if err != nil {
		return err
	}

	builder := procsvc.NewBuilder(procsvc.Config{
		Command:     cfg.Command,
		Args:        cfg.Args,
		Dir:         cfg.Dir,
		Env:         cfg.Env,
		StopTimeout: cfg.StopTimeout,
	}, logger)

	opts := []svchost.Option{svchost.WithLogger(logger)}
	if cfg.LogEvents {
		opts = append(opts, svchost.WithNotificationLog())
	}
	if cfg.WebhookURL != "" {
		opts = append(opts, svchost.WithWebhook(cfg.WebhookURL, nil, cfg.WebhookTimeout, cfg.EventBuffer))
	}
	if cfg.MetricsAddr != "" {
		opts = append(opts, svchost.WithMetrics("svchost"))
	}
	if len(cfg.WatchPaths) > 0 {
		opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{
			Paths:         cfg.WatchPaths,
			DebounceDelay: cfg.Debounce,
		}))
	}

	host, err := svchost.New(svchost.Config{
		Settings: service.HostSettings{
			Name:        cfg.Name,
			DisplayName: cfg.DisplayName,
			Description: cfg.Description,
			Params:      cfg.Params,
		},
		UnmatchedPolicy: policy,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, builder, opts...)
	if err != nil {
		return fmt.Errorf("create host: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The service ending on its own ends the process.
		defer cancel()
		return host.Run(gctx)
	})

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(host.MetricsHandler()),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics server listening", log.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	switch {
	case err == nil:
		logger.Info("service completed", log.String("service", cfg.Name))
	case svchost.IsFaulted(err):
		logger.Error("service failed", log.String("service", cfg.Name), log.Err(err))
	case errors.Is(err, svchost.ErrServiceExited):
		logger.Error("service exited unexpectedly", log.String("service", cfg.Name), log.Err(err))
	}
	return err
}

func metricsMux(h http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
