package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/recipebox/pkg/api"
	"github.com/platinummonkey/recipebox/pkg/config"
	"github.com/platinummonkey/recipebox/pkg/middleware"
	"github.com/platinummonkey/recipebox/pkg/observability"
	"github.com/platinummonkey/recipebox/pkg/storage"
	"github.com/platinummonkey/recipebox/pkg/swagger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "recipebox: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	port        string
	databaseURL string
}

func (o options) apply(cfg *config.Config) error {
	if o.port != "" {
		cfg.Server.Port = o.port
	}
	if o.databaseURL != "" {
		cfg.Database.URL = o.databaseURL
	}
	return cfg.Validate()
}

func newRootCmd(output io.Writer) *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:           "recipebox",
		Short:         "Recipe, step and ingredient HTTP API",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, output)
		},
	}
	root.SetOut(output)
	root.SetErr(output)
	root.PersistentFlags().StringVar(&opts.port, "port", "", "Port to listen on (overrides RECIPEBOX_PORT)")
	root.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "Database URL (overrides RECIPEBOX_DATABASE_URL)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the API and ops servers (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), opts, output)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(cmd.Context(), opts, output)
			},
		},
	)

	return root
}

func run(ctx context.Context, args []string, output io.Writer) error {
	root := newRootCmd(output)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// setup loads configuration and opens the database. The caller owns both returned resources.
func setup(ctx context.Context, opts options, output io.Writer) (*config.Config, *observability.Logger, *observability.OTelProviders, *storage.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := opts.apply(cfg); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("invalid flags: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, output)

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		observability.ShutdownOTel(ctx, providers, logger)
		return nil, nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.WithField("driver", cfg.Database.Driver).Info("Database connected")

	return cfg, logger, providers, db, nil
}

func runMigrate(ctx context.Context, opts options, output io.Writer) error {
	_, logger, providers, db, err := setup(ctx, opts, output)
	if err != nil {
		return err
	}
	defer observability.ShutdownOTel(ctx, providers, logger)
	defer db.Close()

	if err := db.Migrate(ctx, logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("Migrations applied")
	return nil
}

func runServe(ctx context.Context, opts options, output io.Writer) error {
	cfg, logger, providers, db, err := setup(ctx, opts, output)
	if err != nil {
		return err
	}

	if cfg.Database.MigrateOnStart {
		if err := db.Migrate(ctx, logger); err != nil {
			db.Close()
			observability.ShutdownOTel(ctx, providers, logger)
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return serve(ctx, cfg, logger, db, providers)
}

func serve(ctx context.Context, cfg *config.Config, logger *observability.Logger, db *storage.DB, providers *observability.OTelProviders) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
		if err := metrics.RegisterDBStats(db.SQL(), "recipebox"); err != nil {
			logger.WithError(err).Warn("Failed to register database stats collector")
		}
		if providers != nil {
			otelMetrics, err := observability.NewOTelMetrics()
			if err != nil {
				logger.WithError(err).Warn("Failed to create OpenTelemetry instruments")
			} else {
				metrics.AttachOTel(otelMetrics)
			}
		}
		db.WithMetrics(metrics)
	}

	apiOpts := apiOptions(cfg, logger, metrics)

	var redisClient *redis.Client
	if cfg.RateLimit.Enabled {
		limits := &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			WindowDuration:    cfg.RateLimit.Window,
			BurstSize:         cfg.RateLimit.Burst,
		}
		if cfg.RateLimit.RedisURL != "" {
			client, err := middleware.NewRedisClient(ctx, cfg.RateLimit.RedisURL)
			if err != nil {
				db.Close()
				observability.ShutdownOTel(ctx, providers, logger)
				return err
			}
			redisClient = client
			apiOpts.RateLimiter = middleware.NewDistributedRateLimiter(client, limits, "")
			apiOpts.RateLimiterName = "redis"
		} else {
			limiter := middleware.NewRateLimiter(limits)
			limiter.StartCleanup(observability.WithLogger(ctx, logger))
			apiOpts.RateLimiter = limiter
			apiOpts.RateLimiterName = "memory"
		}
		apiOpts.RateLimitWindow = cfg.RateLimit.Window
	}

	server := api.NewServer(db, apiOpts)
	server.RegisterRoutes(swagger.NewSwaggerHandlers())

	apiServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	opsMux := http.NewServeMux()
	observability.RegisterHealthRoutes(opsMux, observability.NewHealthChecker(db.SQL(), redisClient).WithVersion(version))
	if metrics != nil {
		observability.RegisterMetricsEndpoint(opsMux, registry)
	}
	opsServer := &http.Server{
		Addr:              cfg.Server.HealthAddr(),
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, opsServer)
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return db.Close()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guarded(logger, "api server", func() error {
		logger.Infof("Recipe API listening on %s", apiServer.Addr)
		return listen(apiServer)
	}))
	g.Go(guarded(logger, "ops server", func() error {
		logger.Infof("Health and metrics listening on %s", opsServer.Addr)
		return listen(opsServer)
	}))
	g.Go(guarded(logger, "shutdown", func() error {
		return shutdown.WaitForShutdown(gctx)
	}))

	return g.Wait()
}

// apiOptions maps configuration onto the API middleware. The rate limiter is attached by serve.
func apiOptions(cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) api.Options {
	return api.Options{
		Logger:         logger,
		Metrics:        metrics,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
		TrustProxy:     cfg.RateLimit.TrustProxy,
	}
}

func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server on %s failed: %w", srv.Addr, err)
	}
	return nil
}

// guarded turns a panic in fn into an error so the errgroup cancels the other servers
func guarded(logger *observability.Logger, where string, fn func() error) func() error {
	return func() (err error) {
		defer observability.RecoverPanicWithCallback(logger, where, func(r interface{}) {
			err = observability.MustRecover(r)
		})
		return fn()
	}
}
