// Package observability provides structured logging, Prometheus metrics, OpenTelemetry
// tracing, health checks, and graceful shutdown for recipebox.
//
// # Structured Logging
//
// Logger wraps logrus with a JSON formatter:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("recipe_id", id).Info("Recipe created")
//
// Request scoped loggers travel in the context:
//
//	ctx = observability.WithLogger(ctx, logger)
//	observability.FromContext(ctx).Warn("Slow query")
//
// FromContext adds request_id plus trace_id/span_id when a span is recording.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	metrics.ObserveStorage(ctx, "recipes.create", start, err)
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	checker.AddCheck("search", false, func(ctx context.Context) error { return search.Ping(ctx) })
//	observability.RegisterHealthRoutes(opsMux, checker)
//
// A failing critical probe makes readiness answer 503; other failures report degraded.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "recipebox",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
