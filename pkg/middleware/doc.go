// Package middleware provides production-grade observers for reactive stores.
//
// This package includes:
//   - OpenTelemetry tracing of reaction runs and faults
//   - Prometheus metrics for writes, recomputes, propagation and undo
//   - Structured logging through log/slog
//
// Each observer implements reactive.Observer and is attached when the
// store is created. Several observers can be attached at once.
//
// # OpenTelemetry
//
// The tracing observer creates a span for every reaction run. Span
// attributes include the store ID, the cell key, the propagation depth
// and whether the value changed.
//
//	s := reactive.New(reactive.WithObserver(
//	    middleware.OpenTelemetry(),
//	))
//
// Configure with options:
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("pricing"),
//	    middleware.WithKeyFilter(func(k reactive.CellKey) bool {
//	        return k.Kind == reactive.KindNamed
//	    }),
//	)
//
// # Prometheus Metrics
//
// The metrics observer registers its collectors on the configured registry:
//
//	reg := prometheus.NewRegistry()
//	s := reactive.New(reactive.WithObserver(
//	    middleware.Prometheus(middleware.WithRegistry(reg)),
//	))
//
// Then expose them:
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # Logging
//
//	s := reactive.New(reactive.WithObserver(middleware.Logging(logger)))
package middleware
