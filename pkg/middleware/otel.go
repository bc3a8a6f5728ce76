package middleware

import (
	"context"
	"time"

	"github.com/vango-dev/reactive/pkg/reactive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for reactive stores.
const defaultTracerName = "rxstate"

// OTelConfig configures the OpenTelemetry tracing observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "rxstate").
	TracerName string

	// TracerProvider supplies the tracer. If nil, the global provider
	// is used.
	TracerProvider trace.TracerProvider

	// Filter determines which cells to trace.
	// Return true to trace the cell, false to skip.
	// If nil, all cells are traced.
	Filter func(key reactive.CellKey) bool

	// TracePropagation adds a span per source visited by propagation.
	// Disabled by default; recompute spans already carry the depth.
	TracePropagation bool

	// Context is the parent context for every span.
	Context context.Context

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry tracing observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithKeyFilter sets a filter function for traced cells.
func WithKeyFilter(filter func(key reactive.CellKey) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithPropagationSpans enables a span per propagation step.
func WithPropagationSpans(enabled bool) OTelOption {
	return func(c *OTelConfig) {
		c.TracePropagation = enabled
	}
}

// WithParentContext sets the context spans are started from, so store
// activity nests under an existing trace.
func WithParentContext(ctx context.Context) OTelOption {
	return func(c *OTelConfig) {
		c.Context = ctx
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
		Context:    context.Background(),
	}
}

// TracingObserver turns store events into OpenTelemetry spans.
type TracingObserver struct {
	reactive.NopObserver
	config OTelConfig
}

// OpenTelemetry creates an observer that traces reaction runs.
//
// The observer:
//   - Creates a span for each recompute with key, depth and changed
//   - Back-dates the span start by the measured run duration
//   - Records usage faults as errors and sets span status
//
// Example:
//
//	s := reactive.New(reactive.WithObserver(
//	    middleware.OpenTelemetry(middleware.WithTracerName("pricing")),
//	))
//
// Configure the global tracer provider before creating the observer, or
// pass one with WithTracerProvider.
func OpenTelemetry(opts ...OTelOption) *TracingObserver {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Context == nil {
		config.Context = context.Background()
	}

	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}

	return &TracingObserver{config: config}
}

func (o *TracingObserver) traced(key reactive.CellKey) bool {
	return o.config.Filter == nil || o.config.Filter(key)
}

func (o *TracingObserver) OnRecompute(e reactive.RecomputeEvent) {
	if !o.traced(e.Key) {
		return
	}
	end := time.Now()
	_, span := o.config.tracer.Start(
		o.config.Context,
		"rxstate.recompute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(end.Add(-e.Duration)),
		trace.WithAttributes(
			attribute.String("rxstate.store", e.Store),
			attribute.String("rxstate.key", e.Key.String()),
			attribute.Int("rxstate.depth", e.Depth),
			attribute.Bool("rxstate.changed", e.Changed),
		),
	)
	span.SetStatus(codes.Ok, "")
	span.End(trace.WithTimestamp(end))
}

func (o *TracingObserver) OnPropagate(e reactive.PropagateEvent) {
	if !o.config.TracePropagation || !o.traced(e.Source) {
		return
	}
	_, span := o.config.tracer.Start(
		o.config.Context,
		"rxstate.propagate",
		trace.WithAttributes(
			attribute.String("rxstate.store", e.Store),
			attribute.String("rxstate.key", e.Source.String()),
			attribute.Int("rxstate.depth", e.Depth),
			attribute.Int("rxstate.dependents", e.Dependents),
		),
	)
	span.End()
}

func (o *TracingObserver) OnFault(e reactive.FaultEvent) {
	if e.Err == nil || !o.traced(e.Err.Key) {
		return
	}
	_, span := o.config.tracer.Start(
		o.config.Context,
		"rxstate.fault",
		trace.WithAttributes(
			attribute.String("rxstate.store", e.Store),
			attribute.String("rxstate.key", e.Err.Key.String()),
			attribute.String("rxstate.code", e.Err.Code),
		),
	)
	span.RecordError(e.Err)
	span.SetStatus(codes.Error, e.Err.Error())
	span.End()
}
