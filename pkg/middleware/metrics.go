package middleware

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/reactive/pkg/reactive"
)

// MetricsConfig configures the Prometheus metrics observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "rxstate").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for recompute duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the recompute duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "rxstate",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// MetricsObserver records store events as Prometheus metrics.
//
// Metrics collected:
//   - rxstate_writes_total: writes made through handles, by mode (reactive|silent)
//   - rxstate_recomputes_total: reaction runs, by whether the value changed
//   - rxstate_recompute_duration_seconds: reaction run duration
//   - rxstate_propagations_total: sources visited by propagation passes
//   - rxstate_propagation_depth: depth at which sources were visited
//   - rxstate_prunes_total: dependency edges removed by dead-link pruning
//   - rxstate_undos_total: values reinstated from undo history, by scope (cell|global)
//   - rxstate_faults_total: usage faults, by code
type MetricsObserver struct {
	reactive.NopObserver

	writes           *prometheus.CounterVec
	recomputes       *prometheus.CounterVec
	recomputeSeconds prometheus.Histogram
	propagations     prometheus.Counter
	propagationDepth prometheus.Histogram
	prunes           prometheus.Counter
	undos            *prometheus.CounterVec
	faults           *prometheus.CounterVec
}

// Prometheus creates an observer that collects metrics for a store. The
// metrics are registered on the configured registry; create one observer
// per registry.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	s := reactive.New(reactive.WithObserver(
//	    middleware.Prometheus(middleware.WithRegistry(reg)),
//	))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
func Prometheus(opts ...MetricsOption) *MetricsObserver {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &MetricsObserver{
		writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "writes_total",
			Help:        "Total number of cell writes made through handles",
			ConstLabels: config.ConstLabels,
		}, []string{"mode"}),

		recomputes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recomputes_total",
			Help:        "Total number of reaction runs",
			ConstLabels: config.ConstLabels,
		}, []string{"changed"}),

		recomputeSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recompute_duration_seconds",
			Help:        "Reaction run duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		propagations: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "propagations_total",
			Help:        "Total number of sources visited by propagation",
			ConstLabels: config.ConstLabels,
		}),

		propagationDepth: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "propagation_depth",
			Help:        "Depth at which propagation visited a source",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),

		prunes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "prunes_total",
			Help:        "Total number of dependency edges removed by pruning",
			ConstLabels: config.ConstLabels,
		}),

		undos: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "undos_total",
			Help:        "Total number of values reinstated from undo history",
			ConstLabels: config.ConstLabels,
		}, []string{"scope"}),

		faults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "faults_total",
			Help:        "Total number of usage faults by code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),
	}
}

func (m *MetricsObserver) OnWrite(e reactive.WriteEvent) {
	mode := "reactive"
	if e.Silent {
		mode = "silent"
	}
	m.writes.WithLabelValues(mode).Inc()
}

func (m *MetricsObserver) OnRecompute(e reactive.RecomputeEvent) {
	m.recomputes.WithLabelValues(strconv.FormatBool(e.Changed)).Inc()
	m.recomputeSeconds.Observe(e.Duration.Seconds())
}

func (m *MetricsObserver) OnPropagate(e reactive.PropagateEvent) {
	m.propagations.Inc()
	m.propagationDepth.Observe(float64(e.Depth))
}

func (m *MetricsObserver) OnPrune(reactive.PruneEvent) {
	m.prunes.Inc()
}

func (m *MetricsObserver) OnUndo(e reactive.UndoEvent) {
	scope := "cell"
	if e.Global {
		scope = "global"
	}
	m.undos.WithLabelValues(scope).Inc()
}

func (m *MetricsObserver) OnFault(e reactive.FaultEvent) {
	code := "unknown"
	if e.Err != nil && e.Err.Code != "" {
		code = e.Err.Code
	}
	m.faults.WithLabelValues(code).Inc()
}
