package middleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/vango-dev/reactive/pkg/reactive"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func newMetricsStore(t *testing.T, opts ...MetricsOption) (*reactive.Store, *MetricsObserver) {
	t.Helper()
	opts = append([]MetricsOption{WithRegistry(prometheus.NewRegistry())}, opts...)
	m := Prometheus(opts...)
	return reactive.New(reactive.WithObserver(m)), m
}

func TestPrometheusCountsEngineActivity(t *testing.T) {
	s, m := newMetricsStore(t)

	a := reactive.NewAtom(s, reactive.Key("a"), func() int { return 1 })
	reactive.NewReaction(s, reactive.Key("b"), func() int { return a.Observe() + 1 })

	// Construction runs the initializer and the reaction body.
	if got := metricCounterValue(t, m.recomputes.WithLabelValues("true")); got != 2 {
		t.Fatalf("recomputes{changed=true} after construction = %v, want 2", got)
	}

	a.Set(2)
	a.InertSet(5)

	if got := metricCounterValue(t, m.writes.WithLabelValues("reactive")); got != 1 {
		t.Errorf("writes{mode=reactive} = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.writes.WithLabelValues("silent")); got != 1 {
		t.Errorf("writes{mode=silent} = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.recomputes.WithLabelValues("true")); got != 3 {
		t.Errorf("recomputes{changed=true} = %v, want 3", got)
	}
	if got := metricCounterValue(t, m.propagations); got != 1 {
		t.Errorf("propagations = %v, want 1", got)
	}
	if got := metricHistogramCount(t, m.recomputeSeconds); got != 3 {
		t.Errorf("recompute duration samples = %d, want 3", got)
	}
	if got := metricHistogramCount(t, m.propagationDepth); got != 1 {
		t.Errorf("propagation depth samples = %d, want 1", got)
	}
}

func TestPrometheusCountsUndoAndFaults(t *testing.T) {
	s, m := newMetricsStore(t)

	n := reactive.NewAtomUndo(s, reactive.Key("n"), func() int { return 0 })
	n.Set(1)
	n.Set(2)
	n.Undo()
	reactive.TravelBackwards(s)

	if got := metricCounterValue(t, m.undos.WithLabelValues("cell")); got != 1 {
		t.Errorf("undos{scope=cell} = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.undos.WithLabelValues("global")); got != 1 {
		t.Errorf("undos{scope=global} = %v, want 1", got)
	}

	err := reactive.Catch(func() {
		reactive.Get[string](s, reactive.Key("missing"))
	})
	if err == nil {
		t.Fatal("expected a fault")
	}
	if got := metricCounterValue(t, m.faults.WithLabelValues(reactive.CodeCellMissing)); got != 1 {
		t.Errorf("faults{code=%s} = %v, want 1", reactive.CodeCellMissing, got)
	}
}

func TestPrometheusCountsPrunes(t *testing.T) {
	s, m := newMetricsStore(t)

	flag := reactive.NewAtom(s, reactive.Key("flag"), func() bool { return true })
	x := reactive.NewAtom(s, reactive.Key("x"), func() int { return 1 })
	y := reactive.NewAtom(s, reactive.Key("y"), func() int { return 2 })
	reactive.NewReaction(s, reactive.Key("pick"), func() int {
		if flag.Observe() {
			return x.Observe()
		}
		return y.Observe()
	})

	flag.Set(false)

	if got := metricCounterValue(t, m.prunes); got != 1 {
		t.Errorf("prunes = %v, want 1", got)
	}
}

func TestPrometheusOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := Prometheus(
		WithRegistry(reg),
		WithNamespace("app"),
		WithSubsystem("state"),
		WithConstLabels(prometheus.Labels{"store": "main"}),
		WithBuckets([]float64{0.001, 0.01}),
	)
	s := reactive.New(reactive.WithObserver(m))
	a := reactive.NewAtom(s, reactive.Key("a"), func() int { return 0 })
	a.Set(1)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() != "app_state_writes_total" {
			continue
		}
		found = true
		labels := f.GetMetric()[0].GetLabel()
		hasStore := false
		for _, l := range labels {
			if l.GetName() == "store" && l.GetValue() == "main" {
				hasStore = true
			}
		}
		if !hasStore {
			t.Errorf("expected const label store=main, got %v", labels)
		}
	}
	if !found {
		t.Error("expected app_state_writes_total to be registered")
	}
}
