package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"runtime/metrics"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/pkg/reactive"
)

type benchConfig struct {
	Shape         string
	Size          int
	Writes        int
	SkipUnchanged bool
	JSONPath      string
}

var benchShapes = []string{"chain", "fanout", "diamond"}

func benchCmd() *cobra.Command {
	cfg := benchConfig{Shape: "chain", Size: 100, Writes: 1000}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark propagation over a synthetic graph",
		Long: `Build a synthetic dependency graph, write its root repeatedly and
report per-write latency, recompute counts and GC cost.

Shapes:
  chain    root -> r1 -> r2 -> ... -> rN
  fanout   root -> r1..rN
  diamond  root -> r1..rN -> sink

Examples:
  rxstate bench
  rxstate bench --shape diamond --size 500 --writes 10000
  rxstate bench --shape fanout --json report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.Shape, "shape", cfg.Shape, "Graph shape: chain|fanout|diamond")
	cmd.Flags().IntVar(&cfg.Size, "size", cfg.Size, "Number of reactions")
	cmd.Flags().IntVar(&cfg.Writes, "writes", cfg.Writes, "Number of root writes")
	cmd.Flags().BoolVar(&cfg.SkipUnchanged, "skip-unchanged", false, "Stop propagation at unchanged values")
	cmd.Flags().StringVar(&cfg.JSONPath, "json", "", "Also write a JSON report ('-' for stdout only)")

	return cmd
}

func runBench(w io.Writer, cfg benchConfig) error {
	if cfg.Size < 1 || cfg.Writes < 1 {
		return fmt.Errorf("size and writes must be positive")
	}

	s := reactive.New(
		reactive.WithSkipUnchanged(cfg.SkipUnchanged),
		reactive.WithMaxDepth(cfg.Size+8),
	)
	root, err := buildShape(s, cfg.Shape, cfg.Size)
	if err != nil {
		return err
	}
	built := s.Stats()

	latencies := make([]time.Duration, 0, cfg.Writes)
	runtime.GC()
	var memBefore, memAfter runtime.MemStats
	runtime.ReadMemStats(&memBefore)
	metricsBefore := readRuntimeMetrics()

	start := time.Now()
	for i := 1; i <= cfg.Writes; i++ {
		t0 := time.Now()
		root.Set(i)
		latencies = append(latencies, time.Since(t0))
	}
	elapsed := time.Since(start)

	runtime.ReadMemStats(&memAfter)
	metricsAfter := readRuntimeMetrics()

	report := buildBenchReport(cfg, s.Stats(), built, latencies, elapsed, memBefore, memAfter, metricsBefore, metricsAfter)

	if cfg.JSONPath == "-" {
		return writeBenchJSON(w, report)
	}
	writeBenchSummary(w, report)
	if cfg.JSONPath != "" {
		f, err := os.Create(cfg.JSONPath)
		if err != nil {
			return err
		}
		defer f.Close()
		return writeBenchJSON(f, report)
	}
	return nil
}

// buildShape registers a graph of the given shape and returns its root.
func buildShape(s *reactive.Store, shape string, size int) (reactive.Atom[int], error) {
	root := reactive.NewAtom(s, reactive.Key("root"), func() int { return 0 })
	node := func(i int) reactive.CellKey { return reactive.Key(fmt.Sprintf("r%d", i)) }

	switch shape {
	case "chain":
		prev := root.Key()
		for i := 1; i <= size; i++ {
			src := prev
			reactive.NewReaction(s, node(i), func() int {
				return reactive.Observe[int](s, src) + 1
			})
			prev = node(i)
		}
	case "fanout":
		for i := 1; i <= size; i++ {
			n := i
			reactive.NewReaction(s, node(i), func() int {
				return root.Observe() * n
			})
		}
	case "diamond":
		for i := 1; i <= size; i++ {
			n := i
			reactive.NewReaction(s, node(i), func() int {
				return root.Observe() + n
			})
		}
		reactive.NewReaction(s, reactive.Key("sink"), func() int {
			sum := 0
			for i := 1; i <= size; i++ {
				sum += reactive.Observe[int](s, node(i))
			}
			return sum
		})
	default:
		return root, fmt.Errorf("unknown shape %q (want one of %v)", shape, benchShapes)
	}
	return root, nil
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64

	heapAllocsBytes   uint64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:bytes"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		switch s.Value.Kind() {
		case metrics.KindFloat64:
			if s.Name == "/cpu/classes/total:cpu-seconds" {
				out.cpuTotalSeconds = s.Value.Float64()
			} else {
				out.cpuGCSeconds = s.Value.Float64()
			}
		case metrics.KindUint64:
			if s.Name == "/gc/heap/allocs:bytes" {
				out.heapAllocsBytes = s.Value.Uint64()
			} else {
				out.heapAllocsObjects = s.Value.Uint64()
			}
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        benchRunInfo   `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyUS  latencyInfo    `json:"latency_us"`
	Throughput throughputInfo `json:"throughput"`
	Engine     engineInfo     `json:"engine"`
	GC         gcInfo         `json:"gc"`
}

type benchRunInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
}

type workloadInfo struct {
	Shape         string `json:"shape"`
	Size          int    `json:"size"`
	Writes        int    `json:"writes"`
	SkipUnchanged bool   `json:"skip_unchanged"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	DurationMS       float64 `json:"duration_ms"`
	WritesPerSec     float64 `json:"writes_per_sec"`
	RecomputesPerSec float64 `json:"recomputes_per_sec"`
}

type engineInfo struct {
	Cells              int     `json:"cells"`
	Edges              int     `json:"edges"`
	Recomputes         int     `json:"recomputes"`
	Propagations       int     `json:"propagations"`
	RecomputesPerWrite float64 `json:"recomputes_per_write"`
}

type gcInfo struct {
	AllocMB        float64 `json:"alloc_mb"`
	AllocsPerWrite float64 `json:"allocs_per_write"`
	NumGC          uint32  `json:"num_gc"`
	PauseTotalMS   float64 `json:"pause_total_ms"`
	GCCPUFraction  float64 `json:"gc_cpu_fraction"`
}

func buildBenchReport(
	cfg benchConfig,
	stats, built reactive.Stats,
	latencies []time.Duration,
	elapsed time.Duration,
	memBefore, memAfter runtime.MemStats,
	metricsBefore, metricsAfter runtimeMetricsSnapshot,
) benchReport {
	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	recomputes := stats.Recomputes - built.Recomputes
	seconds := elapsed.Seconds()
	rate := func(n int) float64 {
		if seconds <= 0 {
			return 0
		}
		return float64(n) / seconds
	}
	us := func(d time.Duration) float64 { return float64(d) / float64(time.Microsecond) }
	objects := metricsAfter.heapAllocsObjects - metricsBefore.heapAllocsObjects

	return benchReport{
		Version: version,
		Run: benchRunInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
		},
		Workload: workloadInfo{
			Shape:         cfg.Shape,
			Size:          cfg.Size,
			Writes:        cfg.Writes,
			SkipUnchanged: cfg.SkipUnchanged,
		},
		LatencyUS: latencyInfo{
			Min: us(percentile(sorted, 0)),
			P50: us(percentile(sorted, 0.50)),
			P95: us(percentile(sorted, 0.95)),
			P99: us(percentile(sorted, 0.99)),
			Max: us(percentile(sorted, 1)),
		},
		Throughput: throughputInfo{
			DurationMS:       ms(elapsed),
			WritesPerSec:     rate(len(latencies)),
			RecomputesPerSec: rate(recomputes),
		},
		Engine: engineInfo{
			Cells:              cellCount(cfg),
			Edges:              stats.EdgesAdded - stats.EdgesRemoved,
			Recomputes:         recomputes,
			Propagations:       stats.Propagations - built.Propagations,
			RecomputesPerWrite: float64(recomputes) / float64(len(latencies)),
		},
		GC: gcInfo{
			AllocMB:        float64(metricsAfter.heapAllocsBytes-metricsBefore.heapAllocsBytes) / (1024 * 1024),
			AllocsPerWrite: float64(objects) / float64(len(latencies)),
			NumGC:          memAfter.NumGC - memBefore.NumGC,
			PauseTotalMS:   float64(memAfter.PauseTotalNs-memBefore.PauseTotalNs) / float64(time.Millisecond),
			GCCPUFraction:  cpuFraction(metricsAfter, metricsBefore),
		},
	}
}

func cellCount(cfg benchConfig) int {
	if cfg.Shape == "diamond" {
		return cfg.Size + 2
	}
	return cfg.Size + 1
}

func writeBenchSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== rxstate propagation benchmark ===")
	fmt.Fprintf(w, "Shape: %s\n", report.Workload.Shape)
	fmt.Fprintf(w, "Size: %d reactions (%d cells, %d edges)\n", report.Workload.Size, report.Engine.Cells, report.Engine.Edges)
	fmt.Fprintf(w, "Writes: %d\n", report.Workload.Writes)
	if report.Workload.SkipUnchanged {
		fmt.Fprintln(w, "Skip unchanged: on")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Duration: %.2f ms\n", report.Throughput.DurationMS)
	fmt.Fprintf(w, "Throughput: %.1f writes/s (%.1f recomputes/s)\n", report.Throughput.WritesPerSec, report.Throughput.RecomputesPerSec)
	fmt.Fprintf(w, "Recomputes per write: %.2f\n", report.Engine.RecomputesPerWrite)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Write latency (set -> propagation done):")
	fmt.Fprintf(w, "  min: %.2f us\n", report.LatencyUS.Min)
	fmt.Fprintf(w, "  p50: %.2f us\n", report.LatencyUS.P50)
	fmt.Fprintf(w, "  p95: %.2f us\n", report.LatencyUS.P95)
	fmt.Fprintf(w, "  p99: %.2f us\n", report.LatencyUS.P99)
	fmt.Fprintf(w, "  max: %.2f us\n", report.LatencyUS.Max)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:        %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  allocs/write: %.1f\n", report.GC.AllocsPerWrite)
	fmt.Fprintf(w, "  num_gc:       %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:     %.2f ms (total)\n", report.GC.PauseTotalMS)
	fmt.Fprintf(w, "  gc_cpu:       %.2f%%\n", report.GC.GCCPUFraction*100)
}

func writeBenchJSON(w io.Writer, report benchReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
