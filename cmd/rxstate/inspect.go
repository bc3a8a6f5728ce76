package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/internal/config"
	"github.com/vango-dev/reactive/pkg/devtools"
	"github.com/vango-dev/reactive/pkg/middleware"
	"github.com/vango-dev/reactive/pkg/reactive"
	"github.com/vango-dev/reactive/pkg/scenario"
)

type inspectOptions struct {
	runOptions
	addr      string
	stepDelay time.Duration
	exit      bool
	tracing   bool
}

func inspectCmd() *cobra.Command {
	var opts inspectOptions

	cmd := &cobra.Command{
		Use:   "inspect <scenario>",
		Short: "Run a scenario behind the live inspector",
		Long: `Run a scenario while serving its dependency graph, event stream and
Prometheus metrics over HTTP.

The server keeps running after the scenario finishes, so the final graph
can be examined. Use --exit to stop as soon as the run is done.

Routes:
  GET /graph     dependency graph and cell values after the last step
  GET /events    recent events, or a live websocket stream
  GET /metrics   Prometheus metrics

Examples:
  rxstate inspect scenarios/undo.yaml
  rxstate inspect --addr :9000 --step-delay 500ms scenarios/diff.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if opts.addr == "" {
				opts.addr = cfg.Devtools.Addr
			}
			opts.logOut = cmd.ErrOrStderr()

			ln, err := net.Listen("tcp", opts.addr)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return inspectScenario(ctx, cmd.OutOrStdout(), cfg, args[0], ln, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Inspector listen address (default from rxstate.json)")
	cmd.Flags().DurationVar(&opts.stepDelay, "step-delay", 0, "Pause between steps")
	cmd.Flags().BoolVar(&opts.exit, "exit", false, "Stop serving when the scenario finishes")
	cmd.Flags().BoolVar(&opts.tracing, "otel", false, "Emit OpenTelemetry spans through the global tracer provider")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine events to stderr")
	cmd.Flags().StringVar(&opts.lang, "lang", "", "Default expression language (expr|cel|js)")

	return cmd
}

// inspectScenario serves the inspector on ln and runs the scenario at path
// with the hub and metrics attached.
func inspectScenario(ctx context.Context, w io.Writer, cfg *config.Config, path string, ln net.Listener, opts inspectOptions) error {
	sc, err := scenario.Load(path)
	if err != nil {
		ln.Close()
		return err
	}

	logOut := opts.logOut
	if logOut == nil {
		logOut = io.Discard
	}
	logger := newLogger(logOut, opts.verbose)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := middleware.Prometheus(
		middleware.WithNamespace(cfg.Metrics.Namespace),
		middleware.WithConstLabels(prometheus.Labels{"scenario": sc.Name}),
		middleware.WithRegistry(registry),
	)

	hub := devtools.NewHub(cfg.Devtools.EventBuffer)
	server := devtools.NewServer(hub,
		devtools.WithGatherer(registry),
		devtools.WithLogger(logger),
	)

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(serveCtx, ln) }()

	info(w, "Inspector: http://%s", ln.Addr())

	observers := []reactive.Observer{hub, metrics}
	if opts.tracing {
		observers = append(observers, middleware.OpenTelemetry(
			middleware.WithParentContext(ctx),
			middleware.WithPropagationSpans(true),
		))
	}

	runner := newScenarioRunner(cfg, opts.runOptions,
		scenario.WithObservers(observers...),
		scenario.WithAfterStep(func(s *reactive.Store) {
			hub.Publish(s)
			if opts.stepDelay > 0 {
				select {
				case <-time.After(opts.stepDelay):
				case <-ctx.Done():
				}
			}
		}),
	)

	res, err := runner.Run(sc)
	if err != nil {
		cancel()
		<-serveErr
		return err
	}

	if res.Passed {
		success(w, "%s passed in %s", sc.Name, res.Duration.Round(time.Microsecond))
	} else {
		errorMsg(w, "%s failed", sc.Name)
		for _, f := range res.Failures {
			fmt.Fprint(w, f.Format())
		}
	}
	info(w, "writes=%d recomputes=%d propagations=%d undos=%d",
		res.Stats.Writes, res.Stats.Recomputes, res.Stats.Propagations, res.Stats.Undos)

	if opts.exit {
		cancel()
	} else {
		info(w, "Serving until interrupted (Ctrl+C to stop)")
	}
	return <-serveErr
}
