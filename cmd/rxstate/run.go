package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/internal/config"
	"github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/middleware"
	"github.com/vango-dev/reactive/pkg/reactive"
	"github.com/vango-dev/reactive/pkg/scenario"
)

type runOptions struct {
	format  string
	verbose bool
	trace   bool
	lang    string
	logOut  io.Writer
}

func runCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [patterns...]",
		Short: "Run scenario files",
		Long: `Run every scenario file matching the given patterns.

Patterns are doublestar globs. Without patterns, the "scenarios" glob
from rxstate.json is used, relative to the directory holding it.

Examples:
  rxstate run
  rxstate run 'scenarios/**/*.yaml'
  rxstate run --trace scenarios/undo.yaml
  rxstate run --format json testdata/*.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			opts.logOut = cmd.ErrOrStderr()
			return runScenarios(cmd.OutOrStdout(), cfg, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text|json")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine events to stderr")
	cmd.Flags().BoolVarP(&opts.trace, "trace", "t", false, "Print the trace of every scenario")
	cmd.Flags().StringVar(&opts.lang, "lang", "", "Default expression language (expr|cel|js)")

	return cmd
}

// fileResult is the outcome of one scenario file.
type fileResult struct {
	Path       string            `json:"path"`
	Scenario   string            `json:"scenario,omitempty"`
	Passed     bool              `json:"passed"`
	DurationMS float64           `json:"duration_ms"`
	Stats      *reactive.Stats   `json:"stats,omitempty"`
	Failures   []json.RawMessage `json:"failures,omitempty"`

	trace    *scenario.Trace
	failures []*errors.RxError
}

type runReport struct {
	Results []fileResult `json:"results"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
}

func runScenarios(w io.Writer, cfg *config.Config, patterns []string, opts runOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", opts.format)
	}

	base := ""
	if len(patterns) == 0 {
		patterns = []string{cfg.Scenarios}
		base = cfg.Dir()
	}
	files, err := expandPatterns(base, patterns)
	if err != nil {
		return err
	}

	runner := newScenarioRunner(cfg, opts)
	report := runReport{}
	for _, file := range files {
		res := runFile(runner, file)
		if res.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, res)
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	default:
		writeText(w, report, opts.trace)
	}

	if report.Failed > 0 {
		return errors.New("X002").WithDetail(fmt.Sprintf("%d of %d scenarios failed", report.Failed, len(files)))
	}
	return nil
}

func newScenarioRunner(cfg *config.Config, opts runOptions, extra ...scenario.Option) *scenario.Runner {
	logOut := opts.logOut
	if logOut == nil {
		logOut = io.Discard
	}
	logger := newLogger(logOut, opts.verbose)

	runnerOpts := []scenario.Option{
		scenario.WithLang(cfg.Lang),
		scenario.WithLang(opts.lang),
		scenario.WithStoreOptions(cfg.StoreOptions()...),
		scenario.WithLogger(logger),
	}
	if opts.verbose {
		runnerOpts = append(runnerOpts, scenario.WithObservers(middleware.Logging(logger)))
	}
	return scenario.NewRunner(append(runnerOpts, extra...)...)
}

// runFile loads and runs one scenario. Load and setup errors become
// failures of the file.
func runFile(runner *scenario.Runner, path string) fileResult {
	start := time.Now()
	out := fileResult{Path: path}

	fail := func(err error) fileResult {
		re := errors.FromError(err, "X002")
		out.failures = append(out.failures, re)
		out.Failures = append(out.Failures, json.RawMessage(re.FormatJSON()))
		out.DurationMS = ms(time.Since(start))
		return out
	}

	sc, err := scenario.Load(path)
	if err != nil {
		return fail(err)
	}
	out.Scenario = sc.Name

	res, err := runner.Run(sc)
	if err != nil {
		return fail(err)
	}

	out.Passed = res.Passed
	out.Stats = &res.Stats
	out.trace = res.Trace
	out.failures = res.Failures
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, json.RawMessage(f.FormatJSON()))
	}
	out.DurationMS = ms(res.Duration)
	return out
}

func writeText(w io.Writer, report runReport, withTrace bool) {
	for _, res := range report.Results {
		label := res.Path
		if res.Scenario != "" {
			label = fmt.Sprintf("%s (%s)", res.Path, res.Scenario)
		}
		if res.Passed {
			success(w, "%s", label)
		} else {
			errorMsg(w, "%s", label)
		}
		if withTrace && res.trace != nil {
			for _, line := range strings.Split(strings.TrimRight(res.trace.String(), "\n"), "\n") {
				info(w, "%s", line)
			}
		}
		for _, f := range res.failures {
			fmt.Fprint(w, f.Format())
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d passed, %d failed\n", report.Passed, report.Failed)
}

// expandPatterns resolves doublestar globs to a sorted, de-duplicated list
// of files. Relative patterns are taken relative to base when it is set.
func expandPatterns(base string, patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		if base != "" && !filepath.IsAbs(pattern) {
			pattern = filepath.Join(base, pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.New("X001").WithSubject(pattern).Wrap(err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return nil, errors.New("X001").WithSubject(strings.Join(patterns, " "))
	}
	sort.Strings(files)
	return files, nil
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
