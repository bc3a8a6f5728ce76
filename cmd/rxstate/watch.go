package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/internal/config"
	"github.com/vango-dev/reactive/internal/watch"
)

func watchCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-run scenarios as they change",
		Long: `Run every scenario under a directory, then watch it and re-run each
scenario file that is written.

Defaults to the current directory.

Examples:
  rxstate watch
  rxstate watch scenarios --trace`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			opts.logOut = cmd.ErrOrStderr()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchScenarios(ctx, cmd.OutOrStdout(), cfg, dir, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine events to stderr")
	cmd.Flags().BoolVarP(&opts.trace, "trace", "t", false, "Print the trace of every scenario")
	cmd.Flags().StringVar(&opts.lang, "lang", "", "Default expression language (expr|cel|js)")

	return cmd
}

// watchScenarios runs every scenario under dir, then re-runs changed ones
// until ctx is done.
func watchScenarios(ctx context.Context, w io.Writer, cfg *config.Config, dir string, opts runOptions) error {
	if _, err := os.Stat(dir); err != nil {
		return err
	}

	logOut := opts.logOut
	if logOut == nil {
		logOut = io.Discard
	}
	watcher := watch.New(watch.Config{
		Paths:  []string{dir},
		Logger: newLogger(logOut, opts.verbose),
	})
	runner := newScenarioRunner(cfg, opts)

	report := func(paths []string) {
		var r runReport
		for _, p := range paths {
			res := runFile(runner, p)
			if res.Passed {
				r.Passed++
			} else {
				r.Failed++
			}
			r.Results = append(r.Results, res)
		}
		writeText(w, r, opts.trace)
	}

	if files := watcher.Scan(); len(files) > 0 {
		report(files)
	} else {
		warn(w, "No scenario files in %s yet", dir)
	}

	watcher.OnChange(func(c watch.Change) {
		if c.Type == watch.ChangeRemove {
			info(w, "removed %s", c.Path)
			return
		}
		info(w, "changed %s", c.Path)
		report([]string{c.Path})
	})

	info(w, "Watching %s (Ctrl+C to stop)", dir)
	if err := watcher.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
