package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/internal/config"
	"github.com/vango-dev/reactive/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬─┐─┐ ┬┌─┐┌┬┐┌─┐┌┬┐┌─┐
  ├┬┘┌┴┬┘└─┐ │ ├─┤ │ ├┤
  ┴└─┴ └─└─┘ ┴ ┴ ┴ ┴ └─┘
`

// noColor disables ANSI colors in command output.
var noColor = os.Getenv("NO_COLOR") != ""

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", paint("\033[31m", "Error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rxstate",
		Short: "Run and inspect reactive state scenarios",
		Long: `rxstate drives the reactive state engine from YAML scenarios.

A scenario declares atoms, undo atoms and reactions, then scripts
writes, undos and expectations against them. rxstate can:

  • Run scenarios and print a deterministic trace
  • Re-run scenarios as they change on disk
  • Serve a live dependency graph and event stream
  • Benchmark propagation over synthetic graphs`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				errors.DisableColors()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", noColor, "Disable colored output")

	rootCmd.AddCommand(
		runCmd(),
		watchCmd(),
		inspectCmd(),
		benchCmd(),
		versionCmd(),
	)

	return rootCmd
}

// loadConfig finds rxstate.json from the working directory upwards, or
// falls back to defaults.
func loadConfig() (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := config.FindProjectRoot(wd)
	if err != nil {
		return config.New(), nil
	}
	return config.Load(root)
}

// newLogger returns a text logger at debug level when verbose, and a
// logger that only reports warnings otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// printBanner prints the rxstate ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

func paint(code, text string) string {
	if noColor {
		return text
	}
	return code + text + "\033[0m"
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", paint("\033[32m", "✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", paint("\033[33m", "⚠"), fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", paint("\033[31m", "✗"), fmt.Sprintf(format, args...))
}
