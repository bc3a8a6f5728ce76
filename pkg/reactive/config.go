package reactive

import (
	"log/slog"
)

// Config holds store-wide behavior. Build it with Option values passed to New.
type Config struct {
	// ID identifies the store in observer events and logs.
	// Default: a random UUID.
	ID string

	// Logger receives the store's own diagnostics (faults, rollbacks).
	// Default: slog.Default().
	Logger *slog.Logger

	// Observers receive engine events. Default: none.
	Observers []Observer

	// SkipUnchanged stops propagation below a dependent whose recomputed
	// value equals its previous value. Dependents marked AlwaysRun are still
	// re-run when a pass reaches them.
	// Default: false (every reachable dependent re-runs).
	SkipUnchanged bool

	// MaxDepth bounds propagation recursion. 0 means unbounded.
	// This is not cycle detection; a cyclic graph still faults, only later.
	MaxDepth int

	// MaxRecomputes bounds how many reactions a single write may re-run.
	// 0 means unbounded.
	MaxRecomputes int

	// MaxKeyProbes bounds secondary probing in StableKeyFor.
	// Default: 16.
	MaxKeyProbes int
}

// Option configures a Store.
type Option func(*Config)

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		Logger:       slog.Default(),
		MaxKeyProbes: 16,
	}
}

// WithID sets the store identifier.
func WithID(id string) Option {
	return func(c *Config) {
		c.ID = id
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithObserver attaches observers. Observers are notified in the order given.
func WithObserver(obs ...Observer) Option {
	return func(c *Config) {
		for _, o := range obs {
			if o != nil {
				c.Observers = append(c.Observers, o)
			}
		}
	}
}

// WithSkipUnchanged enables change cutoff during propagation.
func WithSkipUnchanged(skip bool) Option {
	return func(c *Config) {
		c.SkipUnchanged = skip
	}
}

// WithMaxDepth sets the propagation depth budget.
func WithMaxDepth(depth int) Option {
	return func(c *Config) {
		c.MaxDepth = depth
	}
}

// WithMaxRecomputes sets the per-write recompute budget.
func WithMaxRecomputes(n int) Option {
	return func(c *Config) {
		c.MaxRecomputes = n
	}
}

// WithKeyProbes sets how many slots StableKeyFor probes on a hash collision.
func WithKeyProbes(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxKeyProbes = n
		}
	}
}

// CellOption configures a single atom or reaction at construction.
type CellOption func(*cellOptions)

type cellOptions struct {
	alwaysRun bool
	suspended bool
	inverse   func(any)
	clone     func(any) any
}

// AlwaysRun marks a reaction as effectful: with SkipUnchanged enabled it is
// re-run on every propagation pass that reaches it, even when none of its
// sources changed value.
func AlwaysRun() CellOption {
	return func(o *cellOptions) {
		o.alwaysRun = true
	}
}

// Suspended registers a reaction without running it. It has no value and no
// sources until ForceTrigger (or a propagation reaching an edge added with
// AddDependency) runs it.
func Suspended() CellOption {
	return func(o *cellOptions) {
		o.suspended = true
	}
}

// WithInverse makes a reaction writable: Set on the reaction calls fn, which
// is expected to write the reaction's sources.
//
// Example:
//
//	celsius := reactive.NewAtom(s, reactive.Key("celsius"), func() float64 { return 0 })
//	fahrenheit := reactive.NewReaction(s, reactive.Key("fahrenheit"),
//	    func() float64 { return celsius.Observe()*9/5 + 32 },
//	    reactive.WithInverse(func(f float64) { celsius.Set((f - 32) * 5 / 9) }),
//	)
//	fahrenheit.Set(212) // celsius is now 100
func WithInverse[T any](fn func(T)) CellOption {
	return func(o *cellOptions) {
		o.inverse = func(v any) { fn(v.(T)) }
	}
}

func applyCellOptions(opts []CellOption) cellOptions {
	var options cellOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}
