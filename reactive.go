// Package reactive provides the public API for the rxstate reactive state
// engine.
//
// This is the recommended import for most applications:
//
//	import "github.com/vango-dev/reactive"
//
// Usage:
//
//	s := reactive.New(reactive.WithSkipUnchanged(true))
//	count := reactive.NewAtom(s, reactive.Key("count"), func() int { return 0 })
//	double := reactive.NewReaction(s, reactive.Key("double"), func() int {
//	    return count.Observe() * 2
//	})
//	count.Set(21) // double.Get() == 42
//
// Observability lives in pkg/middleware, the HTTP inspector in pkg/devtools
// and the scenario runner in pkg/scenario.
package reactive

import (
	core "github.com/vango-dev/reactive/pkg/reactive"
)

// =============================================================================
// Store
// =============================================================================

// Store holds every cell, the dependency graph and undo state.
type Store = core.Store

// Config holds store-wide behavior.
type Config = core.Config

// Option configures a Store.
type Option = core.Option

// New creates an empty store.
func New(opts ...Option) *Store {
	return core.New(opts...)
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return core.DefaultConfig()
}

var (
	WithID            = core.WithID
	WithLogger        = core.WithLogger
	WithObserver      = core.WithObserver
	WithSkipUnchanged = core.WithSkipUnchanged
	WithMaxDepth      = core.WithMaxDepth
	WithMaxRecomputes = core.WithMaxRecomputes
	WithKeyProbes     = core.WithKeyProbes
)

// =============================================================================
// Keys
// =============================================================================

// CellKey addresses a cell.
type CellKey = core.CellKey

// KeyKind tells how a CellKey was derived.
type KeyKind = core.KeyKind

const (
	KindNamed      = core.KindNamed
	KindHashed     = core.KindHashed
	KindPositional = core.KindPositional
)

// Key returns the named key for name.
func Key(name string) CellKey {
	return core.Key(name)
}

// StableKeyFor derives a deterministic key from a call-site identifier and
// an argument tuple.
func StableKeyFor(s *Store, callSite string, args ...any) CellKey {
	return core.StableKeyFor(s, callSite, args...)
}

// PositionKey returns a key identifying the caller's source position,
// scoped to the running reaction.
func PositionKey(s *Store) CellKey {
	return core.CallerKey(s, 1)
}

// =============================================================================
// Cells
// =============================================================================

// Atom is a source cell changed only by explicit writes.
type Atom[T any] = core.Atom[T]

// AtomUndo is an atom that records its writes for undo.
type AtomUndo[T any] = core.AtomUndo[T]

// Reaction is a derived cell re-run when a tracked source changes.
type Reaction[T any] = core.Reaction[T]

// UndoHistory is the per-cell undo stack of an AtomUndo.
type UndoHistory[T any] = core.UndoHistory[T]

// CellOption configures a single cell at construction.
type CellOption = core.CellOption

// NewAtom registers an atom under key, running init if it holds no value.
func NewAtom[T any](s *Store, key CellKey, init func() T, opts ...CellOption) Atom[T] {
	return core.NewAtom(s, key, init, opts...)
}

// NewAtomUndo registers an undo-enabled atom under key.
func NewAtomUndo[T any](s *Store, key CellKey, init func() T, opts ...CellOption) AtomUndo[T] {
	return core.NewAtomUndo(s, key, init, opts...)
}

// NewReaction registers a reaction under key and runs it once.
func NewReaction[T any](s *Store, key CellKey, body func() T, opts ...CellOption) Reaction[T] {
	return core.NewReaction(s, key, body, opts...)
}

// Computed is NewReaction under its alternative name.
func Computed[T any](s *Store, key CellKey, body func() T, opts ...CellOption) Reaction[T] {
	return core.Computed(s, key, body, opts...)
}

// WithInverse makes a reaction writable through fn.
func WithInverse[T any](fn func(T)) CellOption {
	return core.WithInverse(fn)
}

// Cloner is implemented by values that copy themselves for undo history.
type Cloner[T any] = core.Cloner[T]

// WithClone sets how an undo-enabled atom snapshots its values.
func WithClone[T any](fn func(T) T) CellOption {
	return core.WithClone(fn)
}

var (
	AlwaysRun = core.AlwaysRun
	Suspended = core.Suspended
)

// =============================================================================
// Keyed access
// =============================================================================

// Set writes v under key and propagates.
func Set[T any](s *Store, key CellKey, v T) { core.Set(s, key, v) }

// Get reads the value of type T under key without tracking.
func Get[T any](s *Store, key CellKey) T { return core.Get[T](s, key) }

// SoftGet is Get that reports a missing value instead of faulting.
func SoftGet[T any](s *Store, key CellKey) (T, bool) { return core.SoftGet[T](s, key) }

// Exists reports whether key holds a value of type T.
func Exists[T any](s *Store, key CellKey) bool { return core.Exists[T](s, key) }

// Remove takes the value of type T out of the store.
func Remove[T any](s *Store, key CellKey) (T, bool) { return core.Remove[T](s, key) }

// Observe is a tracked read from inside a reaction.
func Observe[T any](s *Store, key CellKey) T { return core.Observe[T](s, key) }

// ReadWith lends the value under key to fn without copying it.
func ReadWith[T any](s *Store, key CellKey, fn func(*T)) { core.ReadWith(s, key, fn) }

// UpdateWith mutates the value under key in place. It does not propagate.
func UpdateWith[T any](s *Store, key CellKey, fn func(*T)) { core.UpdateWith(s, key, fn) }

// =============================================================================
// Undo
// =============================================================================

// TravelBackwards reverses the most recent undo-enabled write in the store.
func TravelBackwards(s *Store) bool { return core.TravelBackwards(s) }

// UndoDepth returns the number of entries in the store-wide undo queue.
func UndoDepth(s *Store) int { return core.UndoDepth(s) }

// =============================================================================
// Faults and observers
// =============================================================================

// UsageError is the panic value of a usage fault.
type UsageError = core.UsageError

// Observer receives engine events.
type Observer = core.Observer

// NopObserver implements Observer with no-ops; embed it.
type NopObserver = core.NopObserver

// Stats counts engine work.
type Stats = core.Stats

// Catch runs fn and returns its usage fault as an error.
func Catch(fn func()) error { return core.Catch(fn) }

// IsFault reports whether err wraps a usage fault.
func IsFault(err error) bool { return core.IsFault(err) }
