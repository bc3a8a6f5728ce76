// Package reactive provides a fine-grained reactive state engine.
//
// A Store holds typed, individually addressable cells. Reactions track which
// cells they read while running, and the store re-runs them whenever one of
// those cells is written.
//
// # Core Types
//
// Atom[T] is a source cell, changed only by explicit writes:
//
//	s := reactive.New()
//	a := reactive.NewAtom(s, reactive.Key("a"), func() int { return 0 })
//	b := reactive.NewAtom(s, reactive.Key("b"), func() int { return 0 })
//
// Reaction[T] is a derived cell. Observe is a tracked read:
//
//	diff := reactive.NewReaction(s, reactive.Key("diff"), func() int {
//	    return a.Observe() - b.Observe()
//	})
//	a.Set(10)   // diff is recomputed before Set returns
//	diff.Get()  // 10
//	b.InertSet(4) // silent write: diff keeps 10
//
// AtomUndo[T] records every write so it can be reversed, per cell with Undo
// or store-wide with TravelBackwards.
//
// # Keys
//
// Cells are addressed by CellKey. Key gives named keys, StableKeyFor derives
// a key from a call site and argument tuple, and PositionKey derives one
// from the caller's source position. A key may hold values of several types;
// every access is qualified by (key, type).
//
// # Propagation
//
// A reactive write re-runs every dependent reaction, depth-first, before it
// returns. Each reaction re-records its sources on every run, so branches it
// stops reading are unwired. There is no cycle detection: a cyclic graph
// recurses until Config.MaxDepth, if set, stops it.
//
// # Faults
//
// Misuse (reading a missing cell, a tracked read outside a reaction, undo on
// a plain atom) panics with a *UsageError. Use Catch to turn a fault into an
// error, or Store.Transaction to also roll the store back.
//
// # Thread Safety
//
// A Store is single-owner and has no locks. Access it from one goroutine at
// a time.
package reactive
