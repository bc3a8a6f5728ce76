// Package scenario runs scripted checks against a reactive store.
//
// A scenario declares cells and a list of steps in YAML. The runner builds
// a fresh store, registers the cells in order, runs the steps and records
// a deterministic trace of every recompute, prune, undo and fault.
//
// # Scenario Format
//
//	name: diff
//	description: diff follows a - b
//	lang: expr                 # expr | cel | js (js needs -tags js_eval)
//	engine:
//	  skip_unchanged: true
//	cells:
//	  - {name: a, kind: atom, init: 0}
//	  - {name: b, kind: undo, init: 0}
//	  - {name: diff, kind: reaction, expr: 'get("a") - get("b")'}
//	steps:
//	  - {op: set, cell: a, value: 10}
//	  - {op: expect, values: {diff: 10}}
//	  - {op: expect_fault, code: R009, do: {op: set, cell: diff, value: 1}}
//
// # Reaction Expressions
//
// Expressions read other cells with get("name"), which subscribes the
// reaction to the cell, or peek("name"), which does not.
//
// # Operations
//
//   - set, inert_set: write value to cell, with or without propagation
//   - undo: reverse the last write to an undo cell
//   - travel_backwards: reverse the last undo-enabled write to any cell
//   - reset: re-run the cell's initializer or body
//   - trigger: re-run a reaction and propagate
//   - remove: take the cell's value out of the store
//   - expect: compare cell values; null expects no value
//   - expect_fault: run the do step in a transaction and require a fault
package scenario
