package errors

import (
	"sort"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Usage Faults (R001-R099)
	// ============================================

	reactive.CodeCellMissing: {
		Category:   CategoryFault,
		Message:    "Cell holds no value of the requested type",
		Detail:     "A cell was read or updated, but nothing of that type is stored under its key. Cells are typed: a key written as int has no string value.",
		Suggestion: "Create the cell with NewAtom or NewReaction before reading it, or use SoftGet.",
	},
	reactive.CodeNoContext: {
		Category:   CategoryFault,
		Message:    "Tracked read outside a reaction",
		Detail:     "Observe subscribes the running reaction to a cell. Outside a reaction body there is nothing to subscribe.",
		Suggestion: "Use Get for untracked reads, or move the read into a reaction body.",
	},
	reactive.CodeNotUndoable: {
		Category:   CategoryFault,
		Message:    "Cell has no undo history",
		Detail:     "Undo and TravelBackwards only work on cells created with NewAtomUndo.",
		Suggestion: "Create the cell with NewAtomUndo (kind: undo in scenario files).",
	},
	reactive.CodeKeyCollision: {
		Category:   CategoryFault,
		Message:    "Stable key collision",
		Detail:     "Two different call-site seeds hashed to the same key, and every probe slot is taken.",
		Suggestion: "Raise WithKeyProbes, or make the call-site identifier more specific.",
	},
	reactive.CodeCheckedOut: {
		Category:   CategoryFault,
		Message:    "Cell is checked out",
		Detail:     "The cell is lent to a ReadWith or UpdateWith callback. Accessing it again before the callback returns is not allowed, including from reactions the callback triggers.",
		Suggestion: "Copy what you need out of the callback and act on it after ReadWith returns.",
	},
	reactive.CodeUnknownKey: {
		Category:   CategoryFault,
		Message:    "Key is not registered",
		Detail:     "A dependency edge was requested for a key that has never been written.",
		Suggestion: "Register both cells before wiring them.",
	},
	reactive.CodeNoAdjacency: {
		Category:   CategoryFault,
		Message:    "Source has no dependents list",
		Detail:     "RemoveDependency was called on a source that never had a dependent.",
		Suggestion: "Only remove edges that were added.",
	},
	reactive.CodeNoReaction: {
		Category:   CategoryFault,
		Message:    "Dependent has no reaction",
		Detail:     "A key wired as a dependent has no registered reaction to re-run.",
		Suggestion: "Wire dependents with NewReaction rather than by hand.",
	},
	reactive.CodeReadOnly: {
		Category:   CategoryFault,
		Message:    "Reaction is read-only",
		Detail:     "A reaction was written to, but it has no inverse that maps the value back to its sources.",
		Suggestion: "Pass WithInverse when creating the reaction, or write its sources instead.",
	},
	reactive.CodePropagationDepth: {
		Category:   CategoryFault,
		Message:    "Propagation depth budget exceeded",
		Detail:     "A write recursed deeper than the configured maximum depth. This usually means the dependency graph has a cycle.",
		Suggestion: "Break the cycle, or raise max_depth if the graph is legitimately deep.",
	},
	reactive.CodeBudgetExceeded: {
		Category:   CategoryFault,
		Message:    "Recompute budget exceeded",
		Detail:     "A single write re-ran more reactions than the configured maximum.",
		Suggestion: "Enable skip_unchanged to cut off unchanged branches, or raise the budget.",
	},

	// ============================================
	// Scenario Errors (S001-S099)
	// ============================================

	"S001": {
		Category:   CategoryScenario,
		Message:    "Invalid scenario file",
		Detail:     "The scenario file could not be parsed as YAML.",
		Suggestion: "Check indentation and quoting.",
	},
	"S002": {
		Category:   CategoryScenario,
		Message:    "Unknown cell",
		Detail:     "A step refers to a cell that is not declared under cells.",
		Suggestion: "Declare the cell, or fix the name.",
	},
	"S003": {
		Category:   CategoryScenario,
		Message:    "Unknown operation",
		Detail:     "Supported ops are set, inert_set, undo, travel_backwards, reset, trigger, remove, expect and expect_fault.",
	},
	"S004": {
		Category:   CategoryScenario,
		Message:    "Expression failed to compile",
		Detail:     "A reaction expression could not be compiled by its evaluator.",
		Suggestion: "Reactions read other cells with get(\"name\").",
	},
	"S005": {
		Category:   CategoryScenario,
		Message:    "Expectation failed",
		Detail:     "A cell did not hold the expected value.",
	},
	"S006": {
		Category:   CategoryScenario,
		Message:    "Unsupported evaluator language",
		Detail:     "Supported languages are expr and cel. js requires a build with the js_eval tag.",
	},

	// ============================================
	// Config Errors (C001-C099)
	// ============================================

	"C001": {
		Category:   CategoryConfig,
		Message:    "Invalid rxstate.json",
		Detail:     "The configuration file is not valid JSON or holds an unknown value.",
		Suggestion: "Run with no config file to use defaults.",
	},

	// ============================================
	// CLI Errors (X001-X099)
	// ============================================

	"X001": {
		Category:   CategoryCLI,
		Message:    "No scenario files matched",
		Suggestion: "Check the glob pattern, e.g. 'scenarios/**/*.yaml'.",
	},
	"X002": {
		Category: CategoryCLI,
		Message:  "Scenario run failed",
	},
}

// Lookup returns the template for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns every registered code, sorted.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
