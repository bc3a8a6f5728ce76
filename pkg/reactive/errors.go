package reactive

import (
	"errors"
	"fmt"
)

// =============================================================================
// Usage Faults
// =============================================================================
//
// A usage fault is a programming error: the store panics with a *UsageError
// at the point of occurrence. Callers that want to branch on a fault (tests,
// the scenario runner, Transaction) recover it and inspect it with errors.Is.

// ErrCellMissing is raised when a cell is read or updated but holds no value
// of the requested type.
var ErrCellMissing = errors.New("reactive: cell holds no value of this type")

// ErrNoContext is raised when a tracked read (Observe) happens outside any
// running reaction. Use Get or Peek for untracked reads.
var ErrNoContext = errors.New("reactive: tracked read outside a reaction")

// ErrNotUndoable is raised when undo is requested for a cell that was not
// created with NewAtomUndo.
var ErrNotUndoable = errors.New("reactive: cell has no undo history")

// ErrKeyCollision is raised when StableKeyFor exhausts its probe budget
// without finding a free slot or an equal seed.
var ErrKeyCollision = errors.New("reactive: stable key collision")

// ErrCheckedOut is raised when a (key, type) pair is accessed while it is
// checked out by ReadWith or UpdateWith.
var ErrCheckedOut = errors.New("reactive: cell is checked out")

// ErrUnknownKey is raised when the dependency graph is asked about a key
// that was never registered in the store.
var ErrUnknownKey = errors.New("reactive: key is not registered")

// ErrNoAdjacency is raised when removing a dependency from a source that has
// no adjacency list.
var ErrNoAdjacency = errors.New("reactive: source has no dependents list")

// ErrNoReaction is raised when a dependent in the graph has no registered
// recomputation callback.
var ErrNoReaction = errors.New("reactive: dependent has no reaction")

// ErrReadOnly is raised when a reaction without an inverse is written to.
var ErrReadOnly = errors.New("reactive: reaction has no inverse and cannot be written")

// ErrPropagationDepth is raised when a propagation pass recurses deeper than
// Config.MaxDepth. Cycles are not detected; this budget only bounds them.
var ErrPropagationDepth = errors.New("reactive: propagation depth budget exceeded")

// ErrBudgetExceeded is raised when a single write triggers more
// recomputations than Config.MaxRecomputes allows.
var ErrBudgetExceeded = errors.New("reactive: recompute budget exceeded")

// Fault codes. They are stable and map to the explanations in the CLI's
// error registry.
const (
	CodeCellMissing      = "R001"
	CodeNoContext        = "R002"
	CodeNotUndoable      = "R003"
	CodeKeyCollision     = "R004"
	CodeCheckedOut       = "R005"
	CodeUnknownKey       = "R006"
	CodeNoAdjacency      = "R007"
	CodeNoReaction       = "R008"
	CodeReadOnly         = "R009"
	CodePropagationDepth = "R010"
	CodeBudgetExceeded   = "R011"
)

var faultCodes = map[error]string{
	ErrCellMissing:      CodeCellMissing,
	ErrNoContext:        CodeNoContext,
	ErrNotUndoable:      CodeNotUndoable,
	ErrKeyCollision:     CodeKeyCollision,
	ErrCheckedOut:       CodeCheckedOut,
	ErrUnknownKey:       CodeUnknownKey,
	ErrNoAdjacency:      CodeNoAdjacency,
	ErrNoReaction:       CodeNoReaction,
	ErrReadOnly:         CodeReadOnly,
	ErrPropagationDepth: CodePropagationDepth,
	ErrBudgetExceeded:   CodeBudgetExceeded,
}

// UsageError is the panic value of every usage fault.
type UsageError struct {
	Code string  // stable fault code, e.g. "R001"
	Op   string  // operation that faulted, e.g. "get"
	Key  CellKey // key involved, zero if none
	Type string  // value type involved, empty if none
	Err  error   // one of the Err* sentinels
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	msg := e.Err.Error()
	if e.Type != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Type)
	}
	if e.Key.IsZero() {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Key, msg)
}

// Unwrap returns the sentinel for errors.Is support.
func (e *UsageError) Unwrap() error {
	return e.Err
}

func newUsageError(op string, key CellKey, typ string, err error) *UsageError {
	return &UsageError{
		Code: faultCodes[err],
		Op:   op,
		Key:  key,
		Type: typ,
		Err:  err,
	}
}

// Catch runs fn and converts a usage fault into an error. Other panics are
// re-raised. Nothing is rolled back; see Store.Transaction for that.
func Catch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ue, ok := r.(*UsageError)
			if !ok {
				panic(r)
			}
			err = ue
		}
	}()
	fn()
	return nil
}

// IsFault reports whether err is (or wraps) a usage fault.
func IsFault(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}
