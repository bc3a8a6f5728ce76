package reactive

// AtomUndo is the handle of an undo-enabled source cell. Every write records
// the value it replaces, both in the cell's own history and on the store's
// global undo queue.
type AtomUndo[T any] struct {
	cell[T]
}

// Set records the current value, stores v and propagates.
func (a AtomUndo[T]) Set(v T) {
	pushUndo[T](a.s, a.key, "set")
	write(a.s, a.key, v, false)
}

// InertSet records the current value and stores v without propagating.
func (a AtomUndo[T]) InertSet(v T) {
	pushUndo[T](a.s, a.key, "inert_set")
	write(a.s, a.key, v, true)
}

// Update records the current value, mutates it in place and propagates.
func (a AtomUndo[T]) Update(fn func(*T)) {
	pushUndo[T](a.s, a.key, "update")
	update(a.s, a.key, fn)
}

// Undo reinstates the value replaced by the most recent write and
// propagates. It reports false, changing nothing, once only the initial
// value is left.
func (a AtomUndo[T]) Undo() bool {
	return undoCell[T](a.s, a.key, false)
}

// History returns a copy of the undo history, oldest first. The first entry
// is the initial value. Entries are cloned like the history itself.
func (a AtomUndo[T]) History() []T {
	hist, ok := SoftGet[UndoHistory[T]](a.s, a.key)
	if !ok {
		return nil
	}
	rec := a.s.recordOf(a.key)
	out := make([]T, len(hist.Values))
	for i, v := range hist.Values {
		out[i] = cloneValue(rec, v)
	}
	return out
}
