package reactive

import "fmt"

// cell is the part of every accessor handle that does not depend on the
// cell kind. Handles are small values; copying one copies the reference,
// never the state.
type cell[T any] struct {
	s   *Store
	key CellKey
}

// Key returns the key the handle refers to.
func (c cell[T]) Key() CellKey {
	return c.key
}

// Store returns the store the handle belongs to.
func (c cell[T]) Store() *Store {
	return c.s
}

// Get returns a copy of the current value without tracking the read.
func (c cell[T]) Get() T {
	return Get[T](c.s, c.key)
}

// SoftGet is Get for possibly-removed cells.
func (c cell[T]) SoftGet() (T, bool) {
	return SoftGet[T](c.s, c.key)
}

// StateExists reports whether the cell currently holds a value.
func (c cell[T]) StateExists() bool {
	return Exists[T](c.s, c.key)
}

// GetWith lends the value to fn without copying it or tracking the read.
func (c cell[T]) GetWith(fn func(*T)) {
	ReadWith(c.s, c.key, fn)
}

// Observe returns the value and subscribes the running reaction to it.
func (c cell[T]) Observe() T {
	return Observe[T](c.s, c.key)
}

// ObserveWith lends the value to fn and subscribes the running reaction, if
// any, to it.
func (c cell[T]) ObserveWith(fn func(*T)) {
	ObserveWith(c.s, c.key, fn)
}

// OnUpdate subscribes the running reaction to the cell and calls fn. Used
// inside a reaction body, fn runs every time the cell changes.
func (c cell[T]) OnUpdate(fn func()) {
	c.ObserveWith(func(*T) {})
	fn()
}

// ResetToDefault re-runs the cell's initializer (or reaction body) and
// propagates the result.
func (c cell[T]) ResetToDefault() {
	rec := c.s.recordOf(c.key)
	if rec == nil {
		c.s.fault("reset_to_default", c.key, typeName[T](), ErrNoReaction)
	}
	c.s.ForceTrigger(c.key)
}

// Remove takes the value out of the store. The cell's record and graph
// edges stay; re-running its constructor re-initializes it. Undo history is
// discarded with the value.
func (c cell[T]) Remove() (T, bool) {
	v, ok := Remove[T](c.s, c.key)
	if rec := c.s.recordOf(c.key); rec != nil && rec.clearUndo != nil {
		rec.clearUndo()
	}
	return v, ok
}

// Delete removes the value, discarding it.
func (c cell[T]) Delete() {
	c.Remove()
}

// String formats the current value, or "<missing>" when there is none.
func (c cell[T]) String() string {
	v, ok := c.SoftGet()
	if !ok {
		return "<missing>"
	}
	return fmt.Sprint(v)
}

// notifyWrite accounts for a write made through a handle.
func (s *Store) notifyWrite(key CellKey, typ string, silent bool) {
	if silent {
		s.stats.SilentWrites++
	} else {
		s.stats.Writes++
	}
	s.obs.OnWrite(WriteEvent{Store: s.id, Key: key, Type: typ, Silent: silent})
}

// write stores v under key and, unless silent, propagates.
func write[T any](s *Store, key CellKey, v T, silent bool) {
	Set(s, key, v)
	s.notifyWrite(key, typeName[T](), silent)
	if !silent {
		s.propagate(key)
	}
}

// update mutates the value under key in place and propagates.
func update[T any](s *Store, key CellKey, fn func(*T)) {
	UpdateWith(s, key, fn)
	s.notifyWrite(key, typeName[T](), false)
	s.propagate(key)
}
