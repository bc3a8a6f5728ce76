package reactive

// Atom is the handle of a source cell. It is mutated only by explicit
// writes.
type Atom[T any] struct {
	cell[T]
}

// Set stores v and re-runs every dependent reaction before returning.
func (a Atom[T]) Set(v T) {
	write(a.s, a.key, v, false)
}

// InertSet stores v without notifying dependents.
func (a Atom[T]) InertSet(v T) {
	write(a.s, a.key, v, true)
}

// Update mutates the value in place, then propagates.
func (a Atom[T]) Update(fn func(*T)) {
	update(a.s, a.key, fn)
}
