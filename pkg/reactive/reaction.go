package reactive

// Reaction is the handle of a derived cell. Its value is recomputed whenever
// a cell it observed during its last run changes.
type Reaction[T any] struct {
	cell[T]
}

// ForceTrigger re-runs the reaction and propagates, even if nothing it reads
// has changed. It is also how a Suspended reaction gets its first value.
func (r Reaction[T]) ForceTrigger() {
	r.s.ForceTrigger(r.key)
}

// Pending reports whether the reaction is suspended and has never run.
func (r Reaction[T]) Pending() bool {
	rec := r.s.recordOf(r.key)
	return rec != nil && rec.pending
}

// Set writes through the reaction's inverse, which updates its sources; the
// reaction then recomputes through normal propagation. It faults with
// ErrReadOnly when the reaction was built without WithInverse.
func (r Reaction[T]) Set(v T) {
	rec := r.s.recordOf(r.key)
	if rec == nil || rec.inverse == nil {
		r.s.fault("set", r.key, typeName[T](), ErrReadOnly)
	}
	rec.inverse(v)
}

// Update applies fn to a copy of the current value and writes the result
// through the inverse, like Set.
func (r Reaction[T]) Update(fn func(*T)) {
	v := r.Get()
	fn(&v)
	r.Set(v)
}

// InertSet overwrites the reaction's stored value without propagating. The
// next recomputation replaces it.
func (r Reaction[T]) InertSet(v T) {
	write(r.s, r.key, v, true)
}
