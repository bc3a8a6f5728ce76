package reactive

// lastSeen is the value a change helper saw on its previous call. It is
// stored under a positional key derived from the helper's call site, so two
// call sites watching the same cell keep separate baselines.
type lastSeen[T any] struct {
	Value T
}

// observeChange compares the cell's current value with the one recorded at
// the caller's position. skip counts frames between observeChange and the
// user code whose position identifies the baseline.
//
// The first call at a position records a baseline and reports no change.
func (c cell[T]) observeChange(skip int) (prev, cur T, changed bool) {
	memo := callerKey(c.s, skip, c.key.String())
	c.ObserveWith(func(v *T) {
		cur = *v
	})

	seen, ok := SoftGet[lastSeen[T]](c.s, memo)
	if !ok {
		Set(c.s, memo, lastSeen[T]{Value: cur})
		return prev, cur, false
	}
	if defaultEquals(seen.Value, cur) {
		return seen.Value, cur, false
	}
	Set(c.s, memo, lastSeen[T]{Value: cur})
	return seen.Value, cur, true
}

// HasChanged reports whether the value differs from the one seen the last
// time this call site asked. The read is tracked inside a reaction.
func (c cell[T]) HasChanged() bool {
	_, _, changed := c.observeChange(2)
	return changed
}

// ObserveChange returns the value last seen at this call site, the current
// value, and whether they differ. On the first call prev is the zero value
// and changed is false.
func (c cell[T]) ObserveChange() (prev, cur T, changed bool) {
	return c.observeChange(2)
}

// OnChange calls fn with the previous and current value when the value
// differs from the one seen the last time this call site ran.
func (c cell[T]) OnChange(fn func(prev, cur T)) {
	prev, cur, changed := c.observeChange(2)
	if changed {
		fn(prev, cur)
	}
}
