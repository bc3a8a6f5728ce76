package reactive

// =============================================================================
// Propagation Budgets
// =============================================================================
//
// Propagation has no cycle detection. The budgets below only bound the damage
// an accidental cycle or a runaway fan-out can do: once exceeded, the write
// that started the pass faults instead of recursing without end.

// propagationBudget tracks depth and recompute counts for the propagation
// pass in progress. Nested passes (writes made from inside a reaction body)
// share the budget of the outermost write.
type propagationBudget struct {
	maxDepth      int
	maxRecomputes int

	active     int // nesting level of propagate calls
	depth      int // current recursion depth across nested passes
	recomputes int // reactions re-run by the outermost write so far
	peakDepth  int
}

func newPropagationBudget(maxDepth, maxRecomputes int) propagationBudget {
	return propagationBudget{
		maxDepth:      maxDepth,
		maxRecomputes: maxRecomputes,
	}
}

// begin marks the start of a propagate call. The outermost call resets the
// counters.
func (b *propagationBudget) begin() {
	if b.active == 0 {
		b.depth = 0
		b.recomputes = 0
	}
	b.active++
}

// end marks the end of a propagate call.
func (b *propagationBudget) end() {
	b.active--
	if b.active < 0 {
		b.active = 0
	}
}

// descend enters one more level of recursion.
// Returns ErrPropagationDepth if the depth budget is exhausted.
func (b *propagationBudget) descend() error {
	b.depth++
	if b.depth > b.peakDepth {
		b.peakDepth = b.depth
	}
	if b.maxDepth > 0 && b.depth > b.maxDepth {
		return ErrPropagationDepth
	}
	return nil
}

// ascend leaves one level of recursion.
func (b *propagationBudget) ascend() {
	if b.depth > 0 {
		b.depth--
	}
}

// spend accounts for one reaction run.
// Returns ErrBudgetExceeded if the recompute budget is exhausted.
func (b *propagationBudget) spend() error {
	if b.active == 0 {
		return nil
	}
	b.recomputes++
	if b.maxRecomputes > 0 && b.recomputes > b.maxRecomputes {
		return ErrBudgetExceeded
	}
	return nil
}

