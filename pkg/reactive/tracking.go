package reactive

// ReactiveContext records what a running reaction reads. The engine pushes
// a fresh context before every reaction body and pops it afterwards; nested
// reactions triggered during a body get their own context.
type ReactiveContext struct {
	// Owner is the key of the reaction being computed.
	Owner CellKey

	// ReadKeys lists the keys observed so far, in first-read order.
	ReadKeys []CellKey

	// AlwaysRun mirrors the owner's AlwaysRun option.
	AlwaysRun bool
}

// reads reports whether key is already in the read set.
func (c *ReactiveContext) reads(key CellKey) bool {
	for _, k := range c.ReadKeys {
		if k == key {
			return true
		}
	}
	return false
}

// CurrentContext returns the context of the reaction currently executing,
// or nil outside any reaction.
func (s *Store) CurrentContext() *ReactiveContext {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

// pushContext starts tracking reads on behalf of owner.
func (s *Store) pushContext(owner CellKey, alwaysRun bool) *ReactiveContext {
	ctx := &ReactiveContext{Owner: owner, AlwaysRun: alwaysRun}
	s.stack = append(s.stack, ctx)
	return ctx
}

// popContext ends the innermost context.
func (s *Store) popContext() *ReactiveContext {
	n := len(s.stack)
	if n == 0 {
		return nil
	}
	ctx := s.stack[n-1]
	s.stack[n-1] = nil
	s.stack = s.stack[:n-1]
	return ctx
}

// withContext runs fn with a fresh context for owner and returns the
// context holding everything fn read. The context is popped even if fn
// panics.
func (s *Store) withContext(owner CellKey, alwaysRun bool, fn func()) *ReactiveContext {
	ctx := s.pushContext(owner, alwaysRun)
	defer s.popContext()
	fn()
	return ctx
}

// track wires key into the active context.
func (s *Store) track(ctx *ReactiveContext, key CellKey) {
	if !ctx.reads(key) {
		ctx.ReadKeys = append(ctx.ReadKeys, key)
	}
	s.AddDependency(key, ctx.Owner)
}

// Observe is a tracked read: it returns the T stored under key and wires key
// as a source of the reaction currently executing. It faults with
// ErrNoContext outside a reaction; use Get for untracked reads.
func Observe[T any](s *Store, key CellKey) T {
	ctx := s.CurrentContext()
	if ctx == nil {
		s.fault("observe", key, typeName[T](), ErrNoContext)
	}
	v := Get[T](s, key)
	s.track(ctx, key)
	return v
}

// ObserveWith lends the T stored under key to fn, tracking the read when a
// reaction is executing. Outside a reaction it is a plain ReadWith.
func ObserveWith[T any](s *Store, key CellKey, fn func(*T)) {
	ReadWith(s, key, fn)
	if ctx := s.CurrentContext(); ctx != nil {
		s.track(ctx, key)
	}
}

// pruneDeadLinks removes the edges owner no longer exercises: every source
// read by the previous run but not by ctx. The new read set is then stored
// under owner for the next comparison.
func (s *Store) pruneDeadLinks(ctx *ReactiveContext) {
	prev, ok := SoftGet[ReactiveContext](s, ctx.Owner)
	if ok {
		for _, src := range prev.ReadKeys {
			if ctx.reads(src) {
				continue
			}
			s.RemoveDependency(src, ctx.Owner)
			s.obs.OnPrune(PruneEvent{Store: s.id, Owner: ctx.Owner, Source: src})
		}
	}
	Set(s, ctx.Owner, ReactiveContext{
		Owner:     ctx.Owner,
		ReadKeys:  append([]CellKey(nil), ctx.ReadKeys...),
		AlwaysRun: ctx.AlwaysRun,
	})
}
