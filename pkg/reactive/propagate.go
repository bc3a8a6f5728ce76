package reactive

import "time"

// recompute runs rec for key and reports whether the value changed.
func (s *Store) recompute(key CellKey, rec *reactionRecord) bool {
	if err := s.budget.spend(); err != nil {
		s.fault("propagate", key, rec.typ, err)
	}
	rec.pending = false
	start := time.Now()
	changed := rec.run()
	s.stats.Recomputes++
	s.obs.OnRecompute(RecomputeEvent{
		Store:    s.id,
		Key:      key,
		Depth:    s.budget.depth,
		Changed:  changed,
		Duration: time.Since(start),
	})
	return changed
}

// propagate re-runs every reaction transitively depending on key. It returns
// once the whole pass has completed.
func (s *Store) propagate(key CellKey) {
	sl, ok := s.keys[key]
	if !ok {
		return
	}
	s.budget.begin()
	defer s.budget.end()
	s.propagateFrom(sl, false)
}

type pendingRun struct {
	slot slot
	key  CellKey
	rec  *reactionRecord
}

// propagateFrom visits the dependents of src depth-first in insertion
// order. The dependents and their records are captured before any of them
// runs, so edges rewired by a run only affect later passes.
//
// With alwaysRunOnly set, only dependents marked AlwaysRun are re-run; this
// is how change cutoff still reaches effectful reactions.
func (s *Store) propagateFrom(src slot, alwaysRunOnly bool) {
	deps := s.graph.dependents(src)
	if len(deps) == 0 {
		return
	}

	if err := s.budget.descend(); err != nil {
		s.fault("propagate", s.slots[src], "", err)
	}
	defer s.budget.ascend()

	s.stats.Propagations++
	s.obs.OnPropagate(PropagateEvent{
		Store:      s.id,
		Source:     s.slots[src],
		Depth:      s.budget.depth,
		Dependents: len(deps),
	})

	runs := make([]pendingRun, 0, len(deps))
	for _, dep := range deps {
		key := s.slots[dep]
		rec := s.recordOf(key)
		if rec == nil {
			s.fault("propagate", key, "", ErrNoReaction)
		}
		runs = append(runs, pendingRun{slot: dep, key: key, rec: rec})
	}

	for _, r := range runs {
		if alwaysRunOnly && !r.rec.alwaysRun {
			continue
		}
		changed := s.recompute(r.key, r.rec)
		s.propagateFrom(r.slot, s.cfg.SkipUnchanged && !changed)
	}
}

// ForceTrigger re-runs the reaction or initializer registered under key and
// propagates, whether or not anything upstream changed.
func (s *Store) ForceTrigger(key CellKey) {
	rec := s.recordOf(key)
	if rec == nil {
		s.fault("force_trigger", key, "", ErrNoReaction)
	}
	s.budget.begin()
	defer s.budget.end()
	s.recompute(key, rec)
	s.propagateFrom(s.keys[key], false)
}
