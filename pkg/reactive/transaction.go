package reactive

import (
	"maps"
	"reflect"
	"slices"
)

// snapshot is a restorable copy of everything a write can touch. Values are
// copied shallowly: a T that holds pointers, maps or slices shares them with
// the snapshot.
type snapshot struct {
	keys       map[CellKey]slot
	slots      []CellKey
	containers map[reflect.Type]container
	graph      *dependencyGraph
	undoQueue  []CellKey
	stats      Stats
	budget     propagationBudget

	// pending holds the suspended flag of every record; records are shared
	// with the live store by pointer.
	pending map[*reactionRecord]bool
}

func (s *Store) snapshot() *snapshot {
	snap := &snapshot{
		keys:       maps.Clone(s.keys),
		slots:      slices.Clone(s.slots),
		containers: make(map[reflect.Type]container, len(s.containers)),
		graph:      s.graph.clone(),
		undoQueue:  slices.Clone(s.undoQueue),
		stats:      s.stats,
		budget:     s.budget,
		pending:    make(map[*reactionRecord]bool),
	}
	for t, c := range s.containers {
		snap.containers[t] = c.clone()
	}
	for _, key := range s.slots {
		if rec := s.recordOf(key); rec != nil {
			snap.pending[rec] = rec.pending
		}
	}
	return snap
}

func (s *Store) restore(snap *snapshot) {
	s.keys = snap.keys
	s.slots = snap.slots
	s.containers = snap.containers
	s.graph = snap.graph
	s.undoQueue = snap.undoQueue
	s.stats = snap.stats
	// A transaction inside a reaction body must leave the budget of the
	// enclosing pass in force.
	s.budget = snap.budget
	for rec, pending := range snap.pending {
		rec.pending = pending
	}
}

// Transaction runs fn and, if fn raises a usage fault, rolls the store back
// to its state before fn and returns the fault as an error. This closes the
// gap where a fault halfway through a propagation pass leaves some
// dependents recomputed and others stale.
//
// Panics that are not usage faults are re-raised after the rollback.
// Observers are not rolled back: they have already seen the events of the
// aborted work.
func (s *Store) Transaction(fn func()) (err error) {
	snap := s.snapshot()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		s.restore(snap)
		ue, ok := r.(*UsageError)
		if !ok {
			panic(r)
		}
		s.log.Debug("transaction rolled back",
			"store", s.id,
			"code", ue.Code,
			"op", ue.Op,
		)
		err = ue
	}()
	fn()
	return nil
}
