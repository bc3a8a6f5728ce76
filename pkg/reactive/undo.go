package reactive

import "slices"

// UndoHistory holds the prior values of an undo-enabled cell, most recent
// last. It is seeded with the initial value and never popped below one
// entry.
type UndoHistory[T any] struct {
	Values []T
}

// Len returns the number of entries, including the seed.
func (h UndoHistory[T]) Len() int {
	return len(h.Values)
}

// pushUndo records a clone of the current value of key before it is
// replaced and appends key to the global undo queue. The clone keeps
// in-place updates from reaching the recorded entry.
func pushUndo[T any](s *Store, key CellKey, op string) {
	hist, ok := SoftGet[UndoHistory[T]](s, key)
	if !ok {
		s.fault(op, key, typeName[T](), ErrNotUndoable)
	}
	cur := cloneValue(s.recordOf(key), Get[T](s, key))
	// Clip so the append never writes into an array shared with a snapshot.
	hist.Values = append(slices.Clip(hist.Values), cur)
	Set(s, key, hist)
	s.undoQueue = append(s.undoQueue, key)
}

// undoCell reinstates the most recent history entry of key and propagates.
// A call on a history holding only its seed is a no-op. Unless fromQueue is
// set, the most recent global queue entry for key is dropped as well.
func undoCell[T any](s *Store, key CellKey, fromQueue bool) bool {
	hist, ok := SoftGet[UndoHistory[T]](s, key)
	if !ok {
		s.fault("undo", key, typeName[T](), ErrNotUndoable)
	}
	if !fromQueue {
		s.dropLastQueueEntry(key)
	}
	n := len(hist.Values)
	if n <= 1 {
		return false
	}
	prev := hist.Values[n-1]
	hist.Values = slices.Clip(hist.Values[:n-1])
	Set(s, key, hist)
	Set(s, key, prev)

	s.stats.Undos++
	s.obs.OnUndo(UndoEvent{
		Store:     s.id,
		Key:       key,
		Global:    fromQueue,
		Remaining: n - 1,
	})
	s.notifyWrite(key, typeName[T](), false)
	s.propagate(key)
	return true
}

func (s *Store) dropLastQueueEntry(key CellKey) {
	for i := len(s.undoQueue) - 1; i >= 0; i-- {
		if s.undoQueue[i] == key {
			s.undoQueue = slices.Delete(s.undoQueue, i, i+1)
			return
		}
	}
}

func (s *Store) dropQueueEntries(key CellKey) {
	s.undoQueue = slices.DeleteFunc(s.undoQueue, func(k CellKey) bool {
		return k == key
	})
}

// TravelBackwards reverses the most recent undo-enabled write made to any
// cell of the store. It reports false when there is nothing to undo.
func TravelBackwards(s *Store) bool {
	for len(s.undoQueue) > 0 {
		n := len(s.undoQueue)
		key := s.undoQueue[n-1]
		s.undoQueue = s.undoQueue[:n-1]

		rec := s.recordOf(key)
		if rec == nil || rec.undo == nil {
			s.fault("travel_backwards", key, "", ErrNotUndoable)
		}
		if rec.undo(true) {
			return true
		}
	}
	return false
}

// UndoDepth returns the number of entries on the global undo queue.
func UndoDepth(s *Store) int {
	return len(s.undoQueue)
}

// UndoQueue returns the keys on the global undo queue, oldest first.
func UndoQueue(s *Store) []CellKey {
	return slices.Clone(s.undoQueue)
}

// Undo reverses the most recent undo-enabled write to key. It faults with
// ErrNotUndoable when key is not an undo-enabled atom.
func (s *Store) Undo(key CellKey) bool {
	rec := s.recordOf(key)
	if rec == nil || rec.undo == nil {
		s.fault("undo", key, "", ErrNotUndoable)
	}
	return rec.undo(false)
}
