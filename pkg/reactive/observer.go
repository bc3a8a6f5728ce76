package reactive

import "time"

// Observer receives engine events. Callbacks run synchronously on the
// store's owner, inside the operation that produced them; they must not
// access the store.
//
// Embed NopObserver to implement only the callbacks you need.
type Observer interface {
	OnWrite(WriteEvent)
	OnRecompute(RecomputeEvent)
	OnPropagate(PropagateEvent)
	OnPrune(PruneEvent)
	OnUndo(UndoEvent)
	OnFault(FaultEvent)
}

// WriteEvent describes a write made through an accessor handle.
type WriteEvent struct {
	Store  string
	Key    CellKey
	Type   string
	Silent bool // true for InertSet and other non-propagating writes
}

// RecomputeEvent describes one execution of a reaction body.
type RecomputeEvent struct {
	Store    string
	Key      CellKey
	Depth    int  // propagation depth, 0 for construction or ForceTrigger
	Changed  bool // value differs from the previous one
	Duration time.Duration
}

// PropagateEvent is emitted when a propagation pass visits a source.
type PropagateEvent struct {
	Store      string
	Source     CellKey
	Depth      int
	Dependents int
}

// PruneEvent is emitted when a dead dependency edge is removed.
type PruneEvent struct {
	Store  string
	Owner  CellKey
	Source CellKey
}

// UndoEvent is emitted when a value is reinstated from undo history.
type UndoEvent struct {
	Store     string
	Key       CellKey
	Global    bool // triggered by TravelBackwards
	Remaining int  // history entries left for this cell
}

// FaultEvent is emitted just before a usage fault panics.
type FaultEvent struct {
	Store string
	Err   *UsageError
}

// NopObserver implements Observer with no-ops.
type NopObserver struct{}

func (NopObserver) OnWrite(WriteEvent)         {}
func (NopObserver) OnRecompute(RecomputeEvent) {}
func (NopObserver) OnPropagate(PropagateEvent) {}
func (NopObserver) OnPrune(PruneEvent)         {}
func (NopObserver) OnUndo(UndoEvent)           {}
func (NopObserver) OnFault(FaultEvent)         {}

// observerChain fans events out to several observers in order.
type observerChain []Observer

func newObserverChain(obs []Observer) Observer {
	switch len(obs) {
	case 0:
		return NopObserver{}
	case 1:
		return obs[0]
	}
	return observerChain(append([]Observer(nil), obs...))
}

func (c observerChain) OnWrite(e WriteEvent) {
	for _, o := range c {
		o.OnWrite(e)
	}
}

func (c observerChain) OnRecompute(e RecomputeEvent) {
	for _, o := range c {
		o.OnRecompute(e)
	}
}

func (c observerChain) OnPropagate(e PropagateEvent) {
	for _, o := range c {
		o.OnPropagate(e)
	}
}

func (c observerChain) OnPrune(e PruneEvent) {
	for _, o := range c {
		o.OnPrune(e)
	}
}

func (c observerChain) OnUndo(e UndoEvent) {
	for _, o := range c {
		o.OnUndo(e)
	}
}

func (c observerChain) OnFault(e FaultEvent) {
	for _, o := range c {
		o.OnFault(e)
	}
}

// Stats are cumulative counters kept by every store.
type Stats struct {
	Writes       int
	SilentWrites int
	Recomputes   int
	Propagations int
	EdgesAdded   int
	EdgesRemoved int
	Undos        int
}

// Stats returns a snapshot of the store counters.
func (s *Store) Stats() Stats {
	return s.stats
}
