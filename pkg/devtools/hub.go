package devtools

import (
	"fmt"
	"sync"
	"time"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// EventKind names the engine event an Event was built from.
type EventKind string

const (
	EventWrite     EventKind = "write"
	EventRecompute EventKind = "recompute"
	EventPropagate EventKind = "propagate"
	EventPrune     EventKind = "prune"
	EventUndo      EventKind = "undo"
	EventFault     EventKind = "fault"
	EventSnapshot  EventKind = "snapshot"
)

// Event is the JSON form of an engine event sent to inspector clients.
type Event struct {
	Seq        uint64    `json:"seq"`
	Time       time.Time `json:"time"`
	Kind       EventKind `json:"kind"`
	Store      string    `json:"store"`
	Key        string    `json:"key,omitempty"`
	Source     string    `json:"source,omitempty"`
	Depth      int       `json:"depth,omitempty"`
	Changed    bool      `json:"changed,omitempty"`
	Silent     bool      `json:"silent,omitempty"`
	Global     bool      `json:"global,omitempty"`
	Dependents int       `json:"dependents,omitempty"`
	DurationNS int64     `json:"durationNs,omitempty"`
	Code       string    `json:"code,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// CellView is the JSON form of one registered cell.
type CellView struct {
	Key       string `json:"key"`
	Kind      string `json:"kind"`
	Type      string `json:"type"`
	AlwaysRun bool   `json:"alwaysRun,omitempty"`
	Pending   bool   `json:"pending,omitempty"`
	Value     string `json:"value,omitempty"`
	HasValue  bool   `json:"hasValue"`
}

// EdgeView is the JSON form of one dependency edge.
type EdgeView struct {
	Source    string `json:"source"`
	Dependent string `json:"dependent"`
}

// Graph is a point-in-time copy of a store's cells, edges and counters.
type Graph struct {
	Store    string         `json:"store"`
	Taken    time.Time      `json:"taken"`
	Cells    []CellView     `json:"cells"`
	Edges    []EdgeView     `json:"edges"`
	Stats    reactive.Stats `json:"stats"`
	UndoKeys []string       `json:"undoQueue"`
}

// TakeGraph copies the inspectable state of s. It must be called on the
// goroutine that owns s.
func TakeGraph(s *reactive.Store) Graph {
	g := Graph{
		Store: s.ID(),
		Taken: time.Now(),
		Stats: s.Stats(),
		Cells: []CellView{},
		Edges: []EdgeView{},
	}
	for _, c := range s.Cells() {
		v := CellView{
			Key:       c.Key.String(),
			Kind:      c.Kind.String(),
			Type:      c.Type,
			AlwaysRun: c.AlwaysRun,
			Pending:   c.Pending,
			HasValue:  c.HasValue,
		}
		if c.HasValue {
			v.Value = fmt.Sprint(c.Value)
		}
		g.Cells = append(g.Cells, v)
	}
	for _, e := range s.Edges() {
		g.Edges = append(g.Edges, EdgeView{Source: e.Source.String(), Dependent: e.Dependent.String()})
	}
	for _, k := range reactive.UndoQueue(s) {
		g.UndoKeys = append(g.UndoKeys, k.String())
	}
	return g
}

// Hub collects engine events into a bounded ring buffer and fans them out
// to subscribers. It implements reactive.Observer; the store calls it on
// the owner goroutine while subscribers read on theirs.
type Hub struct {
	mu     sync.RWMutex
	ring   []Event
	next   int
	full   bool
	seq    uint64
	graph  Graph
	subs   map[string]chan Event
	closed bool
}

// NewHub creates a hub that keeps the last size events for replay.
func NewHub(size int) *Hub {
	if size <= 0 {
		size = 256
	}
	return &Hub{
		ring: make([]Event, size),
		subs: make(map[string]chan Event),
	}
}

// Publish records a graph snapshot of s and announces it to subscribers.
// Call it on the owner goroutine whenever the inspector should refresh.
func (h *Hub) Publish(s *reactive.Store) {
	g := TakeGraph(s)
	h.mu.Lock()
	h.graph = g
	h.mu.Unlock()
	h.emit(Event{Kind: EventSnapshot, Store: g.Store})
}

// Graph returns the last published snapshot.
func (h *Hub) Graph() Graph {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph
}

// Recent returns the buffered events, oldest first.
func (h *Hub) Recent() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.recentLocked()
}

func (h *Hub) recentLocked() []Event {
	if !h.full {
		return append([]Event(nil), h.ring[:h.next]...)
	}
	out := make([]Event, 0, len(h.ring))
	out = append(out, h.ring[h.next:]...)
	return append(out, h.ring[:h.next]...)
}

// Subscribe registers a subscriber under id. It returns the buffered events
// and a channel for live ones. The channel is closed by Unsubscribe or
// Close. A subscriber that falls behind loses events rather than blocking
// the store.
func (h *Hub) Subscribe(id string, buffer int) ([]Event, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Event, max(buffer, 1))
	if h.closed {
		close(ch)
		return nil, ch
	}
	h.subs[id] = ch
	return h.recentLocked(), ch
}

// Unsubscribe removes the subscriber registered under id.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close drops every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *Hub) emit(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	e.Seq = h.seq
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	h.ring[h.next] = e
	h.next++
	if h.next == len(h.ring) {
		h.next = 0
		h.full = true
	}
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// OnWrite records a write to a cell.
func (h *Hub) OnWrite(e reactive.WriteEvent) {
	h.emit(Event{Kind: EventWrite, Store: e.Store, Key: e.Key.String(), Silent: e.Silent})
}

// OnRecompute records a reaction run with its depth and duration.
func (h *Hub) OnRecompute(e reactive.RecomputeEvent) {
	h.emit(Event{
		Kind:       EventRecompute,
		Store:      e.Store,
		Key:        e.Key.String(),
		Depth:      e.Depth,
		Changed:    e.Changed,
		DurationNS: e.Duration.Nanoseconds(),
	})
}

// OnPropagate records a propagation pass leaving a source.
func (h *Hub) OnPropagate(e reactive.PropagateEvent) {
	h.emit(Event{
		Kind:       EventPropagate,
		Store:      e.Store,
		Key:        e.Source.String(),
		Depth:      e.Depth,
		Dependents: e.Dependents,
	})
}

// OnPrune records an edge dropped because its owner stopped reading the source.
func (h *Hub) OnPrune(e reactive.PruneEvent) {
	h.emit(Event{Kind: EventPrune, Store: e.Store, Key: e.Owner.String(), Source: e.Source.String()})
}

// OnUndo records an undo, including those made by TravelBackwards.
func (h *Hub) OnUndo(e reactive.UndoEvent) {
	h.emit(Event{Kind: EventUndo, Store: e.Store, Key: e.Key.String(), Global: e.Global})
}

// OnFault records a usage fault with its code and message.
func (h *Hub) OnFault(e reactive.FaultEvent) {
	ev := Event{Kind: EventFault, Store: e.Store}
	if e.Err != nil {
		ev.Key = e.Err.Key.String()
		ev.Code = e.Err.Code
		ev.Error = e.Err.Error()
	}
	h.emit(ev)
}
