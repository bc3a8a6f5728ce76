package reactive

import "slices"

// dependencyGraph maps each source slot to the slots that depend on it, in
// insertion order. A slot with an adjacency list (possibly empty) is known
// to the graph; atoms get an empty list at construction.
type dependencyGraph struct {
	edges map[slot][]slot
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{edges: make(map[slot][]slot)}
}

// ensure gives src an adjacency list if it has none.
func (g *dependencyGraph) ensure(src slot) {
	if _, ok := g.edges[src]; !ok {
		g.edges[src] = nil
	}
}

// add appends dep to src's dependents unless it is already there.
func (g *dependencyGraph) add(src, dep slot) bool {
	for _, d := range g.edges[src] {
		if d == dep {
			return false
		}
	}
	g.edges[src] = append(g.edges[src], dep)
	return true
}

// remove deletes dep from src's dependents. known is false when src has no
// adjacency list at all.
func (g *dependencyGraph) remove(src, dep slot) (removed, known bool) {
	deps, ok := g.edges[src]
	if !ok {
		return false, false
	}
	for i, d := range deps {
		if d == dep {
			g.edges[src] = append(deps[:i:i], deps[i+1:]...)
			return true, true
		}
	}
	return false, true
}

// dependents returns a copy of src's dependents, safe to iterate while the
// graph is mutated by the reactions being run.
func (g *dependencyGraph) dependents(src slot) []slot {
	deps := g.edges[src]
	if len(deps) == 0 {
		return nil
	}
	out := make([]slot, len(deps))
	copy(out, deps)
	return out
}

// sources returns every slot that dep is wired to.
func (g *dependencyGraph) sources(dep slot) []slot {
	var out []slot
	for src, deps := range g.edges {
		for _, d := range deps {
			if d == dep {
				out = append(out, src)
				break
			}
		}
	}
	slices.Sort(out)
	return out
}

func (g *dependencyGraph) edgeCount() int {
	n := 0
	for _, deps := range g.edges {
		n += len(deps)
	}
	return n
}

func (g *dependencyGraph) clone() *dependencyGraph {
	cp := &dependencyGraph{edges: make(map[slot][]slot, len(g.edges))}
	for src, deps := range g.edges {
		if deps == nil {
			cp.edges[src] = nil
			continue
		}
		cp.edges[src] = append([]slot(nil), deps...)
	}
	return cp
}

// Edge is a single source → dependent wire.
type Edge struct {
	Source    CellKey
	Dependent CellKey
}

// AddDependency records that dependent must be recomputed when source
// changes. Adding an existing edge is a no-op. Both keys must be registered.
func (s *Store) AddDependency(source, dependent CellKey) {
	src := s.mustSlot("add_dependency", source)
	dep := s.mustSlot("add_dependency", dependent)
	if s.graph.add(src, dep) {
		s.stats.EdgesAdded++
	}
}

// RemoveDependency removes the source → dependent edge. It faults with
// ErrNoAdjacency if source has never had a dependents list.
func (s *Store) RemoveDependency(source, dependent CellKey) {
	src := s.mustSlot("remove_dependency", source)
	dep := s.mustSlot("remove_dependency", dependent)
	removed, known := s.graph.remove(src, dep)
	if !known {
		s.fault("remove_dependency", source, "", ErrNoAdjacency)
	}
	if removed {
		s.stats.EdgesRemoved++
	}
}

// Dependents returns the keys recomputed when key changes, in propagation
// order.
func (s *Store) Dependents(key CellKey) []CellKey {
	sl, ok := s.keys[key]
	if !ok {
		return nil
	}
	return s.keysOf(s.graph.dependents(sl))
}

// Sources returns the keys that key currently depends on.
func (s *Store) Sources(key CellKey) []CellKey {
	sl, ok := s.keys[key]
	if !ok {
		return nil
	}
	return s.keysOf(s.graph.sources(sl))
}

// Edges returns every dependency edge, grouped by source in slot order.
func (s *Store) Edges() []Edge {
	var out []Edge
	for sl, key := range s.slots {
		for _, dep := range s.graph.edges[slot(sl)] {
			out = append(out, Edge{Source: key, Dependent: s.slots[dep]})
		}
	}
	return out
}

func (s *Store) keysOf(sls []slot) []CellKey {
	if len(sls) == 0 {
		return nil
	}
	out := make([]CellKey, len(sls))
	for i, sl := range sls {
		out[i] = s.slots[sl]
	}
	return out
}
