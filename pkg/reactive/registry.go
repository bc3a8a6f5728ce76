package reactive

// CellKind tells atoms, undo-enabled atoms and reactions apart.
type CellKind uint8

const (
	KindAtom CellKind = iota + 1
	KindAtomUndo
	KindReaction
)

// String returns the kind name used in logs and scenario files.
func (k CellKind) String() string {
	switch k {
	case KindAtom:
		return "atom"
	case KindAtomUndo:
		return "undo"
	case KindReaction:
		return "reaction"
	default:
		return "unknown"
	}
}

// reactionRecord is the stored recomputation callback of a cell. It lives in
// the store under the same key as the value it produces, so a key has at
// most one record.
type reactionRecord struct {
	kind      CellKind
	typ       string
	alwaysRun bool

	// pending is set on suspended reactions until their first run.
	pending bool

	// run recomputes the value, writes it silently and reports whether it
	// differs from the previous value.
	run func() bool

	// inverse writes a reaction's sources from a value of its type.
	inverse func(any)

	// undo reinstates the previous value of an undo-enabled atom.
	// fromQueue is true when called by TravelBackwards.
	undo func(fromQueue bool) bool

	// clearUndo drops the undo history of an undo-enabled atom.
	clearUndo func()

	// clone copies a value before undo history keeps it. Nil means the
	// default strategy of cloneValue.
	clone func(any) any
}

func (s *Store) recordOf(key CellKey) *reactionRecord {
	rec, _ := SoftGet[*reactionRecord](s, key)
	return rec
}

// CellInfo describes a registered cell for introspection.
type CellInfo struct {
	Key       CellKey
	Kind      CellKind
	Type      string
	AlwaysRun bool
	Pending   bool
	Value     any
	HasValue  bool
}

// Cells lists every registered cell in slot order.
func (s *Store) Cells() []CellInfo {
	var out []CellInfo
	for _, key := range s.slots {
		rec := s.recordOf(key)
		if rec == nil {
			continue
		}
		info := CellInfo{
			Key:       key,
			Kind:      rec.kind,
			Type:      rec.typ,
			AlwaysRun: rec.alwaysRun,
			Pending:   rec.pending,
		}
		for _, t := range s.Types(key) {
			if t.String() == rec.typ {
				info.Value, info.HasValue = s.ValueOf(key, t)
				break
			}
		}
		out = append(out, info)
	}
	return out
}

// Kind returns the kind of the cell registered under key.
func (s *Store) Kind(key CellKey) (CellKind, bool) {
	rec := s.recordOf(key)
	if rec == nil {
		return 0, false
	}
	return rec.kind, true
}

// NewAtom registers a source cell under key, initialized by init, and
// returns its handle. Construction is idempotent: if key already has a
// record, init is not called again unless the value has been removed.
func NewAtom[T any](s *Store, key CellKey, init func() T, opts ...CellOption) Atom[T] {
	registerAtom(s, key, init, KindAtom, opts)
	return Atom[T]{cell[T]{s: s, key: key}}
}

// NewAtomUndo registers an undo-enabled source cell. Its history is seeded
// with the initial value.
func NewAtomUndo[T any](s *Store, key CellKey, init func() T, opts ...CellOption) AtomUndo[T] {
	registerAtom(s, key, init, KindAtomUndo, opts)
	return AtomUndo[T]{cell[T]{s: s, key: key}}
}

func registerAtom[T any](s *Store, key CellKey, init func() T, kind CellKind, opts []CellOption) {
	if rec := s.recordOf(key); rec != nil {
		if !Exists[T](s, key) {
			s.recompute(key, rec)
		}
		return
	}

	options := applyCellOptions(opts)
	rec := &reactionRecord{
		kind:      kind,
		typ:       typeName[T](),
		alwaysRun: options.alwaysRun,
		clone:     options.clone,
	}
	rec.run = func() bool {
		v := init()
		prev, had := SoftGet[T](s, key)
		Set(s, key, v)
		if kind == KindAtomUndo {
			if _, ok := SoftGet[UndoHistory[T]](s, key); !ok {
				Set(s, key, UndoHistory[T]{Values: []T{cloneValue(rec, v)}})
			}
		}
		return !had || !defaultEquals(prev, v)
	}
	if kind == KindAtomUndo {
		rec.undo = func(fromQueue bool) bool {
			return undoCell[T](s, key, fromQueue)
		}
		rec.clearUndo = func() {
			Remove[UndoHistory[T]](s, key)
			s.dropQueueEntries(key)
		}
	}

	Set(s, key, rec)
	s.graph.ensure(s.keys[key])
	s.log.Debug("cell registered", "store", s.id, "key", key.String(), "kind", kind.String())
	s.recompute(key, rec)
}

// NewReaction registers a derived cell computed by body and returns its
// handle. body runs once immediately (unless Suspended) inside a context
// owned by key; every cell it observes becomes a source. Construction is
// idempotent per key.
func NewReaction[T any](s *Store, key CellKey, body func() T, opts ...CellOption) Reaction[T] {
	if rec := s.recordOf(key); rec != nil {
		if !rec.pending && !Exists[T](s, key) {
			s.recompute(key, rec)
		}
		return Reaction[T]{cell[T]{s: s, key: key}}
	}

	options := applyCellOptions(opts)
	rec := &reactionRecord{
		kind:      KindReaction,
		typ:       typeName[T](),
		alwaysRun: options.alwaysRun,
		pending:   options.suspended,
		inverse:   options.inverse,
	}
	rec.run = func() bool {
		var v T
		ctx := s.withContext(key, rec.alwaysRun, func() {
			v = body()
		})
		prev, had := SoftGet[T](s, key)
		Set(s, key, v)
		s.pruneDeadLinks(ctx)
		return !had || !defaultEquals(prev, v)
	}

	Set(s, key, rec)
	s.log.Debug("cell registered", "store", s.id, "key", key.String(), "kind", "reaction")
	if !rec.pending {
		s.recompute(key, rec)
	}
	return Reaction[T]{cell[T]{s: s, key: key}}
}

// Computed is NewReaction under its alternative name.
func Computed[T any](s *Store, key CellKey, body func() T, opts ...CellOption) Reaction[T] {
	return NewReaction(s, key, body, opts...)
}
