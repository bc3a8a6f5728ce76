package reactive

import (
	"log/slog"
	"reflect"

	"github.com/google/uuid"
)

// slot is the dense index assigned to a key on first write. Every per-type
// container is indexed by it.
type slot uint32

// container is the type-erased view of one per-type value map.
type container interface {
	has(slot) bool
	drop(slot) bool
	clone() container
	valueAny(slot) (any, bool)
	slots() []slot
	elemType() reflect.Type
}

// typedContainer stores every value of one concrete type T.
type typedContainer[T any] struct {
	values map[slot]T
}

func (c *typedContainer[T]) has(sl slot) bool {
	_, ok := c.values[sl]
	return ok
}

func (c *typedContainer[T]) drop(sl slot) bool {
	if _, ok := c.values[sl]; !ok {
		return false
	}
	delete(c.values, sl)
	return true
}

func (c *typedContainer[T]) clone() container {
	cp := &typedContainer[T]{values: make(map[slot]T, len(c.values))}
	for k, v := range c.values {
		cp.values[k] = v
	}
	return cp
}

func (c *typedContainer[T]) valueAny(sl slot) (any, bool) {
	v, ok := c.values[sl]
	return v, ok
}

func (c *typedContainer[T]) slots() []slot {
	out := make([]slot, 0, len(c.values))
	for sl := range c.values {
		out = append(out, sl)
	}
	return out
}

func (c *typedContainer[T]) elemType() reflect.Type {
	return reflect.TypeFor[T]()
}

// checkout identifies a (slot, type) pair lent out by ReadWith/UpdateWith.
type checkout struct {
	slot slot
	typ  reflect.Type
}

// Store is a heterogeneous, single-owner store of reactive cells.
//
// A Store is not safe for concurrent use. All access is serialized by the
// call stack of its single owner; propagation runs synchronously inside the
// write that triggered it.
type Store struct {
	id  string
	cfg Config
	log *slog.Logger
	obs Observer

	// keys maps each registered key to its slot; slots is the reverse index.
	keys  map[CellKey]slot
	slots []CellKey

	// containers holds one typedContainer per concrete value type.
	containers map[reflect.Type]container

	// checkedOut records pairs currently lent out by ReadWith/UpdateWith.
	checkedOut map[checkout]struct{}

	graph *dependencyGraph

	// stack is the explicit reactive-context stack. The top entry is the
	// reaction currently executing.
	stack []*ReactiveContext

	// undoQueue orders undo-enabled writes across every cell.
	undoQueue []CellKey

	budget propagationBudget
	stats  Stats
}

// New creates an empty store.
func New(opts ...Option) *Store {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxKeyProbes <= 0 {
		cfg.MaxKeyProbes = 16
	}

	s := &Store{
		id:         cfg.ID,
		cfg:        cfg,
		log:        cfg.Logger.With("component", "reactive"),
		obs:        newObserverChain(cfg.Observers),
		keys:       make(map[CellKey]slot),
		containers: make(map[reflect.Type]container),
		checkedOut: make(map[checkout]struct{}),
		graph:      newDependencyGraph(),
		budget:     newPropagationBudget(cfg.MaxDepth, cfg.MaxRecomputes),
	}
	s.log.Debug("store created", "store", s.id)
	return s
}

// ID returns the store identifier.
func (s *Store) ID() string {
	return s.id
}

// Config returns a copy of the store configuration.
func (s *Store) Config() Config {
	return s.cfg
}

// register allocates a slot for key if it has none and returns it.
func (s *Store) register(key CellKey) slot {
	if sl, ok := s.keys[key]; ok {
		return sl
	}
	sl := slot(len(s.slots))
	s.slots = append(s.slots, key)
	s.keys[key] = sl
	return sl
}

// slotOf returns the slot assigned to key.
func (s *Store) slotOf(key CellKey) (slot, bool) {
	sl, ok := s.keys[key]
	return sl, ok
}

// mustSlot returns the slot of key or raises ErrUnknownKey.
func (s *Store) mustSlot(op string, key CellKey) slot {
	sl, ok := s.keys[key]
	if !ok {
		s.fault(op, key, "", ErrUnknownKey)
	}
	return sl
}

// Registered reports whether key has ever been assigned a slot.
func (s *Store) Registered(key CellKey) bool {
	_, ok := s.keys[key]
	return ok
}

// Keys returns every registered key in slot order.
func (s *Store) Keys() []CellKey {
	out := make([]CellKey, len(s.slots))
	copy(out, s.slots)
	return out
}

// Len returns the number of registered keys.
func (s *Store) Len() int {
	return len(s.slots)
}

// Types returns the value types currently stored under key.
func (s *Store) Types(key CellKey) []reflect.Type {
	sl, ok := s.keys[key]
	if !ok {
		return nil
	}
	var out []reflect.Type
	for t, c := range s.containers {
		if c.has(sl) {
			out = append(out, t)
		}
	}
	return out
}

// ValueOf returns the value of type t stored under key, boxed.
func (s *Store) ValueOf(key CellKey, t reflect.Type) (any, bool) {
	sl, ok := s.keys[key]
	if !ok {
		return nil, false
	}
	c, ok := s.containers[t]
	if !ok {
		return nil, false
	}
	return c.valueAny(sl)
}

func containerFor[T any](s *Store, create bool) *typedContainer[T] {
	t := reflect.TypeFor[T]()
	if c, ok := s.containers[t]; ok {
		return c.(*typedContainer[T])
	}
	if !create {
		return nil
	}
	c := &typedContainer[T]{values: make(map[slot]T)}
	s.containers[t] = c
	return c
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

func (s *Store) isCheckedOut(sl slot, t reflect.Type) bool {
	_, ok := s.checkedOut[checkout{slot: sl, typ: t}]
	return ok
}

// Set stores v under key without notifying dependents. This is the silent
// write at the bottom of every other write path.
func Set[T any](s *Store, key CellKey, v T) {
	sl := s.register(key)
	if s.isCheckedOut(sl, reflect.TypeFor[T]()) {
		s.fault("set", key, typeName[T](), ErrCheckedOut)
	}
	containerFor[T](s, true).values[sl] = v
}

// SoftGet returns a copy of the T stored under key, or false if there is
// none (including while the pair is checked out).
func SoftGet[T any](s *Store, key CellKey) (T, bool) {
	var zero T
	sl, ok := s.keys[key]
	if !ok {
		return zero, false
	}
	c := containerFor[T](s, false)
	if c == nil {
		return zero, false
	}
	v, ok := c.values[sl]
	return v, ok
}

// Get returns a copy of the T stored under key. It faults with
// ErrCellMissing if there is none, or ErrCheckedOut if the pair is lent out.
func Get[T any](s *Store, key CellKey) T {
	v, ok := SoftGet[T](s, key)
	if !ok {
		s.faultMissing("get", key, typeName[T]())
	}
	return v
}

// Exists reports whether key holds a value of type T.
func Exists[T any](s *Store, key CellKey) bool {
	_, ok := SoftGet[T](s, key)
	return ok
}

// Remove takes the T stored under key out of the store. Values of other
// types under the same key are unaffected; the key keeps its slot.
func Remove[T any](s *Store, key CellKey) (T, bool) {
	var zero T
	sl, ok := s.keys[key]
	if !ok {
		return zero, false
	}
	c := containerFor[T](s, false)
	if c == nil {
		return zero, false
	}
	v, ok := c.values[sl]
	if ok {
		delete(c.values, sl)
	}
	return v, ok
}

// ReadWith lends the T stored under key to fn. While fn runs the pair is
// checked out: any nested access to it faults with ErrCheckedOut. The value
// is put back when fn returns, including when fn panics.
func ReadWith[T any](s *Store, key CellKey, fn func(*T)) {
	if !TryReadWith(s, key, fn) {
		s.faultMissing("read_with", key, typeName[T]())
	}
}

// TryReadWith is ReadWith for possibly-absent cells. It reports whether fn
// was called.
func TryReadWith[T any](s *Store, key CellKey, fn func(*T)) bool {
	v, ok := Remove[T](s, key)
	if !ok {
		return false
	}
	sl := s.keys[key]
	co := checkout{slot: sl, typ: reflect.TypeFor[T]()}
	s.checkedOut[co] = struct{}{}
	defer func() {
		delete(s.checkedOut, co)
		containerFor[T](s, true).values[sl] = v
	}()
	fn(&v)
	return true
}

// UpdateWith lends the T stored under key to fn for in-place mutation, like
// ReadWith. It does not propagate; accessor Update methods do.
func UpdateWith[T any](s *Store, key CellKey, fn func(*T)) {
	ReadWith(s, key, fn)
}

func (s *Store) faultMissing(op string, key CellKey, typ string) {
	if sl, ok := s.keys[key]; ok {
		for co := range s.checkedOut {
			if co.slot == sl && co.typ.String() == typ {
				s.fault(op, key, typ, ErrCheckedOut)
			}
		}
	}
	s.fault(op, key, typ, ErrCellMissing)
}

// fault reports and raises a usage fault.
func (s *Store) fault(op string, key CellKey, typ string, err error) {
	ue := newUsageError(op, key, typ, err)
	s.log.Debug("usage fault",
		"store", s.id,
		"code", ue.Code,
		"op", op,
		"key", key.String(),
		"error", err,
	)
	s.obs.OnFault(FaultEvent{Store: s.id, Err: ue})
	panic(ue)
}
