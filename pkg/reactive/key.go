package reactive

import (
	"fmt"
	"runtime"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// KeyKind distinguishes how a CellKey was derived.
type KeyKind uint8

const (
	// KindNamed keys are plain string identifiers.
	KindNamed KeyKind = iota + 1

	// KindHashed keys are content hashes of (call site, arguments), produced
	// by StableKeyFor for memoized pure constructors.
	KindHashed

	// KindPositional keys identify a cell by the source position that
	// created it, scoped to the reaction running at the time.
	KindPositional
)

// String returns a human-readable name for the key kind.
func (k KeyKind) String() string {
	switch k {
	case KindNamed:
		return "named"
	case KindHashed:
		return "hashed"
	case KindPositional:
		return "positional"
	default:
		return "invalid"
	}
}

// CellKey is the identity of a cell. It is comparable and cheap to copy.
// Values of unrelated types may share a key: every lookup is qualified by
// (key, type).
type CellKey struct {
	Kind KeyKind

	// Location is the content hash (hashed keys) or the call-site hash
	// (positional keys).
	Location uint64

	// Slot disambiguates hashed keys whose Location collided.
	Slot uint64

	// Parent is the hash of the reaction key a positional key was created
	// under, or 0 at top level.
	Parent uint64

	// Name is the identifier of a named key.
	Name string
}

// Key returns a named key.
func Key(name string) CellKey {
	return CellKey{Kind: KindNamed, Name: name}
}

// IsZero reports whether k is the zero key.
func (k CellKey) IsZero() bool {
	return k == CellKey{}
}

// String renders the key for logs and diagnostics.
func (k CellKey) String() string {
	switch k.Kind {
	case KindNamed:
		return k.Name
	case KindHashed:
		if k.Slot == 0 {
			return fmt.Sprintf("h:%016x", k.Location)
		}
		return fmt.Sprintf("h:%016x/%d", k.Location, k.Slot)
	case KindPositional:
		return fmt.Sprintf("p:%016x@%016x", k.Location, k.Parent)
	default:
		return "<zero>"
	}
}

func (k CellKey) hash() uint64 {
	return xxhash.Sum64String(k.Kind.String() + ":" + k.String())
}

// keySeed is the content a hashed key was derived from. It is stored in the
// key's own cell so later derivations can be checked for collisions. Args
// hold the canonical "%T:%v" form of each argument, so seeds compare equal
// whenever they hash equal, NaN and func arguments included.
type keySeed struct {
	CallSite string
	Args     []string
}

func newKeySeed(callSite string, args []any) keySeed {
	seed := keySeed{CallSite: callSite, Args: make([]string, len(args))}
	for i, a := range args {
		seed.Args[i] = fmt.Sprintf("%T:%v", a, a)
	}
	return seed
}

func (s keySeed) digest() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(s.CallSite)
	for _, a := range s.Args {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(a)
	}
	return d.Sum64()
}

func (s keySeed) equal(o keySeed) bool {
	return s.CallSite == o.CallSite && slices.Equal(s.Args, o.Args)
}

// StableKeyFor derives a deterministic key from a call-site identifier and
// an argument tuple. Calling it again with inputs that format the same
// returns the same key.
//
// The seed is stored under the derived key. If a different seed already
// occupies it (a hash collision), the next Slot is probed, up to
// Config.MaxKeyProbes; past that the fault ErrKeyCollision is raised.
func StableKeyFor(s *Store, callSite string, args ...any) CellKey {
	seed := newKeySeed(callSite, args)
	return stableKeyWithHash(s, seed.digest(), seed)
}

func stableKeyWithHash(s *Store, h uint64, seed keySeed) CellKey {
	for probe := 0; probe < s.cfg.MaxKeyProbes; probe++ {
		key := CellKey{Kind: KindHashed, Location: h, Slot: uint64(probe)}
		existing, ok := SoftGet[keySeed](s, key)
		if !ok {
			Set(s, key, seed)
			return key
		}
		if existing.equal(seed) {
			return key
		}
		s.log.Debug("stable key collision, probing",
			"store", s.id,
			"key", key.String(),
			"probe", probe,
		)
	}
	s.fault("stable_key_for", CellKey{Kind: KindHashed, Location: h}, "", ErrKeyCollision)
	return CellKey{}
}

// PositionKey returns a key identifying the caller's source position,
// scoped to the reaction currently running (if any). Calling it from the
// same line inside the same reaction always yields the same key.
func PositionKey(s *Store) CellKey {
	return callerKey(s, 1, "")
}

// CallerKey is PositionKey for the frame skip levels above its caller.
// Helpers that wrap PositionKey pass 1 so the key names their caller's
// position rather than their own.
func CallerKey(s *Store, skip int) CellKey {
	return callerKey(s, skip+1, "")
}

// callerKey builds a positional key for the frame skip levels above its
// caller. salt separates several keys created at one position.
func callerKey(s *Store, skip int, salt string) CellKey {
	var pcs [8]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	file, line := "unknown", 0
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		// Promoted handle methods may add a generated wrapper frame.
		if f.File != "" && f.File != "<autogenerated>" {
			file, line = f.File, f.Line
			break
		}
		if !more {
			break
		}
	}
	key := CellKey{
		Kind:     KindPositional,
		Location: xxhash.Sum64String(file + ":" + strconv.Itoa(line) + "|" + salt),
	}
	if ctx := s.CurrentContext(); ctx != nil {
		key.Parent = ctx.Owner.hash()
	}
	return key
}
