package reactive

import (
	"math"
	"testing"
)

func TestStableKeyForDeterministic(t *testing.T) {
	s := New()
	k1 := StableKeyFor(s, "pkg.counter", 1, "x")
	k2 := StableKeyFor(s, "pkg.counter", 1, "x")
	if k1 != k2 {
		t.Errorf("expected equal keys, got %v and %v", k1, k2)
	}
	if k1.Kind != KindHashed {
		t.Errorf("expected hashed key, got %v", k1.Kind)
	}

	k3 := StableKeyFor(s, "pkg.counter", 2, "x")
	if k3 == k1 {
		t.Error("different arguments should derive different keys")
	}
	k4 := StableKeyFor(s, "pkg.other", 1, "x")
	if k4 == k1 {
		t.Error("different call sites should derive different keys")
	}

	// A fresh store derives the same key for the same seed.
	if StableKeyFor(New(), "pkg.counter", 1, "x") != k1 {
		t.Error("key derivation should not depend on store state")
	}
}

func TestStableKeyForIrreflexiveArgs(t *testing.T) {
	s := New()
	fn := func() {}

	tests := []struct {
		name string
		args []any
	}{
		{name: "nan", args: []any{math.NaN()}},
		{name: "func", args: []any{fn}},
		{name: "nested nan", args: []any{[]float64{1, math.NaN()}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k1 := StableKeyFor(s, "pkg.site", tt.args...)
			k2 := StableKeyFor(s, "pkg.site", tt.args...)
			if k1 != k2 {
				t.Errorf("expected equal keys, got %v and %v", k1, k2)
			}
			if k1.Slot != 0 {
				t.Errorf("expected no probing, got slot %d", k1.Slot)
			}
		})
	}
}

func TestStableKeyCollisionProbes(t *testing.T) {
	s := New()
	seedA := keySeed{CallSite: "a"}
	seedB := keySeed{CallSite: "b"}

	ka := stableKeyWithHash(s, 42, seedA)
	kb := stableKeyWithHash(s, 42, seedB)
	if ka == kb {
		t.Fatal("colliding seeds must not share a key")
	}
	if ka.Slot != 0 || kb.Slot != 1 {
		t.Errorf("expected slots 0 and 1, got %d and %d", ka.Slot, kb.Slot)
	}
	if again := stableKeyWithHash(s, 42, seedB); again != kb {
		t.Errorf("expected probing to find b again, got %v", again)
	}
}

func TestStableKeyCollisionBudget(t *testing.T) {
	s := New(WithKeyProbes(1))
	stableKeyWithHash(s, 7, keySeed{CallSite: "a"})
	ue := expectFault(t, ErrKeyCollision, func() {
		stableKeyWithHash(s, 7, keySeed{CallSite: "b"})
	})
	if ue.Code != CodeKeyCollision {
		t.Errorf("expected %s, got %s", CodeKeyCollision, ue.Code)
	}
}

func TestPositionKey(t *testing.T) {
	s := New()

	var keys []CellKey
	for i := 0; i < 3; i++ {
		keys = append(keys, PositionKey(s))
	}
	if keys[0] != keys[1] || keys[1] != keys[2] {
		t.Errorf("same position should give the same key: %v", keys)
	}

	other := PositionKey(s)
	if other == keys[0] {
		t.Error("different lines should give different keys")
	}
	if other.Kind != KindPositional || other.Parent != 0 {
		t.Errorf("unexpected top-level positional key %+v", other)
	}

	var inside CellKey
	NewReaction(s, Key("owner"), func() int {
		inside = PositionKey(s)
		return 0
	})
	if inside.Parent != Key("owner").hash() {
		t.Errorf("expected key scoped to owner, got parent %x", inside.Parent)
	}
}

func keyHere(s *Store) CellKey { return CallerKey(s, 1) }

func TestCallerKeySkipsWrapper(t *testing.T) {
	s := New()

	a := keyHere(s)
	b := keyHere(s)
	if a == b {
		t.Error("wrapper calls on different lines should give different keys")
	}

	var same []CellKey
	for i := 0; i < 2; i++ {
		same = append(same, keyHere(s))
	}
	if same[0] != same[1] {
		t.Errorf("wrapper calls on one line should give one key: %v", same)
	}
}

func TestCellKeyString(t *testing.T) {
	tests := []struct {
		key  CellKey
		want string
	}{
		{Key("count"), "count"},
		{CellKey{Kind: KindHashed, Location: 0xff}, "h:00000000000000ff"},
		{CellKey{Kind: KindHashed, Location: 0xff, Slot: 2}, "h:00000000000000ff/2"},
		{CellKey{}, "<zero>"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
