package reactive

import (
	"errors"
	"reflect"
	"testing"
)

// expectFault runs fn and fails unless it raises a usage fault wrapping want.
func expectFault(t *testing.T, want error, fn func()) *UsageError {
	t.Helper()
	err := Catch(fn)
	if err == nil {
		t.Fatalf("expected fault %v, got none", want)
	}
	if !errors.Is(err, want) {
		t.Fatalf("expected fault %v, got %v", want, err)
	}
	var ue *UsageError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UsageError, got %T", err)
	}
	return ue
}

func TestSetGetRoundTrip(t *testing.T) {
	s := New()
	key := Key("k")

	Set(s, key, 42)
	if got := Get[int](s, key); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}

	Set(s, key, []string{"a", "b"})
	if got := Get[[]string](s, key); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", got)
	}

	type point struct{ X, Y int }
	Set(s, key, point{1, 2})
	if got := Get[point](s, key); got != (point{1, 2}) {
		t.Errorf("expected {1 2}, got %v", got)
	}

	// int value survives writes of other types under the same key.
	if got := Get[int](s, key); got != 42 {
		t.Errorf("expected 42 after other writes, got %d", got)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 registered key, got %d", s.Len())
	}
}

func TestSoftGetMissing(t *testing.T) {
	s := New()

	if _, ok := SoftGet[int](s, Key("nope")); ok {
		t.Error("expected SoftGet on unknown key to report false")
	}

	Set(s, Key("k"), "text")
	if _, ok := SoftGet[int](s, Key("k")); ok {
		t.Error("expected SoftGet of an unset type to report false")
	}
	if !Exists[string](s, Key("k")) {
		t.Error("expected string to exist")
	}
}

func TestGetMissingFaults(t *testing.T) {
	s := New()
	ue := expectFault(t, ErrCellMissing, func() {
		Get[int](s, Key("missing"))
	})
	if ue.Code != CodeCellMissing {
		t.Errorf("expected code %s, got %s", CodeCellMissing, ue.Code)
	}
	if ue.Op != "get" {
		t.Errorf("expected op get, got %s", ue.Op)
	}
	if ue.Type != "int" {
		t.Errorf("expected type int, got %s", ue.Type)
	}
}

func TestRemoveLeavesOtherTypes(t *testing.T) {
	s := New()
	key := Key("k")
	Set(s, key, 1)
	Set(s, key, "one")

	v, ok := Remove[int](s, key)
	if !ok || v != 1 {
		t.Fatalf("expected to remove 1, got %d, %v", v, ok)
	}
	if Exists[int](s, key) {
		t.Error("int should be gone")
	}
	if got := Get[string](s, key); got != "one" {
		t.Errorf("expected string to survive, got %q", got)
	}
	if _, ok := Remove[int](s, key); ok {
		t.Error("second remove should report false")
	}

	// Re-creatable under the same key and slot.
	Set(s, key, 2)
	if got := Get[int](s, key); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
	if s.Len() != 1 {
		t.Errorf("expected slot reuse, got %d keys", s.Len())
	}
}

func TestReadWithMutatesInPlace(t *testing.T) {
	s := New()
	key := Key("list")
	Set(s, key, []int{1, 2})

	UpdateWith(s, key, func(v *[]int) {
		*v = append(*v, 3)
	})

	var n int
	ReadWith(s, key, func(v *[]int) {
		n = len(*v)
	})
	if n != 3 {
		t.Errorf("expected 3 elements, got %d", n)
	}
}

func TestReadWithCheckout(t *testing.T) {
	s := New()
	key := Key("k")
	Set(s, key, 7)

	expectFault(t, ErrCheckedOut, func() {
		ReadWith(s, key, func(v *int) {
			Get[int](s, key)
		})
	})

	// The value is restored after the fault unwound the callback.
	if got := Get[int](s, key); got != 7 {
		t.Errorf("expected value restored to 7, got %d", got)
	}

	expectFault(t, ErrCheckedOut, func() {
		ReadWith(s, key, func(v *int) {
			Set(s, key, 8)
		})
	})

	// Other types under the same key are not checked out.
	Set(s, key, "side")
	ReadWith(s, key, func(v *int) {
		if got := Get[string](s, key); got != "side" {
			t.Errorf("expected side, got %q", got)
		}
	})
}

func TestTryReadWithMissing(t *testing.T) {
	s := New()
	called := false
	if TryReadWith(s, Key("none"), func(*int) { called = true }) {
		t.Error("expected TryReadWith to report false")
	}
	if called {
		t.Error("callback should not run for a missing cell")
	}

	expectFault(t, ErrCellMissing, func() {
		ReadWith(s, Key("none"), func(*int) {})
	})
}

func TestKeysAndTypes(t *testing.T) {
	s := New(WithID("store-1"))
	if s.ID() != "store-1" {
		t.Errorf("expected id store-1, got %s", s.ID())
	}

	Set(s, Key("a"), 1)
	Set(s, Key("b"), 2)
	Set(s, Key("b"), "two")

	keys := s.Keys()
	if len(keys) != 2 || keys[0] != Key("a") || keys[1] != Key("b") {
		t.Errorf("unexpected keys %v", keys)
	}
	if n := len(s.Types(Key("b"))); n != 2 {
		t.Errorf("expected 2 types under b, got %d", n)
	}
	if v, ok := s.ValueOf(Key("a"), reflect.TypeFor[int]()); !ok || v.(int) != 1 {
		t.Errorf("expected boxed 1, got %v, %v", v, ok)
	}
}

func TestNewGeneratesID(t *testing.T) {
	a, b := New(), New()
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("expected distinct generated ids, got %q and %q", a.ID(), b.ID())
	}
}

func TestCatchRepanicsForeignPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("expected boom to propagate, got %v", r)
		}
	}()
	_ = Catch(func() { panic("boom") })
	t.Error("Catch should not return for a foreign panic")
}

func TestReadWithCheckoutThroughPropagation(t *testing.T) {
	s := New()
	a := NewAtom(s, Key("a"), func() int { return 1 })
	b := NewAtom(s, Key("b"), func() int { return 1 })
	sum := NewReaction(s, Key("sum"), func() int { return a.Observe() + b.Observe() })

	ue := expectFault(t, ErrCheckedOut, func() {
		a.GetWith(func(*int) {
			b.Set(2)
		})
	})
	if ue.Key != a.Key() {
		t.Errorf("expected the fault on %v, got %v", a.Key(), ue.Key)
	}

	if got := a.Get(); got != 1 {
		t.Errorf("expected a restored to 1, got %d", got)
	}
	// The write itself landed before propagation faulted.
	if got := b.Get(); got != 2 {
		t.Errorf("expected b to be 2, got %d", got)
	}
	if got := sum.Get(); got != 2 {
		t.Errorf("expected sum left stale at 2, got %d", got)
	}
}
