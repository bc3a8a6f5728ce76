package reactive

import "reflect"

// defaultEquals compares two values of the same type. Common scalar types
// compare with ==; everything else falls back to reflect.DeepEqual. When T
// is an interface type the dynamic types may differ, which counts as a
// change.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return same(av, any(b))
	case int8:
		return same(av, any(b))
	case int16:
		return same(av, any(b))
	case int32:
		return same(av, any(b))
	case int64:
		return same(av, any(b))
	case uint:
		return same(av, any(b))
	case uint8:
		return same(av, any(b))
	case uint16:
		return same(av, any(b))
	case uint32:
		return same(av, any(b))
	case uint64:
		return same(av, any(b))
	case float32:
		return same(av, any(b))
	case float64:
		return same(av, any(b))
	case string:
		return same(av, any(b))
	case bool:
		return same(av, any(b))
	default:
		return reflect.DeepEqual(a, b)
	}
}

func same[V comparable](a V, b any) bool {
	bv, ok := b.(V)
	return ok && a == bv
}
