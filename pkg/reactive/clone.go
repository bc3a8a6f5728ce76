package reactive

import "reflect"

// Cloner is implemented by values that know how to copy themselves. Undo
// history uses Clone to snapshot a value before it is replaced.
type Cloner[T any] interface {
	Clone() T
}

// WithClone sets the function undo history uses to snapshot values of an
// undo-enabled atom. It takes precedence over a Clone method on T.
//
// Without either, values are deep-copied by reflection: slices, maps,
// pointers, arrays, interfaces and exported struct fields are copied;
// unexported fields, funcs and channels are shared.
func WithClone[T any](fn func(T) T) CellOption {
	return func(o *cellOptions) {
		o.clone = func(v any) any { return fn(v.(T)) }
	}
}

// cloneValue returns a copy of v that shares no mutable memory with it, as
// far as the cell's clone strategy allows.
func cloneValue[T any](rec *reactionRecord, v T) T {
	if rec != nil && rec.clone != nil {
		return rec.clone(v).(T)
	}
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	rv := reflect.ValueOf(&v).Elem()
	if !needsCopy(rv.Type()) {
		return v
	}
	var out T
	reflect.ValueOf(&out).Elem().Set(deepCopy(rv, make(map[uintptr]reflect.Value)))
	return out
}

// needsCopy reports whether values of t can share memory.
func needsCopy(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Interface:
		return true
	case reflect.Array:
		return needsCopy(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if needsCopy(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

// deepCopy copies v recursively. seen maps pointers and maps already copied
// to their copies so shared and cyclic structures keep their shape.
func deepCopy(v reflect.Value, seen map[uintptr]reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		if c, ok := seen[v.Pointer()]; ok && c.Type() == v.Type() {
			return c
		}
		c := reflect.New(v.Type().Elem())
		seen[v.Pointer()] = c
		c.Elem().Set(deepCopy(v.Elem(), seen))
		return c

	case reflect.Map:
		if v.IsNil() {
			return v
		}
		if c, ok := seen[v.Pointer()]; ok && c.Type() == v.Type() {
			return c
		}
		c := reflect.MakeMapWithSize(v.Type(), v.Len())
		seen[v.Pointer()] = c
		iter := v.MapRange()
		for iter.Next() {
			c.SetMapIndex(iter.Key(), deepCopy(iter.Value(), seen))
		}
		return c

	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		c := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			c.Index(i).Set(deepCopy(v.Index(i), seen))
		}
		return c

	case reflect.Array:
		c := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			c.Index(i).Set(deepCopy(v.Index(i), seen))
		}
		return c

	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		c := reflect.New(v.Type()).Elem()
		c.Set(deepCopy(v.Elem(), seen))
		return c

	case reflect.Struct:
		c := reflect.New(v.Type()).Elem()
		c.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if f := c.Field(i); f.CanSet() {
				f.Set(deepCopy(v.Field(i), seen))
			}
		}
		return c

	default:
		return v
	}
}
