package scenario

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strings"
)

// Lookup resolves a cell name to its current value. Inside a reaction body
// the lookup registers the read as a dependency.
type Lookup func(name string) (any, error)

// Evaluator compiles reaction bodies written in one expression language.
//
// Every language exposes two functions to expressions:
//
//	get("name")   tracked read; the reaction re-runs when name changes
//	peek("name")  untracked read
type Evaluator interface {
	// Name is the language identifier used in scenario files.
	Name() string

	// Compile parses expression once; the program is run on every
	// recompute.
	Compile(expression string) (Program, error)
}

// Program is a compiled reaction body.
type Program interface {
	Eval(get, peek Lookup) (any, error)
}

// Evaluators returns the evaluators available in this build, keyed by
// name. The js evaluator requires the js_eval build tag.
func Evaluators() map[string]Evaluator {
	out := map[string]Evaluator{}
	for _, e := range []Evaluator{NewExprEvaluator(), NewCELEvaluator(), NewJSEvaluator()} {
		if e != nil {
			out[e.Name()] = e
		}
	}
	return out
}

// Languages lists the names of the available evaluators, sorted.
func Languages() []string {
	return slices.Sorted(maps.Keys(Evaluators()))
}

// normalize maps the numeric types the evaluators and the YAML decoder
// produce onto int64 and float64, and recurses into lists and maps.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return float64(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			out := make([]any, rv.Len())
			for i := range out {
				out[i] = normalize(rv.Index(i).Interface())
			}
			return out
		}
		return v
	}
}

// equalValues compares normalized values. Integers and floats compare by
// numeric value.
func equalValues(a, b any) bool {
	a, b = normalize(a), normalize(b)
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		}
	case float64:
		switch y := b.(type) {
		case int64:
			return x == float64(y)
		case float64:
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

// formatValue renders a cell value for traces.
func formatValue(v any, ok bool) string {
	if !ok {
		return "<missing>"
	}
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case nil:
		return "null"
	default:
		return fmt.Sprint(x)
	}
}

// formatValues renders an expect map with sorted keys.
func formatValues(values map[string]any) string {
	keys := slices.Sorted(maps.Keys(values))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := values[k]
		parts = append(parts, k+"="+formatValue(normalize(v), v != nil))
	}
	return strings.Join(parts, " ")
}
