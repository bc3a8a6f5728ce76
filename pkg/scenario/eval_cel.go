package scenario

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// celEvaluator compiles reaction bodies with github.com/google/cel-go.
type celEvaluator struct{}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator() Evaluator {
	return celEvaluator{}
}

func (celEvaluator) Name() string { return "cel" }

// celProgram binds get and peek at environment construction, so the
// lookups are routed through fields set before each run.
type celProgram struct {
	program celgo.Program
	get     Lookup
	peek    Lookup
}

func (celEvaluator) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	p := &celProgram{}
	env, err := celgo.NewEnv(
		celgo.Function("get", celgo.Overload("get_string",
			[]*celgo.Type{celgo.StringType}, celgo.DynType,
			celgo.UnaryBinding(func(v ref.Val) ref.Val { return p.lookup(p.get, v) }),
		)),
		celgo.Function("peek", celgo.Overload("peek_string",
			[]*celgo.Type{celgo.StringType}, celgo.DynType,
			celgo.UnaryBinding(func(v ref.Val) ref.Val { return p.lookup(p.peek, v) }),
		)),
	)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	p.program = prg
	return p, nil
}

func (p *celProgram) lookup(fn Lookup, v ref.Val) ref.Val {
	name, ok := v.Value().(string)
	if !ok {
		return types.NewErr("cell name must be a string")
	}
	if fn == nil {
		return types.NewErr("no lookup bound for %s", name)
	}
	value, err := fn(name)
	if err != nil {
		return types.WrapErr(err)
	}
	return types.DefaultTypeAdapter.NativeToValue(value)
}

func (p *celProgram) Eval(get, peek Lookup) (any, error) {
	p.get, p.peek = get, peek
	defer func() { p.get, p.peek = nil, nil }()
	out, _, err := p.program.Eval(celgo.NoVars())
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}
