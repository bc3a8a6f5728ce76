package scenario

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprEvaluator compiles reaction bodies with github.com/expr-lang/expr.
type exprEvaluator struct{}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator() Evaluator {
	return exprEvaluator{}
}

func (exprEvaluator) Name() string { return "expr" }

// exprEnv is the environment every program is compiled against and run
// with. The functions are swapped per run.
type exprEnv struct {
	Get  func(name string) (any, error) `expr:"get"`
	Peek func(name string) (any, error) `expr:"peek"`
}

func (exprEvaluator) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	program, err := exprlang.Compile(expression, exprlang.Env(exprEnv{}))
	if err != nil {
		return nil, err
	}
	return &exprProgram{program: program}, nil
}

type exprProgram struct {
	program *exprvm.Program
}

func (p *exprProgram) Eval(get, peek Lookup) (any, error) {
	return exprlang.Run(p.program, exprEnv{Get: get, Peek: peek})
}
