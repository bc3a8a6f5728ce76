//go:build js_eval

package scenario

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsEvaluator compiles reaction bodies with github.com/dop251/goja.
type jsEvaluator struct{}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator() Evaluator {
	return jsEvaluator{}
}

func (jsEvaluator) Name() string { return "js" }

func (jsEvaluator) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	program, err := goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", expression), false)
	if err != nil {
		return nil, err
	}
	return &jsProgram{program: program}, nil
}

type jsProgram struct {
	program *goja.Program
}

func (p *jsProgram) Eval(get, peek Lookup) (any, error) {
	vm := goja.New()
	bind := func(fn Lookup) func(string) any {
		return func(name string) any {
			v, err := fn(name)
			if err != nil {
				panic(vm.NewGoError(err))
			}
			return v
		}
	}
	if err := vm.Set("get", bind(get)); err != nil {
		return nil, err
	}
	if err := vm.Set("peek", bind(peek)); err != nil {
		return nil, err
	}
	value, err := vm.RunProgram(p.program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool {
	return true
}
