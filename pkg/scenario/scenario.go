package scenario

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reactive/internal/errors"
)

// Scenario is a scripted sequence of writes and expectations against a
// freshly built store.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Lang is the expression language for reactions that do not name their
	// own. Empty means the runner default.
	Lang string `yaml:"lang,omitempty"`

	// Engine overrides store behavior for this scenario.
	Engine *EngineSpec `yaml:"engine,omitempty"`

	// Cells are registered in order before the first step runs.
	Cells []CellSpec `yaml:"cells"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Path is the file the scenario was loaded from, if any.
	Path string `yaml:"-"`
}

// EngineSpec overrides store settings for one scenario.
type EngineSpec struct {
	SkipUnchanged *bool `yaml:"skip_unchanged,omitempty"`
	MaxDepth      *int  `yaml:"max_depth,omitempty"`
	MaxRecomputes *int  `yaml:"max_recomputes,omitempty"`
}

// Cell kinds.
const (
	KindAtom     = "atom"
	KindUndo     = "undo"
	KindReaction = "reaction"
)

// CellSpec declares one cell.
type CellSpec struct {
	Name string `yaml:"name"`

	// Kind is atom, undo or reaction.
	Kind string `yaml:"kind"`

	// Init is the initial value of an atom.
	Init any `yaml:"init,omitempty"`

	// Expr is the body of a reaction.
	Expr string `yaml:"expr,omitempty"`

	// Lang overrides the scenario language for this reaction.
	Lang string `yaml:"lang,omitempty"`

	AlwaysRun bool `yaml:"always_run,omitempty"`
	Suspended bool `yaml:"suspended,omitempty"`

	// Line is the source line of the declaration.
	Line int `yaml:"-"`
}

// Step operations.
const (
	OpSet             = "set"
	OpInertSet        = "inert_set"
	OpUndo            = "undo"
	OpTravelBackwards = "travel_backwards"
	OpReset           = "reset"
	OpTrigger         = "trigger"
	OpRemove          = "remove"
	OpExpect          = "expect"
	OpExpectFault     = "expect_fault"
)

// Ops lists every step operation.
var Ops = []string{
	OpSet, OpInertSet, OpUndo, OpTravelBackwards, OpReset,
	OpTrigger, OpRemove, OpExpect, OpExpectFault,
}

// Step is one scripted action or check.
type Step struct {
	Op string `yaml:"op"`

	// Cell is the target of set, inert_set, undo, reset, trigger and remove.
	Cell string `yaml:"cell,omitempty"`

	// Value is written by set and inert_set.
	Value any `yaml:"value,omitempty"`

	// Values maps cell names to expected values for expect. A null value
	// expects the cell to hold no value.
	Values map[string]any `yaml:"values,omitempty"`

	// Code is the fault code expect_fault requires, e.g. R003.
	Code string `yaml:"code,omitempty"`

	// Do is the step expect_fault runs.
	Do *Step `yaml:"do,omitempty"`

	// Line is the source line of the step.
	Line int `yaml:"-"`
}

// String renders the step for traces.
func (s Step) String() string {
	switch s.Op {
	case OpSet, OpInertSet:
		return fmt.Sprintf("%s %s = %v", s.Op, s.Cell, s.Value)
	case OpTravelBackwards:
		return s.Op
	case OpExpect:
		return s.Op + " " + formatValues(s.Values)
	case OpExpectFault:
		if s.Do == nil {
			return fmt.Sprintf("%s %s", s.Op, s.Code)
		}
		return fmt.Sprintf("%s %s (%s)", s.Op, s.Code, s.Do.String())
	default:
		return fmt.Sprintf("%s %s", s.Op, s.Cell)
	}
}

// Load reads and parses a scenario YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("S001").WithSubject(path).Wrap(err)
	}
	sc, err := parse(data, path)
	if err != nil {
		return nil, err
	}
	sc.Path = path
	return sc, nil
}

// Parse parses scenario YAML held in memory.
func Parse(data []byte) (*Scenario, error) {
	return parse(data, "")
}

func parse(data []byte, path string) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		e := errors.New("S001").WithDetail("Failed to parse YAML: " + err.Error()).Wrap(err)
		if path != "" {
			e.WithSubject(path)
		}
		return nil, e
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err == nil {
		annotateLines(&root, &sc)
	}

	if err := sc.validate(); err != nil {
		if path != "" && err.Location == nil {
			line := 1
			if err.line > 0 {
				line = err.line
			}
			err.RxError.WithLocation(path, line, 0)
		}
		return nil, err.RxError
	}
	return &sc, nil
}

// annotateLines copies source lines from the node tree onto cells and steps.
func annotateLines(root *yaml.Node, sc *Scenario) {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, val := doc.Content[i], doc.Content[i+1]
		if val.Kind != yaml.SequenceNode {
			continue
		}
		switch key.Value {
		case "cells":
			for j, n := range val.Content {
				if j < len(sc.Cells) {
					sc.Cells[j].Line = n.Line
				}
			}
		case "steps":
			for j, n := range val.Content {
				if j < len(sc.Steps) {
					sc.Steps[j].Line = n.Line
					if sc.Steps[j].Do != nil {
						sc.Steps[j].Do.Line = n.Line
					}
				}
			}
		}
	}
}

// validationError is an RxError that remembers the offending line.
type validationError struct {
	*errors.RxError
	line int
}

// Validate checks names, kinds and ops, and that every step refers to a
// declared cell.
func (sc *Scenario) Validate() error {
	if err := sc.validate(); err != nil {
		return err.RxError
	}
	return nil
}

func (sc *Scenario) validate() *validationError {
	if sc.Name == "" {
		return &validationError{RxError: errors.New("S001").WithDetail("name is required")}
	}

	names := make(map[string]string, len(sc.Cells))
	for i, c := range sc.Cells {
		fail := func(detail string) *validationError {
			return &validationError{
				RxError: errors.New("S001").WithDetail(fmt.Sprintf("cells[%d]: %s", i, detail)),
				line:    c.Line,
			}
		}
		if c.Name == "" {
			return fail("name is required")
		}
		if _, dup := names[c.Name]; dup {
			return fail("duplicate cell " + c.Name)
		}
		switch c.Kind {
		case KindAtom, KindUndo:
			if c.Expr != "" {
				return fail("atoms take init, not expr")
			}
		case KindReaction:
			if c.Expr == "" {
				return fail("reaction " + c.Name + " needs expr")
			}
		default:
			return fail(fmt.Sprintf("unknown kind %q (want atom, undo or reaction)", c.Kind))
		}
		names[c.Name] = c.Kind
	}

	for i := range sc.Steps {
		if err := validateStep(&sc.Steps[i], i, names, true); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(st *Step, i int, names map[string]string, top bool) *validationError {
	if !slices.Contains(Ops, st.Op) {
		return &validationError{RxError: errors.New("S003").WithSubject(st.Op), line: st.Line}
	}
	needsCell := func() *validationError {
		if st.Cell == "" {
			return &validationError{
				RxError: errors.New("S001").WithDetail(fmt.Sprintf("steps[%d]: %s needs a cell", i, st.Op)),
				line:    st.Line,
			}
		}
		if _, ok := names[st.Cell]; !ok {
			return &validationError{RxError: errors.New("S002").WithSubject(st.Cell), line: st.Line}
		}
		return nil
	}

	switch st.Op {
	case OpSet, OpInertSet, OpUndo, OpReset, OpTrigger, OpRemove:
		return needsCell()
	case OpExpect:
		for name := range st.Values {
			if _, ok := names[name]; !ok {
				return &validationError{RxError: errors.New("S002").WithSubject(name), line: st.Line}
			}
		}
	case OpExpectFault:
		if !top || st.Do == nil {
			return &validationError{
				RxError: errors.New("S001").WithDetail(fmt.Sprintf("steps[%d]: expect_fault needs a do step and cannot nest", i)),
				line:    st.Line,
			}
		}
		if st.Do.Op == OpExpect || st.Do.Op == OpExpectFault {
			return &validationError{
				RxError: errors.New("S001").WithDetail(fmt.Sprintf("steps[%d]: expect_fault cannot wrap %s", i, st.Do.Op)),
				line:    st.Line,
			}
		}
		return validateStep(st.Do, i, names, false)
	}
	return nil
}
