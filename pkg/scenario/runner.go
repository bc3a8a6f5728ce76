package scenario

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/reactive"
)

// Result is the outcome of one scenario run.
type Result struct {
	Scenario string
	Path     string
	Passed   bool

	// Failures holds failed expectations and the error that stopped the
	// run, if any.
	Failures []*errors.RxError

	Trace    *Trace
	Stats    reactive.Stats
	Duration time.Duration
}

// Runner builds a store per scenario and drives it step by step.
type Runner struct {
	evaluators   map[string]Evaluator
	lang         string
	storeOptions []reactive.Option
	observers    []reactive.Observer
	afterStep    func(*reactive.Store)
	logger       *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLang sets the language used when neither a cell nor its scenario
// names one.
func WithLang(lang string) Option {
	return func(r *Runner) {
		if lang != "" {
			r.lang = lang
		}
	}
}

// WithStoreOptions adds options to every store the runner creates.
func WithStoreOptions(opts ...reactive.Option) Option {
	return func(r *Runner) {
		r.storeOptions = append(r.storeOptions, opts...)
	}
}

// WithObservers attaches observers to every store the runner creates.
func WithObservers(obs ...reactive.Observer) Option {
	return func(r *Runner) {
		r.observers = append(r.observers, obs...)
	}
}

// WithAfterStep calls fn with the store after construction and after every
// step, on the runner's goroutine.
func WithAfterStep(fn func(*reactive.Store)) Option {
	return func(r *Runner) {
		r.afterStep = fn
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEvaluator registers an additional expression language.
func WithEvaluator(e Evaluator) Option {
	return func(r *Runner) {
		if e != nil {
			r.evaluators[e.Name()] = e
		}
	}
}

// NewRunner creates a runner with every evaluator available in this build.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		evaluators: Evaluators(),
		lang:       "expr",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// evalError is the panic value of a reaction whose expression failed.
type evalError struct {
	cell string
	err  error
}

func (e *evalError) Error() string {
	return fmt.Sprintf("evaluating %s: %v", e.cell, e.err)
}

func (e *evalError) Unwrap() error { return e.err }

// handle is the part of every accessor a scenario drives.
type handle interface {
	Set(v any)
	InertSet(v any)
	SoftGet() (any, bool)
	ResetToDefault()
	Remove() (any, bool)
}

// run is the state of one scenario execution.
type run struct {
	sc      *Scenario
	store   *reactive.Store
	cells   map[string]handle
	trace   *traceObserver
	result  *Result
	runner  *Runner
	log     *slog.Logger
	current int
}

// Run executes sc. The returned error reports a scenario that could not be
// started (unknown language, expression that does not compile); failed
// expectations and faults are reported in the Result.
func (r *Runner) Run(sc *Scenario) (*Result, error) {
	start := time.Now()
	tr := &traceObserver{}

	opts := append([]reactive.Option{}, r.storeOptions...)
	opts = append(opts, engineOptions(sc.Engine)...)
	opts = append(opts,
		reactive.WithLogger(r.logger),
		reactive.WithObserver(tr),
		reactive.WithObserver(r.observers...),
	)

	x := &run{
		sc:     sc,
		store:  reactive.New(opts...),
		cells:  make(map[string]handle, len(sc.Cells)),
		trace:  tr,
		runner: r,
		log:    r.logger.With("scenario", sc.Name),
		result: &Result{
			Scenario: sc.Name,
			Path:     sc.Path,
			Trace:    &Trace{Scenario: sc.Name},
		},
	}

	programs, err := x.compile()
	if err != nil {
		return nil, err
	}

	x.log.Debug("scenario started", "cells", len(sc.Cells), "steps", len(sc.Steps))
	if x.build(programs) {
		for i := range sc.Steps {
			if !x.step(i) {
				break
			}
		}
	}

	x.result.Passed = len(x.result.Failures) == 0
	x.result.Stats = x.store.Stats()
	x.result.Duration = time.Since(start)
	x.log.Debug("scenario finished", "passed", x.result.Passed, "duration", x.result.Duration)
	return x.result, nil
}

func engineOptions(e *EngineSpec) []reactive.Option {
	if e == nil {
		return nil
	}
	var opts []reactive.Option
	if e.SkipUnchanged != nil {
		opts = append(opts, reactive.WithSkipUnchanged(*e.SkipUnchanged))
	}
	if e.MaxDepth != nil {
		opts = append(opts, reactive.WithMaxDepth(*e.MaxDepth))
	}
	if e.MaxRecomputes != nil {
		opts = append(opts, reactive.WithMaxRecomputes(*e.MaxRecomputes))
	}
	return opts
}

// compile resolves the language of every reaction and compiles its body.
func (x *run) compile() (map[string]Program, error) {
	programs := make(map[string]Program)
	for _, c := range x.sc.Cells {
		if c.Kind != KindReaction {
			continue
		}
		lang := firstNonEmpty(c.Lang, x.sc.Lang, x.runner.lang)
		ev, ok := x.runner.evaluators[lang]
		if !ok {
			return nil, x.locate(errors.New("S006").WithSubject(lang), c.Line)
		}
		prog, err := ev.Compile(c.Expr)
		if err != nil {
			return nil, x.locate(errors.New("S004").
				WithSubject(c.Name).
				WithDetail(fmt.Sprintf("%s: %v", lang, err)).
				Wrap(err), c.Line)
		}
		programs[c.Name] = prog
	}
	return programs, nil
}

// build registers every cell in declaration order.
func (x *run) build(programs map[string]Program) bool {
	err := protect(func() error {
		for _, c := range x.sc.Cells {
			x.register(c, programs[c.Name])
		}
		return nil
	})
	entry := TraceEntry{Action: "build", Events: x.trace.take(), State: x.state()}
	ok := x.settle(&entry, err, 0)
	x.result.Trace.Entries = append(x.result.Trace.Entries, entry)
	x.afterStep()
	return ok
}

func (x *run) register(c CellSpec, prog Program) {
	s := x.store
	key := reactive.Key(c.Name)

	var opts []reactive.CellOption
	if c.AlwaysRun {
		opts = append(opts, reactive.AlwaysRun())
	}
	if c.Suspended {
		opts = append(opts, reactive.Suspended())
	}

	switch c.Kind {
	case KindAtom:
		init := normalize(c.Init)
		x.cells[c.Name] = reactive.NewAtom(s, key, func() any { return init }, opts...)
	case KindUndo:
		init := normalize(c.Init)
		x.cells[c.Name] = reactive.NewAtomUndo(s, key, func() any { return init }, opts...)
	case KindReaction:
		name := c.Name
		x.cells[c.Name] = reactive.NewReaction(s, key, func() any {
			return x.evaluate(name, prog)
		}, opts...)
	}
}

// evaluate runs a reaction body. A usage fault raised by a lookup is
// re-raised as is, so callers see the store's own fault rather than the
// evaluator's wrapping of it.
func (x *run) evaluate(name string, prog Program) any {
	var fault *reactive.UsageError
	lookup := func(read func(reactive.CellKey) any) Lookup {
		return func(cell string) (v any, err error) {
			err = reactive.Catch(func() { v = read(reactive.Key(cell)) })
			if err != nil && fault == nil {
				stderrors.As(err, &fault)
			}
			return v, err
		}
	}
	get := lookup(func(k reactive.CellKey) any { return reactive.Observe[any](x.store, k) })
	peek := lookup(func(k reactive.CellKey) any { return reactive.Get[any](x.store, k) })

	v, err := prog.Eval(get, peek)
	if fault != nil {
		panic(fault)
	}
	if err != nil {
		panic(&evalError{cell: name, err: err})
	}
	return normalize(v)
}

// step runs step i and reports whether the run should continue.
func (x *run) step(i int) bool {
	st := x.sc.Steps[i]
	x.current = i + 1

	err := protect(func() error { return x.exec(st) })
	entry := TraceEntry{
		Step:   i + 1,
		Line:   st.Line,
		Action: st.String(),
		Events: x.trace.take(),
		State:  x.state(),
	}
	ok := x.settle(&entry, err, st.Line)
	x.result.Trace.Entries = append(x.result.Trace.Entries, entry)
	x.afterStep()
	return ok
}

// settle records the outcome of a step. Expectation failures let the run
// continue; anything else stops it.
func (x *run) settle(entry *TraceEntry, err error, line int) bool {
	if err == nil {
		entry.Outcome = "ok"
		return true
	}
	var re *errors.RxError
	if stderrors.As(err, &re) && re.Code == "S005" {
		entry.Outcome = "FAIL " + re.Detail
		x.fail(re, line)
		return true
	}
	re = errors.FromError(err, "X002")
	entry.Outcome = "ERROR " + err.Error()
	x.fail(re, line)
	return false
}

func (x *run) fail(e *errors.RxError, line int) {
	x.log.Debug("step failed", "step", x.current, "code", e.Code, "error", e.Error())
	x.result.Failures = append(x.result.Failures, x.locate(e, line))
}

func (x *run) locate(e *errors.RxError, line int) *errors.RxError {
	if x.sc.Path != "" && line > 0 && e.Location == nil {
		e.WithLocation(x.sc.Path, line, 0)
	}
	return e
}

func (x *run) afterStep() {
	if x.runner.afterStep != nil {
		x.runner.afterStep(x.store)
	}
}

// exec performs one step. Usage faults panic through it.
func (x *run) exec(st Step) error {
	s := x.store
	switch st.Op {
	case OpSet:
		x.cells[st.Cell].Set(normalize(st.Value))
	case OpInertSet:
		x.cells[st.Cell].InertSet(normalize(st.Value))
	case OpUndo:
		s.Undo(reactive.Key(st.Cell))
	case OpTravelBackwards:
		reactive.TravelBackwards(s)
	case OpReset:
		x.cells[st.Cell].ResetToDefault()
	case OpTrigger:
		s.ForceTrigger(reactive.Key(st.Cell))
	case OpRemove:
		x.cells[st.Cell].Remove()
	case OpExpect:
		return x.expect(st.Values)
	case OpExpectFault:
		return x.expectFault(st)
	default:
		return errors.New("S003").WithSubject(st.Op)
	}
	return nil
}

func (x *run) expect(values map[string]any) error {
	var mismatches []string
	for _, name := range x.order(values) {
		want := values[name]
		got, ok := x.cells[name].SoftGet()
		switch {
		case want == nil && ok:
			mismatches = append(mismatches, fmt.Sprintf("%s: got %s, want <missing>", name, formatValue(got, ok)))
		case want != nil && (!ok || !equalValues(got, want)):
			mismatches = append(mismatches, fmt.Sprintf("%s: got %s, want %s", name, formatValue(got, ok), formatValue(normalize(want), true)))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return errors.New("S005").WithDetail(strings.Join(mismatches, "; "))
}

// expectFault runs the wrapped step in a transaction, so the store is left
// as it was before the step whether or not the fault occurs.
func (x *run) expectFault(st Step) error {
	var inner error
	err := x.store.Transaction(func() {
		inner = x.exec(*st.Do)
	})
	if inner != nil {
		return inner
	}
	if err == nil {
		return errors.New("S005").WithDetail(fmt.Sprintf("expected fault %s, none raised", st.Code))
	}
	var ue *reactive.UsageError
	if stderrors.As(err, &ue) && st.Code != "" && ue.Code != st.Code {
		return errors.New("S005").WithDetail(fmt.Sprintf("expected fault %s, got %s (%v)", st.Code, ue.Code, ue))
	}
	return nil
}

// order returns the names in values in cell declaration order.
func (x *run) order(values map[string]any) []string {
	names := make([]string, 0, len(values))
	for _, c := range x.sc.Cells {
		if _, ok := values[c.Name]; ok {
			names = append(names, c.Name)
		}
	}
	return names
}

// state renders every cell in declaration order.
func (x *run) state() string {
	parts := make([]string, 0, len(x.sc.Cells))
	for _, c := range x.sc.Cells {
		h, ok := x.cells[c.Name]
		if !ok {
			continue
		}
		v, has := h.SoftGet()
		parts = append(parts, c.Name+"="+formatValue(v, has))
	}
	return strings.Join(parts, " ")
}

// protect runs fn and converts usage faults and expression failures into
// errors. Other panics are re-raised.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case *reactive.UsageError:
				err = v
			case *evalError:
				err = v
			default:
				panic(r)
			}
		}
	}()
	return fn()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
