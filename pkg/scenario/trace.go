package scenario

import (
	"fmt"
	"strings"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// TraceEntry records what one step did to the store.
type TraceEntry struct {
	// Step is the 1-based step number, 0 for cell construction.
	Step int

	// Line is the source line of the step, if known.
	Line int

	// Action describes the step.
	Action string

	// Events are the engine events the step caused, in order.
	Events []string

	// State lists every cell as name=value after the step.
	State string

	// Outcome is "ok", or a description of what went wrong.
	Outcome string
}

// Trace is the step-by-step record of a scenario run. Its text form is
// deterministic and used for golden comparisons.
type Trace struct {
	Scenario string
	Entries  []TraceEntry
}

// String renders the trace as text.
func (t *Trace) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario %s\n", t.Scenario)
	for _, e := range t.Entries {
		if e.Step == 0 {
			fmt.Fprintf(&b, "%s\n", e.Action)
		} else {
			fmt.Fprintf(&b, "step %d: %s\n", e.Step, e.Action)
		}
		for _, ev := range e.Events {
			fmt.Fprintf(&b, "  %s\n", ev)
		}
		if e.State != "" {
			fmt.Fprintf(&b, "  state %s\n", e.State)
		}
		if e.Outcome != "" {
			fmt.Fprintf(&b, "  %s\n", e.Outcome)
		}
	}
	return b.String()
}

// traceObserver turns engine events into trace lines for the current
// entry.
type traceObserver struct {
	reactive.NopObserver
	events []string
}

func (o *traceObserver) take() []string {
	ev := o.events
	o.events = nil
	return ev
}

func (o *traceObserver) OnRecompute(e reactive.RecomputeEvent) {
	o.events = append(o.events, fmt.Sprintf("recompute %s depth=%d changed=%t", e.Key, e.Depth, e.Changed))
}

func (o *traceObserver) OnPrune(e reactive.PruneEvent) {
	o.events = append(o.events, fmt.Sprintf("prune %s -> %s", e.Source, e.Owner))
}

func (o *traceObserver) OnUndo(e reactive.UndoEvent) {
	scope := "cell"
	if e.Global {
		scope = "global"
	}
	o.events = append(o.events, fmt.Sprintf("undo %s scope=%s remaining=%d", e.Key, scope, e.Remaining))
}

func (o *traceObserver) OnFault(e reactive.FaultEvent) {
	if e.Err == nil {
		return
	}
	o.events = append(o.events, fmt.Sprintf("fault %s %s %s", e.Err.Code, e.Err.Op, e.Err.Key))
}
