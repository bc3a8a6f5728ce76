package scenario

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reactive/pkg/reactive"
)

func runYAML(t *testing.T, src string, opts ...Option) *Result {
	t.Helper()
	sc, err := Parse([]byte(src))
	require.NoError(t, err)
	res, err := NewRunner(opts...).Run(sc)
	require.NoError(t, err)
	return res
}

func TestRunGolden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, file := range files {
		sc, err := Load(file)
		require.NoError(t, err)

		t.Run(sc.Name, func(t *testing.T) {
			res, err := NewRunner().Run(sc)
			require.NoError(t, err)
			for _, f := range res.Failures {
				t.Errorf("failure: %v (%s)", f, f.Detail)
			}
			assert.True(t, res.Passed)
			g.Assert(t, sc.Name, []byte(res.Trace.String()))
		})
	}
}

func TestRun_FailedExpectationContinues(t *testing.T) {
	res := runYAML(t, `
name: mismatch
cells:
  - {name: a, kind: atom, init: 1}
  - {name: twice, kind: reaction, expr: 'get("a") * 2'}
steps:
  - {op: expect, values: {twice: 3}}
  - {op: set, cell: a, value: 5}
  - {op: expect, values: {twice: 10}}
`)

	assert.False(t, res.Passed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "S005", res.Failures[0].Code)
	assert.Equal(t, "twice: got 2, want 3", res.Failures[0].Detail)

	require.Len(t, res.Trace.Entries, 4)
	assert.Equal(t, "FAIL twice: got 2, want 3", res.Trace.Entries[1].Outcome)
	assert.Equal(t, "ok", res.Trace.Entries[3].Outcome)
}

func TestRun_UnexpectedFaultStops(t *testing.T) {
	res := runYAML(t, `
name: stop
cells:
  - {name: a, kind: atom, init: 1}
steps:
  - {op: undo, cell: a}
  - {op: set, cell: a, value: 2}
`)

	assert.False(t, res.Passed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, reactive.CodeNotUndoable, res.Failures[0].Code)
	assert.Equal(t, "a", res.Failures[0].Subject)
	require.Len(t, res.Trace.Entries, 2, "the run should stop at the fault")
	assert.True(t, strings.HasPrefix(res.Trace.Entries[1].Outcome, "ERROR "))
}

func TestRun_ExpectFault(t *testing.T) {
	t.Run("wrong code", func(t *testing.T) {
		res := runYAML(t, `
name: wrong
cells:
  - {name: a, kind: atom, init: 1}
steps:
  - {op: expect_fault, code: R009, do: {op: undo, cell: a}}
`)
		assert.False(t, res.Passed)
		require.Len(t, res.Failures, 1)
		assert.Contains(t, res.Failures[0].Detail, "expected fault R009, got R003")
	})

	t.Run("no fault", func(t *testing.T) {
		res := runYAML(t, `
name: none
cells:
  - {name: a, kind: atom, init: 1}
steps:
  - {op: expect_fault, code: R001, do: {op: set, cell: a, value: 2}}
  - {op: expect, values: {a: 2}}
`)
		assert.False(t, res.Passed)
		require.Len(t, res.Failures, 1)
		assert.Equal(t, "expected fault R001, none raised", res.Failures[0].Detail)
	})

	t.Run("rolls back", func(t *testing.T) {
		res := runYAML(t, `
name: rollback
engine: {max_recomputes: 1}
cells:
  - {name: a, kind: atom, init: 1}
  - {name: b, kind: reaction, expr: 'get("a") + 1'}
  - {name: c, kind: reaction, expr: 'get("a") + 2'}
steps:
  - {op: expect_fault, code: R011, do: {op: set, cell: a, value: 10}}
  - {op: expect, values: {a: 1, b: 2, c: 3}}
`)
		for _, f := range res.Failures {
			t.Errorf("failure: %v (%s)", f, f.Detail)
		}
		assert.True(t, res.Passed)
	})
}

func TestRun_RemoveAndReset(t *testing.T) {
	res := runYAML(t, `
name: remove
cells:
  - {name: a, kind: atom, init: 7}
steps:
  - {op: set, cell: a, value: 1}
  - {op: remove, cell: a}
  - {op: expect, values: {a: null}}
  - {op: reset, cell: a}
  - {op: expect, values: {a: 7}}
`)
	for _, f := range res.Failures {
		t.Errorf("failure: %v (%s)", f, f.Detail)
	}
	assert.True(t, res.Passed)
	assert.Equal(t, "state a=<missing>", "state "+res.Trace.Entries[2].State)
}

func TestRun_PeekDoesNotSubscribe(t *testing.T) {
	res := runYAML(t, `
name: peek
cells:
  - {name: a, kind: atom, init: 1}
  - {name: b, kind: atom, init: 10}
  - {name: sum, kind: reaction, expr: 'peek("a") + get("b")'}
steps:
  - {op: set, cell: a, value: 2}
  - {op: expect, values: {sum: 11}}
  - {op: set, cell: b, value: 20}
  - {op: expect, values: {sum: 22}}
`)
	for _, f := range res.Failures {
		t.Errorf("failure: %v (%s)", f, f.Detail)
	}
	assert.True(t, res.Passed)
	assert.Empty(t, res.Trace.Entries[1].Events, "peek must not create a dependency")
}

func TestRun_SkipUnchanged(t *testing.T) {
	res := runYAML(t, `
name: cutoff
engine: {skip_unchanged: true}
cells:
  - {name: n, kind: atom, init: 1}
  - {name: sign, kind: reaction, expr: 'get("n") > 0'}
  - {name: label, kind: reaction, expr: 'get("sign") ? "pos" : "neg"'}
  - {name: log, kind: reaction, expr: 'get("sign")', always_run: true}
steps:
  - {op: set, cell: n, value: 5}
`)
	require.True(t, res.Passed)
	assert.Equal(t, []string{
		"recompute sign depth=1 changed=false",
		"recompute log depth=2 changed=false",
	}, res.Trace.Entries[1].Events)
	assert.Equal(t, `state n=5 sign=true label="pos" log=true`, "state "+res.Trace.Entries[1].State)
}

func TestRun_SuspendedReaction(t *testing.T) {
	res := runYAML(t, `
name: suspended
cells:
  - {name: a, kind: atom, init: 2}
  - {name: sq, kind: reaction, expr: 'get("a") * get("a")', suspended: true}
steps:
  - {op: expect, values: {sq: null}}
  - {op: trigger, cell: sq}
  - {op: expect, values: {sq: 4}}
  - {op: set, cell: a, value: 3}
  - {op: expect, values: {sq: 9}}
`)
	for _, f := range res.Failures {
		t.Errorf("failure: %v (%s)", f, f.Detail)
	}
	assert.True(t, res.Passed)
}

func TestRun_EvaluatorsAgree(t *testing.T) {
	for _, lang := range Languages() {
		t.Run(lang, func(t *testing.T) {
			res := runYAML(t, `
name: agree
cells:
  - {name: a, kind: atom, init: 3}
  - {name: b, kind: atom, init: 4}
  - {name: r, kind: reaction, expr: 'get("a") + get("b") * 2'}
steps:
  - {op: expect, values: {r: 11}}
  - {op: set, cell: b, value: 0}
  - {op: expect, values: {r: 3}}
`, WithLang(lang))
			for _, f := range res.Failures {
				t.Errorf("failure: %v (%s)", f, f.Detail)
			}
			assert.True(t, res.Passed)
		})
	}
}

func TestRun_JSEvaluator(t *testing.T) {
	if !jsEvaluatorAvailable() {
		t.Skip("built without js_eval")
	}
	res := runYAML(t, `
name: js
lang: js
cells:
  - {name: items, kind: atom, init: 3}
  - {name: label, kind: reaction, expr: 'get("items") + " items"'}
steps:
  - {op: expect, values: {label: "3 items"}}
`)
	assert.True(t, res.Passed)
}

func TestRun_SetupErrors(t *testing.T) {
	t.Run("compile", func(t *testing.T) {
		sc, err := Parse([]byte("name: x\ncells:\n  - {name: r, kind: reaction, expr: 'get(\"a\") +'}\n"))
		require.NoError(t, err)
		_, err = NewRunner().Run(sc)
		require.Error(t, err)
		assertCode(t, err, "S004")
	})

	t.Run("language", func(t *testing.T) {
		sc, err := Parse([]byte("name: x\nlang: lua\ncells:\n  - {name: r, kind: reaction, expr: '1'}\n"))
		require.NoError(t, err)
		_, err = NewRunner().Run(sc)
		require.Error(t, err)
		assertCode(t, err, "S006")
	})
}

func TestRun_BuildFault(t *testing.T) {
	res := runYAML(t, `
name: build
cells:
  - {name: r, kind: reaction, expr: 'get("ghost")'}
  - {name: ghost, kind: atom, init: 1}
steps:
  - {op: expect, values: {r: 1}}
`)
	assert.False(t, res.Passed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, reactive.CodeCellMissing, res.Failures[0].Code)
	assert.Len(t, res.Trace.Entries, 1, "steps must not run after a failed build")
}

func TestRun_Hooks(t *testing.T) {
	calls := 0
	var seen []reactive.RecomputeEvent
	obs := &recomputeRecorder{events: &seen}

	res := runYAML(t, `
name: hooks
cells:
  - {name: a, kind: atom, init: 1}
steps:
  - {op: set, cell: a, value: 2}
  - {op: set, cell: a, value: 3}
`, WithAfterStep(func(*reactive.Store) { calls++ }), WithObservers(obs))

	assert.True(t, res.Passed)
	assert.Equal(t, 3, calls)
	assert.Len(t, seen, 1)
	assert.Equal(t, 2, res.Stats.Writes)
}

type recomputeRecorder struct {
	reactive.NopObserver
	events *[]reactive.RecomputeEvent
}

func (r *recomputeRecorder) OnRecompute(e reactive.RecomputeEvent) {
	*r.events = append(*r.events, e)
}
