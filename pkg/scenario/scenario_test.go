package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reactive/internal/errors"
)

func TestLoad_ValidFile(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "diff.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "diff", sc.Name)
	assert.Equal(t, filepath.Join("testdata", "diff.yaml"), sc.Path)
	require.Len(t, sc.Cells, 3)
	assert.Equal(t, KindReaction, sc.Cells[2].Kind)
	assert.Equal(t, `get("a") - get("b")`, sc.Cells[2].Expr)
	require.Len(t, sc.Steps, 8)
	assert.Equal(t, OpSet, sc.Steps[0].Op)
	assert.Equal(t, 10, sc.Steps[0].Value)
}

func TestLoad_RecordsLines(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "diff.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 4, sc.Cells[0].Line)
	assert.Equal(t, 8, sc.Steps[0].Line)
	assert.Equal(t, 15, sc.Steps[7].Line)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assertCode(t, err, "S001")
}

func TestParse_NestedDoStep(t *testing.T) {
	sc, err := Parse([]byte(`
name: nested
cells:
  - {name: r, kind: reaction, expr: '1'}
steps:
  - op: expect_fault
    code: R009
    do: {op: set, cell: r, value: 2}
`))
	require.NoError(t, err)
	require.NotNil(t, sc.Steps[0].Do)
	assert.Equal(t, "expect_fault R009 (set r = 2)", sc.Steps[0].String())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		code string
	}{
		{
			name: "malformed",
			yaml: "name: [",
			code: "S001",
		},
		{
			name: "unknown field",
			yaml: "name: x\ncels: []\n",
			code: "S001",
		},
		{
			name: "missing name",
			yaml: "cells: []\nsteps: []\n",
			code: "S001",
		},
		{
			name: "unknown kind",
			yaml: "name: x\ncells:\n  - {name: a, kind: signal}\n",
			code: "S001",
		},
		{
			name: "reaction without expr",
			yaml: "name: x\ncells:\n  - {name: a, kind: reaction}\n",
			code: "S001",
		},
		{
			name: "duplicate cell",
			yaml: "name: x\ncells:\n  - {name: a, kind: atom}\n  - {name: a, kind: atom}\n",
			code: "S001",
		},
		{
			name: "unknown op",
			yaml: "name: x\ncells:\n  - {name: a, kind: atom}\nsteps:\n  - {op: poke, cell: a}\n",
			code: "S003",
		},
		{
			name: "unknown cell",
			yaml: "name: x\ncells:\n  - {name: a, kind: atom}\nsteps:\n  - {op: set, cell: b, value: 1}\n",
			code: "S002",
		},
		{
			name: "unknown expected cell",
			yaml: "name: x\ncells:\n  - {name: a, kind: atom}\nsteps:\n  - {op: expect, values: {b: 1}}\n",
			code: "S002",
		},
		{
			name: "expect_fault without do",
			yaml: "name: x\ncells:\n  - {name: a, kind: atom}\nsteps:\n  - {op: expect_fault, code: R001}\n",
			code: "S001",
		},
		{
			name: "expect_fault wrapping expect",
			yaml: "name: x\ncells:\n  - {name: a, kind: atom}\nsteps:\n  - {op: expect_fault, do: {op: expect, values: {a: 1}}}\n",
			code: "S001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assertCode(t, err, tt.code)
		})
	}
}

func TestLoad_InvalidFileHasLocation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	content := "name: bad\ncells:\n  - {name: a, kind: atom}\nsteps:\n  - {op: set, cell: a, value: 1}\n  - {op: set, cell: z, value: 1}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	require.Error(t, err)

	var re *errors.RxError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "S002", re.Code)
	assert.Equal(t, "z", re.Subject)
	require.NotNil(t, re.Location)
	assert.Equal(t, path, re.Location.File)
	assert.Equal(t, 6, re.Location.Line)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var re *errors.RxError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, code, re.Code, "error: %v", err)
}
