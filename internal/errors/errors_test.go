package errors

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/reactive/pkg/reactive"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "fault code",
			code:    reactive.CodeCellMissing,
			wantMsg: "Cell holds no value of the requested type",
			wantCat: CategoryFault,
		},
		{
			name:    "scenario error",
			code:    "S002",
			wantMsg: "Unknown cell",
			wantCat: CategoryScenario,
		},
		{
			name:    "unknown error code",
			code:    "R999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestEveryFaultCodeRegistered(t *testing.T) {
	codes := []string{
		reactive.CodeCellMissing,
		reactive.CodeNoContext,
		reactive.CodeNotUndoable,
		reactive.CodeKeyCollision,
		reactive.CodeCheckedOut,
		reactive.CodeUnknownKey,
		reactive.CodeNoAdjacency,
		reactive.CodeNoReaction,
		reactive.CodeReadOnly,
		reactive.CodePropagationDepth,
		reactive.CodeBudgetExceeded,
	}
	for _, code := range codes {
		tmpl, ok := Lookup(code)
		if !ok {
			t.Errorf("fault code %s is not registered", code)
			continue
		}
		if tmpl.Suggestion == "" {
			t.Errorf("fault code %s has no suggestion", code)
		}
	}
	if len(Codes()) < len(codes) {
		t.Errorf("Codes() returned %d codes", len(Codes()))
	}
}

func TestFromFault(t *testing.T) {
	s := reactive.New()
	fault := reactive.Catch(func() {
		reactive.Get[int](s, reactive.Key("missing"))
	})

	re := FromError(fault, "X002")
	if re.Code != reactive.CodeCellMissing {
		t.Errorf("Code = %q, want %q", re.Code, reactive.CodeCellMissing)
	}
	if re.Subject != "missing" {
		t.Errorf("Subject = %q, want missing", re.Subject)
	}
	if !stderrors.Is(re, reactive.ErrCellMissing) {
		t.Error("expected errors.Is to reach the fault sentinel")
	}
	if got := re.Error(); got != "R001: Cell holds no value of the requested type (missing)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestFromErrorPlain(t *testing.T) {
	if FromError(nil, "X002") != nil {
		t.Error("nil error should stay nil")
	}

	base := stderrors.New("boom")
	re := FromError(base, "X002")
	if re.Code != "X002" || !stderrors.Is(re, base) {
		t.Errorf("expected wrapped X002, got %v", re)
	}
	if FromError(re, "S001") != re {
		t.Error("an RxError should pass through unchanged")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	dir := t.TempDir()
	path := filepath.Join(dir, "diff.yaml")
	content := "name: diff\ncells:\n  - {name: a, kind: atom, init: 0}\nsteps:\n  - {op: set, cell: z, value: 1}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New("S002").WithSubject("z").WithLocation(path, 5, 0)
	out := err.Format()

	for _, want := range []string{
		"  S002 Unknown cell\n",
		"    on    z\n",
		"    at    " + path + ":5\n",
		"    >    5 |   - {op: set, cell: z, value: 1}\n",
		"         4 | steps:\n",
		"hint: Declare the cell, or fix the name.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "op    ") {
		t.Errorf("scenario errors have no op line:\n%s", out)
	}
}

func TestFormatFault(t *testing.T) {
	DisableColors()
	defer EnableColors()

	s := reactive.New()
	fault := reactive.Catch(func() {
		reactive.Get[int](s, reactive.Key("missing"))
	})
	out := FromError(fault, "X002").Format()

	for _, want := range []string{
		"  R001 Cell holds no value of the requested type\n",
		"    cell  missing\n",
		"    op    get\n",
		"    type  int\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatJSON(t *testing.T) {
	s := reactive.New()
	fault := reactive.Catch(func() {
		reactive.Get[int](s, reactive.Key("a<b"))
	})
	js := FromError(fault, "X002").FormatJSON()

	var got map[string]any
	if err := json.Unmarshal([]byte(js), &got); err != nil {
		t.Fatalf("FormatJSON() is not JSON: %v\n%s", err, js)
	}
	want := map[string]string{
		"code":     "R001",
		"category": "fault",
		"subject":  "a<b",
		"op":       "get",
		"type":     "int",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %q", k, got[k], v)
		}
	}
	if strings.Contains(js, "\n") || strings.Contains(js, `\u003c`) {
		t.Errorf("expected one unescaped line, got %s", js)
	}
}
