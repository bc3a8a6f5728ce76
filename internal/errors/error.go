package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// Category represents the type of error.
type Category string

const (
	CategoryFault    Category = "fault"
	CategoryScenario Category = "scenario"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// Location represents a position in a scenario or source file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// RxError is a structured error with an optional location and a fix hint.
type RxError struct {
	// Code is a unique error identifier (e.g., "R001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is where the error occurred, if known.
	Location *Location

	// Context contains the lines surrounding Location, starting at
	// ContextStart.
	Context      []string
	ContextStart int

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Subject names what the error is about (a cell key, a file).
	Subject string

	// Op and Type are set for usage faults: the store operation that
	// faulted and the value type it was asked for.
	Op   string
	Type string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *RxError) Error() string {
	msg := e.Message
	if e.Subject != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Subject)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *RxError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file location and reads the surrounding lines.
func (e *RxError) WithLocation(file string, line, column int) *RxError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context, e.ContextStart = readContextLines(file, line, 5)
	return e
}

// WithSuggestion overrides the fix suggestion.
func (e *RxError) WithSuggestion(s string) *RxError {
	e.Suggestion = s
	return e
}

// WithDetail overrides the detailed explanation.
func (e *RxError) WithDetail(d string) *RxError {
	e.Detail = d
	return e
}

// WithSubject sets what the error is about.
func (e *RxError) WithSubject(s string) *RxError {
	e.Subject = s
	return e
}

// Wrap wraps another error.
func (e *RxError) Wrap(err error) *RxError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
// It returns the lines and the number of the first one.
func readContextLines(filename string, targetLine, contextSize int) ([]string, int) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := max(targetLine-contextSize/2, 1)
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines, startLine
}

// New creates an RxError from a registered error code.
func New(code string) *RxError {
	template, ok := registry[code]
	if !ok {
		return &RxError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &RxError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// FromFault explains a usage fault raised by the reactive store.
func FromFault(ue *reactive.UsageError) *RxError {
	if ue == nil {
		return nil
	}
	e := New(ue.Code).Wrap(ue)
	e.Op = ue.Op
	e.Type = ue.Type
	if !ue.Key.IsZero() {
		e.Subject = ue.Key.String()
	}
	return e
}

// FromError wraps a standard error in an RxError. Usage faults keep their
// own code; anything else gets code.
func FromError(err error, code string) *RxError {
	if err == nil {
		return nil
	}
	var re *RxError
	if stderrors.As(err, &re) {
		return re
	}
	var ue *reactive.UsageError
	if stderrors.As(err, &ue) {
		return FromFault(ue)
	}
	return New(code).Wrap(err)
}
