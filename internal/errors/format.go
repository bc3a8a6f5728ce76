package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type style string

const (
	styleReset style = "\033[0m"
	styleCode  style = "\033[1;31m"
	styleLabel style = "\033[90m"
	styleLoc   style = "\033[36m"
	styleMark  style = "\033[31m"
)

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

func paint(s style, text string) string {
	if !colorEnabled {
		return text
	}
	return string(s) + text + string(styleReset)
}

// Format renders the error as an indented block for the CLI: code and
// message, then one labelled line per known field (the cell, the faulting
// operation and value type, the scenario location), the scenario lines
// around that location, the detail and the hint.
func (e *RxError) Format() string {
	var b strings.Builder

	b.WriteString("\n  ")
	if e.Code != "" {
		b.WriteString(paint(styleCode, e.Code))
		b.WriteString(" ")
	}
	b.WriteString(e.Message)
	b.WriteString("\n")

	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "    %s %s\n", paint(styleLabel, fmt.Sprintf("%-5s", label)), value)
		}
	}
	if e.Category == CategoryFault {
		field("cell", e.Subject)
	} else {
		field("on", e.Subject)
	}
	field("op", e.Op)
	field("type", e.Type)
	if e.Location != nil {
		field("at", paint(styleLoc, e.Location.String()))
		e.writeContext(&b)
	}

	if e.Detail != "" {
		fmt.Fprintf(&b, "\n    %s\n", e.Detail)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "    %s %s\n", paint(styleLabel, "hint:"), e.Suggestion)
	}
	return b.String()
}

// writeContext prints the lines read around Location, marking the line the
// error points at.
func (e *RxError) writeContext(b *strings.Builder) {
	if len(e.Context) == 0 {
		return
	}
	b.WriteString("\n")
	for i, line := range e.Context {
		n := e.ContextStart + i
		marker := "  "
		if n == e.Location.Line {
			marker = paint(styleMark, "> ")
		}
		fmt.Fprintf(b, "    %s%4d | %s\n", marker, n, line)
	}
}

type jsonLocation struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	Subject    string        `json:"subject,omitempty"`
	Op         string        `json:"op,omitempty"`
	Type       string        `json:"type,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
}

// FormatJSON returns the error as a single-line JSON object, as embedded in
// `rxstate run --format json` reports.
func (e *RxError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Subject:    e.Subject,
		Op:         e.Op,
		Type:       e.Type,
		Suggestion: e.Suggestion,
	}
	if e.Location != nil {
		out.Location = &jsonLocation{File: e.Location.File, Line: e.Location.Line}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Sprintf(`{"code":%q,"message":%q}`, e.Code, e.Message)
	}
	return strings.TrimRight(buf.String(), "\n")
}
