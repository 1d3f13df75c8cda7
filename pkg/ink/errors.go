package ink

import (
	"fmt"
	"strings"

	"github.com/tale-forge/inkweave/internal/utils/ansi"
)

// Position tracks a location in source text, following the teacher's
// ExprError.Position shape.
type Position struct {
	Offset int    // byte offset in source
	Line   int    // 1-based
	Column int    // 1-based
	File   string // optional, set when the position comes from an INCLUDEd file
}

func (p Position) String() string {
	if p.Line == 0 {
		return ""
	}
	loc := fmt.Sprintf("%d:%d", p.Line, p.Column)
	if p.File != "" {
		loc = p.File + ":" + loc
	}
	return loc
}

// ParseError reports a malformed construct encountered while compiling a
// Story (spec §7): an unterminated block comment, a line with an
// unclosed `{`, a CONST/VAR/LIST declaration missing its `=`, or a
// declaration initializer that fails to parse.
type ParseError struct {
	Message  string
	Position Position
	Source   string
	Nested   error
}

func (e *ParseError) Error() string {
	return formatError("Parse Error", e.Message, e.Position, e.Source, e.Nested)
}

func (e *ParseError) Unwrap() error { return e.Nested }

// AddressError reports a divert or knot/stitch/label reference that could
// not be resolved against the compiled Story Model (spec §7): a
// misspelled divert target, a stitch referenced from outside its owning
// knot without qualification, or a label that does not exist at the
// scope it was looked up from.
type AddressError struct {
	Message  string
	Position Position
	Nested   error
}

func (e *AddressError) Error() string {
	return formatError("Address Error", e.Message, e.Position, "", e.Nested)
}

func (e *AddressError) Unwrap() error { return e.Nested }

// OutOfRangeError reports a choice index passed to Choose that does not
// name any currently pending choice (spec §6.3 Choose).
type OutOfRangeError struct {
	Index int
	Count int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("choice index %d is out of range (%d choice(s) pending)", e.Index, e.Count)
}

// EvaluationError reports a runtime expression failure (spec §7): a
// reference to an undeclared list inside LIST_ALL, a type mismatch an
// operator cannot coerce, or a host function call that itself errored.
// Evaluator.Truthy treats a condition that raises an EvaluationError as
// false and drops the error: it is not reported to observers, and no
// configuration profile makes it fatal.
type EvaluationError struct {
	Message  string
	Position Position
	Source   string
	Nested   error
}

func (e *EvaluationError) Error() string {
	return formatError("Evaluation Error", e.Message, e.Position, e.Source, e.Nested)
}

func (e *EvaluationError) Unwrap() error { return e.Nested }

// MigrationError reports a saved session snapshot (spec §6.2) that Load
// could not accept: data that is not valid YAML, a version.tree of an
// unexpected type, or a Version.Tree newer than the loaded Story's own.
type MigrationError struct {
	Message string
	Nested  error
}

func (e *MigrationError) Error() string {
	msg := "Migration Error: " + e.Message
	if e.Nested != nil {
		msg += "\n  caused by: " + e.Nested.Error()
	}
	return msg
}

func (e *MigrationError) Unwrap() error { return e.Nested }

func formatError(label, message string, pos Position, source string, nested error) string {
	var parts []string
	parts = append(parts, ansi.Sprintf("@*R{%s}", label))
	if loc := pos.String(); loc != "" {
		parts = append(parts, ansi.Sprintf("@Y{%s}", loc))
	}
	parts = append(parts, message)
	msg := strings.Join(parts, ": ")

	if source != "" && pos.Line > 0 {
		lines := strings.Split(source, "\n")
		if pos.Line <= len(lines) {
			msg += "\n\n" + sourceContext(lines, pos)
		}
	}
	if nested != nil {
		msg += "\n  caused by: " + nested.Error()
	}
	return msg
}

func sourceContext(lines []string, pos Position) string {
	idx := pos.Line - 1
	if idx < 0 || idx >= len(lines) {
		return ""
	}
	start := idx - 2
	if start < 0 {
		start = 0
	}
	end := idx + 3
	if end > len(lines) {
		end = len(lines)
	}
	var b strings.Builder
	for i := start; i < end; i++ {
		lineNum := fmt.Sprintf("%4d | ", i+1)
		if i == idx {
			b.WriteString(ansi.Sprintf("@*W{%s}", lineNum))
			b.WriteString(lines[i])
			b.WriteString("\n")
			spaces := strings.Repeat(" ", len(lineNum)+pos.Column-1)
			b.WriteString(ansi.Sprintf("@R{%s^}\n", spaces))
		} else {
			b.WriteString(ansi.Sprintf("@K{%s%s}\n", lineNum, lines[i]))
		}
	}
	return b.String()
}

// NoNarrationError is the explicit empty sentinel Continue returns when
// CanContinue is false (spec §6.3 "continue").
type NoNarrationError struct{}

func (e *NoNarrationError) Error() string {
	return "no pending narration to continue"
}

// ErrNoNarration is the shared NoNarrationError instance, suitable for
// errors.Is comparisons.
var ErrNoNarration = &NoNarrationError{}

// MultiError aggregates the non-fatal diagnostics a single Compile call
// can surface (spec §7: "a single Parse call may surface more than one").
type MultiError struct {
	Errors []error
}

func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

func (m *MultiError) HasErrors() bool { return len(m.Errors) > 0 }

func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	msgs := []string{fmt.Sprintf("found %d error(s):", len(m.Errors))}
	for i, err := range m.Errors {
		msgs = append(msgs, fmt.Sprintf("\n[%d] %s", i+1, err.Error()))
	}
	return strings.Join(msgs, "\n")
}

// AsError returns the aggregate as a single error value, or nil if empty,
// unwrapping to the sole error when there is exactly one.
func (m *MultiError) AsError() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}
