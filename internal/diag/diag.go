// Package diag holds the diagnostics produced while parsing and compiling a protocol.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Phase names the stage that produced a diagnostic.
type Phase string

const (
	PhaseParsing   Phase = "Parsing"
	PhaseCompiling Phase = "Compiling"
)

// Kind classifies a diagnostic.
type Kind string

const (
	KindEmptySource Kind = "empty_source"
	KindLexical     Kind = "lexical"
	KindStructural  Kind = "structural"
	KindMeta        Kind = "meta"
	KindTagShape    Kind = "tag_shape"
	KindSemantic    Kind = "semantic"
)

// Severity separates fatal diagnostics from tolerated ones (lax mode).
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a single finding about a protocol source. Fatal diagnostics
// are returned as errors.
type Diagnostic struct {
	Phase    Phase    `json:"phase"`
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Line     int      `json:"line,omitempty"`
	Context  string   `json:"context,omitempty"`
	Tree     string   `json:"tree,omitempty"`
}

// New creates a fatal diagnostic. line <= 0 means the diagnostic has no position.
func New(phase Phase, kind Kind, line int, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Phase:    phase,
		Kind:     kind,
		Severity: SeverityFatal,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
	}
}

// Warning creates a non-fatal diagnostic.
func Warning(phase Phase, kind Kind, line int, format string, args ...any) *Diagnostic {
	d := New(phase, kind, line, format, args...)
	d.Severity = SeverityWarning
	return d
}

func (d *Diagnostic) Error() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", d.Phase, d.Line, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Phase, d.Message)
}

// Fatal reports whether the diagnostic aborts the run.
func (d *Diagnostic) Fatal() bool {
	return d.Severity != SeverityWarning
}

// WithContext attaches up to n lines of source around the diagnostic line.
func (d *Diagnostic) WithContext(source string, n int) *Diagnostic {
	if d.Line > 0 {
		d.Context = Context(source, d.Line, n)
	}
	return d
}

// WithTree attaches a dump of the (partial) tree.
func (d *Diagnostic) WithTree(dump string) *Diagnostic {
	d.Tree = dump
	return d
}

// Context returns the lines line-n..line+n (1-based, clamped) of source,
// each prefixed with its number.
func Context(source string, line, n int) string {
	if line <= 0 || n < 0 {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	start := max(1, line-n)
	end := min(len(lines), line+n)
	var b strings.Builder
	for i := start; i <= end; i++ {
		marker := " "
		if i == line {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s%4d | %s\n", marker, i, lines[i-1])
	}
	return b.String()
}

// As extracts a diagnostic from an error chain.
func As(err error) (*Diagnostic, bool) {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
