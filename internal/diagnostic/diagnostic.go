// Package diagnostic collects the problems found while building a shader.
//
// Nothing in the pipeline aborts on a malformed directive or an unsupported
// type: each problem is recorded here with a code and a source location, and
// processing continues. The caller decides what to print and how to exit.
package diagnostic

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a diagnostic.
type Severity uint8

const (
	// Error makes the run fail, although output is still produced.
	Error Severity = iota
	// Warning is a non-blocking issue.
	Warning
	// Note provides additional context for another diagnostic.
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		return "unknown"
	}
}

// Code identifies a class of diagnostic.
type Code string

const (
	// Directive grammar (D00xx)
	CodeUnknownDirective     Code = "D0001"
	CodeArgumentCount        Code = "D0002"
	CodeNestedModule         Code = "D0003"
	CodeUnmatchedEnd         Code = "D0004"
	CodeDuplicateModule      Code = "D0005"
	CodeIncludeNotFound      Code = "D0006"
	CodeUnknownModule        Code = "D0007"
	CodeIncludeOutsideModule Code = "D0008"
	CodeUnterminatedModule   Code = "D0009"
	CodeIncludeCycle         Code = "D0010"
	CodeStage                Code = "D0011"

	// Reflection (R00xx)
	CodeUnclassifiedType Code = "R0001"
	CodeDepthLimit       Code = "R0002"
	CodeDecode           Code = "R0003"

	// Compiler backend (C00xx)
	CodeCompile Code = "C0001"

	// Header emission (H00xx)
	CodeLayout Code = "H0001"
)

// Diagnostic is a single reported problem.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	File     string // empty when the problem has no source location
	Line     int    // 1-based, 0 if unknown
	Column   int    // 1-based, 0 if unknown
}

// Error returns the diagnostic in file:line:col: severity: message form.
func (d *Diagnostic) Error() string {
	var sb strings.Builder
	if d.File != "" {
		sb.WriteString(d.File)
		sb.WriteByte(':')
	}
	if d.Line > 0 {
		fmt.Fprintf(&sb, "%d:", d.Line)
		if d.Column > 0 {
			fmt.Fprintf(&sb, "%d:", d.Column)
		}
	}
	if sb.Len() > 0 {
		sb.WriteByte(' ')
	}
	sb.WriteString(d.Severity.String())
	if d.Code != "" {
		fmt.Fprintf(&sb, "[%s]", d.Code)
	}
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	return sb.String()
}

// List collects diagnostics during a run.
type List struct {
	diagnostics []Diagnostic
	hasErrors   bool
}

// Add adds a diagnostic to the list.
func (l *List) Add(d Diagnostic) {
	l.diagnostics = append(l.diagnostics, d)
	if d.Severity == Error {
		l.hasErrors = true
	}
}

// Errorf adds an error at file:line.
func (l *List) Errorf(code Code, file string, line int, format string, args ...any) {
	l.Add(Diagnostic{
		Severity: Error,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		File:     file,
		Line:     line,
	})
}

// Warnf adds a warning at file:line.
func (l *List) Warnf(code Code, file string, line int, format string, args ...any) {
	l.Add(Diagnostic{
		Severity: Warning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		File:     file,
		Line:     line,
	})
}

// Extend appends every diagnostic of other.
func (l *List) Extend(other *List) {
	if other == nil {
		return
	}
	for _, d := range other.diagnostics {
		l.Add(d)
	}
}

// HasErrors returns true if there are any error-level diagnostics.
func (l *List) HasErrors() bool {
	return l.hasErrors
}

// Diagnostics returns all collected diagnostics.
func (l *List) Diagnostics() []Diagnostic {
	return l.diagnostics
}

// Errors returns only error-level diagnostics.
func (l *List) Errors() []Diagnostic {
	return l.filter(Error)
}

// Warnings returns only warning-level diagnostics.
func (l *List) Warnings() []Diagnostic {
	return l.filter(Warning)
}

func (l *List) filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range l.diagnostics {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// WithCode returns the diagnostics carrying the given code.
func (l *List) WithCode(code Code) []Diagnostic {
	var out []Diagnostic
	for _, d := range l.diagnostics {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Count returns the total number of diagnostics.
func (l *List) Count() int {
	return len(l.diagnostics)
}

// ErrorCount returns the number of error-level diagnostics.
func (l *List) ErrorCount() int {
	return len(l.Errors())
}

// Format formats all diagnostics, one per line.
func (l *List) Format() string {
	var sb strings.Builder
	for i := range l.diagnostics {
		sb.WriteString(l.diagnostics[i].Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}
