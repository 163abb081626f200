// Package domainerr defines the single error category used across the
// ontology pipeline.
//
// Every failure a user can act on is a *Error with one of four kinds:
//   - Syntax: the parser rejected a line (fail fast, carries line + text)
//   - Semantic: the validator found rule violations (collected as a batch)
//   - Policy: the declared version bump is below the required bump
//   - IO: a file (ontology, baseline, config) could not be read or written
package domainerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes a domain error.
type Kind string

const (
	KindSyntax   Kind = "SYNTAX"
	KindSemantic Kind = "SEMANTIC"
	KindPolicy   Kind = "POLICY"
	KindIO       Kind = "IO"
)

// Error is the one error type surfaced by the pipeline.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Message is a human-readable description.
	Message string

	// Line is the 1-based source line (Syntax only, 0 when unknown).
	Line int

	// Text is the offending source line (Syntax only).
	Text string

	// Details holds the batch of problems (Semantic violations or the
	// compatibility findings that triggered a Policy error).
	Details []string

	// Remediation is an actionable hint (IO errors).
	Remediation string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(e.Message)
	if e.Text != "" {
		fmt.Fprintf(&b, ": %q", e.Text)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Syntax creates a syntax error for a source line.
func Syntax(line int, text, message string) *Error {
	return &Error{Kind: KindSyntax, Message: message, Line: line, Text: text}
}

// Semantic creates a semantic error carrying every violation found.
func Semantic(violations []string) *Error {
	return &Error{
		Kind:    KindSemantic,
		Message: fmt.Sprintf("ontology has %d validation error(s)", len(violations)),
		Details: violations,
	}
}

// Policy creates a governance violation carrying the triggering findings.
func Policy(message string, findings []string) *Error {
	return &Error{Kind: KindPolicy, Message: message, Details: findings}
}

// IO wraps a file-system failure with remediation text.
func IO(message, remediation string, err error) *Error {
	return &Error{Kind: KindIO, Message: message, Remediation: remediation, Err: err}
}

// Is reports whether err is a domain error of the given kind.
// Uses errors.As to handle wrapped errors.
func Is(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
