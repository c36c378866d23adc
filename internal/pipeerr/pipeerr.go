// Package pipeerr defines the four error kinds from spec.md §7 and the
// helpers used to raise them. Only input and configuration errors abort
// the pipeline; numeric and topological errors are diagnostics.
package pipeerr

import "github.com/pkg/errors"

// Kind classifies a pipeline error per spec.md §7.
type Kind int

const (
	// KindInput covers unreadable streams, malformed samples, empty input.
	KindInput Kind = iota
	// KindNumeric covers non-positive normal length and CG non-convergence.
	KindNumeric
	// KindTopological covers unresolved edge roots and broken loops.
	KindTopological
	// KindConfiguration covers boundary-mode/depth inconsistencies and bad flags.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindNumeric:
		return "numeric"
	case KindTopological:
		return "topological"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Aborts reports whether an error of this kind must abort the pipeline
// (per spec.md §7, only I/O and configuration errors abort).
func (k Kind) Aborts() bool {
	return k == KindInput || k == KindConfiguration
}

// Error wraps an underlying cause with its pipeline error kind.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.err.Error() }

func (e *Error) Unwrap() error { return e.err }

// New constructs a classified error, wrapping cause with github.com/pkg/errors
// so downstream logs retain a stack trace for abort-worthy errors.
func New(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, err: errors.Wrap(cause, msg)}
}

// Newf is New with a formatted message.
func Newf(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, err: errors.Wrapf(cause, format, args...)}
}

// As reports whether err is a *Error of the given kind.
func As(err error, kind Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
