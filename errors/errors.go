// Package errors provides the structured error type used throughout fcom,
// generalizing the teacher's Category/ProcessingError pattern to the five
// error kinds an operation can fail with.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed, matching the failure taxonomy
// every filter's Open/Process must report through.
type Kind string

const (
	// KindUser covers bad arguments, a missing input file, a malformed
	// wildcard pattern — mistakes the invoker can fix.
	KindUser Kind = "user"
	// KindSystem covers I/O failures, permission errors, out-of-memory —
	// environment failures unrelated to the data being processed.
	KindSystem Kind = "system"
	// KindFormat covers malformed archive/image/text data: the input
	// exists and is readable but doesn't parse as claimed.
	KindFormat Kind = "format"
	// KindWarning is non-fatal: the operation can still complete, but the
	// result deserves the user's attention (e.g. a file skipped by an
	// exclude pattern, a lossy codepage fallback).
	KindWarning Kind = "warning"
	// KindCancelled covers user-interrupted or context-cancelled runs.
	KindCancelled Kind = "cancelled"
)

// ProcessingError is the structured error type returned by filters and
// operation templates.
type ProcessingError struct {
	Kind Kind
	Op   string // operation or filter name
	Path string // file path involved, if any
	Err  error
}

func (e *ProcessingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// New creates a ProcessingError with no associated path.
func New(kind Kind, op string, err error) *ProcessingError {
	return &ProcessingError{Kind: kind, Op: op, Err: err}
}

// NewPath creates a ProcessingError naming the file path involved.
func NewPath(kind Kind, op, path string, err error) *ProcessingError {
	return &ProcessingError{Kind: kind, Op: op, Path: path, Err: err}
}

// Wrap wraps err with kind/op context, returning nil if err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(kind, op, err)
}

// Is reports whether err is (or wraps) a ProcessingError of the given kind.
func Is(err error, kind Kind) bool {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// IsCancelled reports whether err represents a cancelled run, whether via
// KindCancelled or the ErrCancelled sentinel.
func IsCancelled(err error) bool {
	if Is(err, KindCancelled) {
		return true
	}
	return errors.Is(err, ErrCancelled)
}

// Sentinel errors for common failure modes, matching the original's
// widely reused single-word diagnostics.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmptyInput        = errors.New("empty input")
	ErrCancelled         = errors.New("operation cancelled")
	ErrSkip              = errors.New("skipped by filter pattern")
	ErrNoSuchOperation   = errors.New("no such operation")
)
