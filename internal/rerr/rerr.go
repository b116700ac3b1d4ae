// Package rerr defines the error taxonomy of spec.md §7 and maps each kind
// to a stable, negative process exit code (see spec.md §6: "negative
// integers... on failure").
package rerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the ten error categories a propagated failure belongs to.
type Kind int

const (
	BadInvocation Kind = iota
	MissingFile
	OutOfMemory
	RasterReadFailure
	PngEncodeFailure
	BadColorScheme
	ResolveFailure
	ConnectFailure
	NoMoreTiles // signals EOF of the job stream, not a user-visible failure
	BadFrame
)

func (k Kind) String() string {
	switch k {
	case BadInvocation:
		return "BadInvocation"
	case MissingFile:
		return "MissingFile"
	case OutOfMemory:
		return "OutOfMemory"
	case RasterReadFailure:
		return "RasterReadFailure"
	case PngEncodeFailure:
		return "PngEncodeFailure"
	case BadColorScheme:
		return "BadColorScheme"
	case ResolveFailure:
		return "ResolveFailure"
	case ConnectFailure:
		return "ConnectFailure"
	case NoMoreTiles:
		return "NoMoreTiles"
	case BadFrame:
		return "BadFrame"
	default:
		return "Unknown"
	}
}

// ExitCode maps a Kind to the process exit status used by cmd/reliefrender:
// each kind gets a distinct negative code, -(kind+1).
func (k Kind) ExitCode() int {
	return -(int(k) + 1)
}

// kindError pairs a Kind with a wrapped cause so callers can both render a
// diagnostic line and map the failure to an exit code.
type kindError struct {
	kind  Kind
	cause error
}

func (e *kindError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.cause)
}

func (e *kindError) Unwrap() error { return e.cause }

// New creates a Kind-tagged error with a stack trace, following the
// github.com/pkg/errors convention used throughout DigitalGlobe-rdatools.
func New(kind Kind, msg string) error {
	return &kindError{kind: kind, cause: errors.New(msg)}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) error {
	return &kindError{kind: kind, cause: errors.Errorf(format, args...)}
}

// Wrap attaches a Kind to an existing error, adding msg as context and a
// stack trace recorded at this call, even when err already carries one.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, cause: errors.Wrap(err, msg)}
}

// Wrapf is Wrap with fmt.Sprintf-style formatting.
func Wrapf(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, cause: errors.Wrapf(err, format, args...)}
}

// KindOf extracts the Kind attached to err, if any, and whether one was
// found. Unrecognized errors report (0, false).
func KindOf(err error) (Kind, bool) {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind, true
	}
	return 0, false
}

// ExitCodeFor maps any error to a process exit code: a Kind-tagged error
// uses its own code, anything else is treated as BadInvocation.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if k, ok := KindOf(err); ok {
		return k.ExitCode()
	}
	return BadInvocation.ExitCode()
}
