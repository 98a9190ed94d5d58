// Package verr defines the closed set of error kinds raised by the vh
// core, along with an ErrorQueue that buffers sub-ERROR entries for
// pluggable sinks while letting ERROR-and-above propagate as ordinary
// Go errors.
//
// The original C implementation used TRY/CATCH long-jumps to unwind to
// an enclosing frame on ERROR and above. This package replaces that
// with normal error returns (see SPEC_FULL.md Design Notes): a core
// call either returns a wrapped sentinel from this package, or queues
// a lower-severity Entry and continues.
package verr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the closed set of error kinds a core call can raise.
type Kind string

// The core error kinds named by the specification.
const (
	KindMemoryExhausted     Kind = "MemoryExhausted"
	KindInvalidHandle       Kind = "InvalidHandle"
	KindOutOfBufferSpace    Kind = "OutOfBufferSpace"
	KindTypeRegistryError   Kind = "TypeRegistryError"
	KindUnsupportedConv     Kind = "UnsupportedConversion"
	KindSchemaConflict      Kind = "SchemaConflict"
	KindQueryMalformed      Kind = "QueryMalformed"
	KindPlanningError       Kind = "PlanningError"
	KindBackendError        Kind = "BackendError"
)

// Level is the severity of a queued Entry. DEBUG..PANIC, ascending.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelFatal
	LevelPanic
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	case LevelPanic:
		return "PANIC"
	default:
		return "UNKNOWN"
	}
}

// CoreError is a Kind wrapped with a message and a captured call stack.
// Errors.Is matches against the Kind sentinel; errors.Cause (via
// pkg/errors) reaches the original stack-carrying error.
type CoreError struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *CoreError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.cause }

// Is implements errors.Is against a bare Kind sentinel comparison so
// callers can write `errors.Is(err, verr.KindInvalidHandle)`-style
// checks through a thin helper (see Is below); CoreError itself is
// compared by Kind.
func (e *CoreError) Is(target error) bool {
	other, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New creates a CoreError of the given kind with a captured call stack.
func New(kind Kind, format string, args ...any) *CoreError {
	msg := fmt.Sprintf(format, args...)
	return &CoreError{
		Kind:    kind,
		Message: msg,
		cause:   errors.WithStack(fmt.Errorf("%s: %s", kind, msg)),
	}
}

// Wrap attaches a Kind and captured stack to an existing error.
func Wrap(kind Kind, err error, format string, args ...any) *CoreError {
	msg := fmt.Sprintf(format, args...)
	return &CoreError{
		Kind:    kind,
		Message: msg,
		cause:   errors.WithStack(errors.WithMessage(err, fmt.Sprintf("%s: %s", kind, msg))),
	}
}

// Is reports whether err is a CoreError of the given kind.
func Is(err error, kind Kind) bool {
	ce, ok := err.(*CoreError)
	if !ok {
		return false
	}
	return ce.Kind == kind
}

// StackTrace renders the captured call stack of err, if any was
// captured via New/Wrap, for inclusion in a Entry or a log line.
func StackTrace(err error) string {
	type stackTracer interface {
		StackTrace() errors.StackTrace
	}
	var st stackTracer
	if ce, ok := err.(*CoreError); ok && ce.cause != nil {
		if s, ok := ce.cause.(stackTracer); ok {
			st = s
		}
	} else if s, ok := err.(stackTracer); ok {
		st = s
	}
	if st == nil {
		return ""
	}
	return fmt.Sprintf("%+v", st.StackTrace())
}
