package types

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrorKind classifies a failure.
type ErrorKind int

const (
	// KindIOError is any failure not covered by a more specific kind.
	KindIOError ErrorKind = iota
	// KindNotFound means the path does not exist or vanished.
	KindNotFound
	// KindAccessDenied means permissions, locks or sharing violations.
	KindAccessDenied
	// KindEnvironmentFailure means no usable target could be resolved.
	KindEnvironmentFailure
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindEnvironmentFailure:
		return "environment_failure"
	default:
		return "io_error"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ErrorKind) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "not_found":
		*k = KindNotFound
	case "access_denied":
		*k = KindAccessDenied
	case "environment_failure":
		*k = KindEnvironmentFailure
	case "io_error", "":
		*k = KindIOError
	default:
		return fmt.Errorf("unknown error kind %q", string(b))
	}
	return nil
}

// ErrNotFound indicates that a target or path could not be found.
var ErrNotFound = errors.New("not found")

// ErrEnvironment indicates that the run could not find any usable target.
var ErrEnvironment = errors.New("environment failure")

// ItemError records a failure for a single file or directory.
type ItemError struct {
	Path    string    `json:"path" yaml:"path"`
	Kind    ErrorKind `json:"kind" yaml:"kind"`
	Message string    `json:"message" yaml:"message"`
}

// Error implements the error interface.
func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Path, e.Message, e.Kind)
}

// NewItemError builds an ItemError for path, classifying err.
func NewItemError(path string, err error) ItemError {
	return ItemError{
		Path:    path,
		Kind:    Classify(err),
		Message: err.Error(),
	}
}

// EnvironmentError is returned when none of the requested targets is usable.
type EnvironmentError struct {
	// Failures maps each failed target (label or kind) to its reason.
	Failures []SkippedTarget
}

// Error implements the error interface.
func (e *EnvironmentError) Error() string {
	if len(e.Failures) == 0 {
		return "environment failure: no targets"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		name := f.Target.Label
		if name == "" {
			name = f.Target.Kind
		}
		parts = append(parts, name+": "+f.Reason)
	}
	return "environment failure: no usable targets (" + strings.Join(parts, "; ") + ")"
}

// Is reports whether target is ErrEnvironment.
func (e *EnvironmentError) Is(target error) bool {
	return target == ErrEnvironment
}

// Classify maps an error to an ErrorKind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindIOError
	case errors.Is(err, ErrEnvironment):
		return KindEnvironmentFailure
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindAccessDenied
	}
	return classifyErrno(err)
}
