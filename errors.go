package sqpack

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvalidPathError is returned when a logical path cannot be split into
// category/repository/remainder.
type InvalidPathError struct {
	Path string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("Invalid path: %q.", e.Path)
}

// NotFoundError indicates a key that is legitimately absent: an unknown
// repository or category, a missing index hash, or an absent row/page/
// language. It is never synthesized from corrupt data; see ResourceError
// for that.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found.", e.What)
}

// ResourceError indicates that bytes read from the archive did not satisfy
// a format invariant: a size mismatch, a bad magic, a truncated block, or
// similar. Callers should treat it as fatal for the file being read.
type ResourceError struct {
	Detail string
	cause  error
}

func (e *ResourceError) Error() string {
	return e.Detail
}

func (e *ResourceError) Unwrap() error {
	return e.cause
}

// InvalidOperationError indicates a call that is structurally well-formed
// but not valid for the resource's shape, e.g. calling Subrow on a sheet
// whose kind is Default. Distinct from InvalidPathError, which is purely
// about logical-path syntax.
type InvalidOperationError struct {
	Detail string
}

func (e *InvalidOperationError) Error() string {
	return e.Detail
}

// IOError wraps an underlying filesystem error.
type IOError struct {
	cause error
}

func (e *IOError) Error() string {
	return e.cause.Error()
}

func (e *IOError) Unwrap() error {
	return e.cause
}

func newInvalidPath(path string) error {
	return &InvalidPathError{Path: path}
}

func newNotFound(what string) error {
	return &NotFoundError{What: what}
}

// newResource builds a ResourceError with the canonical
// "Failed to read X. Expected N bytes, got M." phrasing used throughout the
// block and row decoders.
func newResource(item string, expected, got int) error {
	return &ResourceError{
		Detail: fmt.Sprintf("Failed to read %s. Expected %d bytes, got %d.", item, expected, got),
	}
}

// newResourcef builds a ResourceError with a free-form detail, wrapping an
// optional lower-level cause with a stack trace attached at construction.
func newResourcef(cause error, format string, args ...interface{}) error {
	detail := fmt.Sprintf(format, args...)
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &ResourceError{Detail: detail, cause: cause}
}

func newIO(cause error) error {
	return &IOError{cause: errors.WithStack(cause)}
}

// NewNotFound, NewResource, NewResourcef and NewInvalidPath expose the C9
// error taxonomy (NotFoundError, ResourceError, InvalidPathError) to other
// packages in this module (excel, config) so every package surfaces the
// same error types rather than inventing its own.
func NewNotFound(what string) error { return newNotFound(what) }

func NewResource(item string, expected, got int) error { return newResource(item, expected, got) }

func NewResourcef(cause error, format string, args ...interface{}) error {
	return newResourcef(cause, format, args...)
}

func NewInvalidPath(path string) error { return newInvalidPath(path) }

// NewInvalidOperation builds an InvalidOperationError.
func NewInvalidOperation(detail string) error {
	return &InvalidOperationError{Detail: detail}
}
