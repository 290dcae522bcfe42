package listing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthUnavailable is returned when an operation needs a user identifier and none is present.
	ErrAuthUnavailable = errors.New("authentication required")
	// ErrForbidden signals the caller lacks the admin capability.
	ErrForbidden = errors.New("admin capability required")
	// ErrNotFound is returned for listing identifiers absent from the store.
	ErrNotFound = errors.New("listing not found")
	// ErrRunNotFound is returned for unknown reconcile run identifiers.
	ErrRunNotFound = errors.New("reconcile run not found")
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a write precondition no longer holds.
	ErrConflict = errors.New("listing changed concurrently")
	// ErrWriteFailure is wrapped by every WriteError.
	ErrWriteFailure = errors.New("write failed")
)

// ValidationError lists the fields rejected before any write was attempted.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Reason, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Half names one of the two stored copies of a listing.
type Half string

const (
	HalfPrivate Half = "private"
	HalfPublic  Half = "public"
)

// WriteError reports a failed dual write. When Diverged is true the other half
// was committed and the copies differ until a later mutation or reconcile.
type WriteError struct {
	Op        string
	ListingID string
	Half      Half
	Diverged  bool
	Err       error
}

func (e *WriteError) Error() string {
	msg := fmt.Sprintf("%s listing %s: %s copy: %v", e.Op, e.ListingID, e.Half, e.Err)
	if e.Diverged {
		msg += " (copies diverged)"
	}
	return msg
}

// Is lets errors.Is match both ErrWriteFailure and the underlying cause.
func (e *WriteError) Is(target error) bool { return target == ErrWriteFailure }

func (e *WriteError) Unwrap() error { return e.Err }

// ApplyError is returned by Store.Apply when the operation at Index fails.
// Applied counts the operations committed before the failure; stores that
// apply atomically always report zero.
type ApplyError struct {
	Index   int
	Applied int
	Err     error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("write op %d failed (%d applied): %v", e.Index, e.Applied, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
