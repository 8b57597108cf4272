package engine

import (
	"errors"
	"fmt"
	"time"
)

// CodeCancelWindowViolation is the machine-readable signal carried by a
// PolicyViolationError when a cancellation falls inside the protected window.
const CodeCancelWindowViolation = "CANCEL_WINDOW_VIOLATION"

// NotFoundError: the referenced tenant/service/resource/booking does not
// exist. Always surfaced to the caller, never retried.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ConflictError: the candidate interval overlaps an existing blocking booking.
// The caller should re-query for fresh slots.
type ConflictError struct {
	ResourceID string
	Start      time.Time
	End        time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s-%s already booked on resource %s",
		e.Start.UTC().Format(time.RFC3339), e.End.UTC().Format(time.RFC3339), e.ResourceID)
}

// PolicyViolationError: operation rejected by a tenant policy. LimitHours and
// HoursDiff are exposed for user-facing messaging.
type PolicyViolationError struct {
	Code       string
	LimitHours int
	HoursDiff  float64
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("%s: %.1fh before start, limit is %dh", e.Code, e.HoursDiff, e.LimitHours)
}

// ValidationError: malformed or missing required input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StorageError: the underlying store failed. Never retried automatically by
// the engine; retrying a non-idempotent insert could double-book.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsPolicyViolation(err error) bool {
	var e *PolicyViolationError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsStorage(err error) bool {
	var e *StorageError
	return errors.As(err, &e)
}
