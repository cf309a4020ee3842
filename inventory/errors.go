/*
errors.go - Centralized error types for the inventory engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify errors with errors.Is against the sentinels or with
  the helper predicates at the bottom of this file.

ERROR CATEGORIES:
  1. Validation errors - malformed input, inverted ranges
  2. Business outcomes - capacity exhausted, cancel on a final booking
  3. Concurrency control - retryable write conflicts (internal only)

A NOTE ON ErrConflict:
  ErrConflict is an internal concurrency-control signal (store-level lock
  or write conflict). The booking service retries it; it must NEVER reach
  a caller dressed up as ErrCapacityExceeded unless capacity is truly
  exhausted after the retry.

SEE ALSO:
  - booking.go: retry loop around ErrConflict
  - availability.go: ErrNotFound / ErrInactive preconditions
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the base class for malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidRange is returned when a date range is inverted or exceeds
	// the configured maximum span.
	ErrInvalidRange = fmt.Errorf("%w: invalid date range", ErrValidation)

	// ErrNotFound is returned when a referenced resource or demand is absent.
	ErrNotFound = errors.New("not found")

	// ErrInactive is returned when querying or booking an inactive resource.
	ErrInactive = errors.New("resource inactive")

	// ErrCapacityExceeded is returned when a commit would exceed remaining
	// capacity. This is a genuine business outcome: pick another date.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrAlreadyFinal is returned when cancelling demand that is already
	// cancelled or completed.
	ErrAlreadyFinal = errors.New("demand already final")

	// ErrConflict is returned by stores on a write conflict or lock
	// timeout. Retryable; never surfaced to callers.
	ErrConflict = errors.New("concurrent write conflict")

	// ErrDuplicateCancellation is returned when a second CancellationRecord
	// would be written for the same booking.
	ErrDuplicateCancellation = errors.New("cancellation record already exists")

	// ErrInvalidSchedule is returned when a refund schedule has gaps,
	// overlaps, or lacks a catch-all tier.
	ErrInvalidSchedule = errors.New("invalid refund schedule")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CapacityExceededError reports which day (and slot) could not absorb the
// requested party.
type CapacityExceededError struct {
	ResourceID ResourceID
	Date       Date
	Slot       int // NoSlot for day-granular resources
	Requested  int
	Remaining  int
}

func (e *CapacityExceededError) Error() string {
	if e.Slot != NoSlot {
		return fmt.Sprintf("capacity exceeded on %s slot %d: requested %d, remaining %d",
			e.Date, e.Slot, e.Requested, e.Remaining)
	}
	return fmt.Sprintf("capacity exceeded on %s: requested %d, remaining %d",
		e.Date, e.Requested, e.Remaining)
}

func (e *CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }

// AlreadyFinalError reports the status that blocked a cancellation.
type AlreadyFinalError struct {
	DemandID DemandID
	Status   DemandStatus
}

func (e *AlreadyFinalError) Error() string {
	return fmt.Sprintf("demand %s is already %s", e.DemandID, e.Status)
}

func (e *AlreadyFinalError) Unwrap() error { return ErrAlreadyFinal }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to the caller's input or
// a legitimate business outcome, as opposed to an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrAlreadyFinal) ||
		errors.Is(err, ErrInactive)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
