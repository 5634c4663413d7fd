/*
errors.go - Centralized error types for the roster engine

PURPOSE:
  All error values in one place for consistency and discoverability.
  The classification helpers at the bottom drive behavior elsewhere:
  the coordinator retries only retryable errors, and the API layer maps
  everything else through CodeForError.

ERROR CATEGORIES:
  1. Validation errors  - caller misuse; surfaced immediately, never retried
  2. Staleness errors   - the referenced team/invite legitimately changed
                          under a concurrent action; graceful informative result
  3. Concurrency errors - transaction preconditions invalidated by a
                          concurrent commit; retried, then surfaced transient
  4. Invariant errors   - counters would go negative or double-count;
                          programmer bugs, never tolerated or retried

SEE ALSO:
  - coordinator.go: retry loop built on IsRetryable
  - service.go: CodeForError mapping to caller-facing result codes
*/
package roster

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrActivityNotFound is returned when a referenced activity doesn't exist.
	ErrActivityNotFound = errors.New("activity not found")

	// ErrAlreadyRegistered is returned when the identity already holds an
	// active registration that conflicts with the requested operation.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrNotRegistered is returned when no active registration exists to act on.
	ErrNotRegistered = errors.New("not registered")

	// ErrAlreadyInvited is returned when an identical pending invite exists.
	ErrAlreadyInvited = errors.New("invite already pending")

	// ErrSelfInvite is returned when an identity invites itself.
	// Team slots hold two distinct identities.
	ErrSelfInvite = errors.New("cannot invite self")

	// ErrUnitMismatch is returned when a team operation targets a
	// player-unit activity.
	ErrUnitMismatch = errors.New("activity does not admit teams")

	// ErrInviteNoLongerValid is returned when the referenced team vanished
	// or already left the pending state. This is an expected outcome of a
	// legitimate concurrent action, not a failure.
	ErrInviteNoLongerValid = errors.New("invite no longer valid")

	// ErrAlreadyResponded is returned when the invitee meanwhile acquired a
	// conflicting registration or partnership.
	ErrAlreadyResponded = errors.New("already responded")

	// ErrConcurrentModification is returned when a version-checked write
	// detects a conflicting concurrent commit. The coordinator retries these.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrCapacityConflict is surfaced after retry exhaustion. Transient:
	// the caller may try again.
	ErrCapacityConflict = errors.New("capacity conflict, try again")

	// ErrCounterUnderflow indicates a counter would go negative. This is a
	// design bug, never a runtime condition to recover from.
	ErrCounterUnderflow = errors.New("capacity counter underflow")

	// ErrDuplicateNotification is returned when a notification with the
	// same dedup key was already appended.
	ErrDuplicateNotification = errors.New("duplicate notification")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransitionError reports a state-machine transition that is not allowed
// from the current state.
type TransitionError struct {
	Entity string // "registrant" or "team"
	From   string
	Event  string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot %s from state %q", e.Entity, e.Event, e.From)
}

// InvariantError wraps a counter invariant violation with the activity it
// occurred on.
type InvariantError struct {
	ActivityID ActivityID
	Detail     string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation on activity %s: %s", e.ActivityID, e.Detail)
}

func (e *InvariantError) Unwrap() error {
	return ErrCounterUnderflow
}

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsRetryable returns true if the operation might succeed when replayed
// against fresh state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true for caller-side misuse that must never be
// retried.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAlreadyRegistered) ||
		errors.Is(err, ErrNotRegistered) ||
		errors.Is(err, ErrAlreadyInvited) ||
		errors.Is(err, ErrSelfInvite) ||
		errors.Is(err, ErrUnitMismatch) ||
		errors.Is(err, ErrActivityNotFound)
}

// IsStale returns true when the referenced team or invite changed under a
// legitimate concurrent action by another party. Handled as an informative
// result, not an exception.
func IsStale(err error) bool {
	return errors.Is(err, ErrInviteNoLongerValid) ||
		errors.Is(err, ErrAlreadyResponded)
}

// IsInvariantViolation returns true for programmer errors that indicate a
// design bug. These are fatal to the operation and must never be swallowed.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrCounterUnderflow)
}
