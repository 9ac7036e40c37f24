/*
errors.go - Centralized error types

PURPOSE:
  All shared error types in one place. Domain packages wrap these with
  context (which request, which command) and the api package maps them to
  HTTP status codes through the helpers at the bottom of this file.

ERROR CATEGORIES:
  1. Validation - bad input from a form or a command argument
  2. State conflict - the request or session is not in a state that allows
     the operation (already started, not pending, not the author)
  3. Collaborator - the host or the persistence layer failed
  4. Configuration - the installation is missing a required setting

Collaborator failures are surfaced, never retried: repeating a message send
could duplicate visible chat output.
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidClock = errors.New("invalid clock time")
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a referenced document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotPending is returned when cancelling a request that already took effect.
	ErrNotPending = errors.New("request is no longer pending")

	// ErrAlreadyCancelled is returned when the request was cancelled before.
	ErrAlreadyCancelled = errors.New("request already cancelled")

	// ErrNotAuthor is returned when someone other than the author cancels.
	ErrNotAuthor = errors.New("not the author of this request")

	// ErrAlreadyActive is returned on start/resume while a session is active.
	ErrAlreadyActive = errors.New("session already active")

	// ErrNotActive is returned on pause/end without an active session.
	ErrNotActive = errors.New("session not active")

	// ErrSessionEnded is returned on start after end without force.
	ErrSessionEnded = errors.New("session already ended for today")

	// ErrNoTimelog is returned when the attendance record of today is gone.
	ErrNoTimelog = errors.New("no attendance record for today")

	ErrWrongRoom = errors.New("command not allowed in this room")
	ErrForbidden = errors.New("forbidden")

	// ErrCollaborator marks failures of the host or persistence layer.
	ErrCollaborator = errors.New("collaborator failure")

	// ErrInvalidConfig is fatal at startup.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrExpired is returned when a short-lived token is no longer valid.
	ErrExpired = errors.New("expired")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CollaboratorError records which external call failed.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() []error {
	return []error{ErrCollaborator, e.Err}
}

// Collaborator wraps err as a CollaboratorError. A nil err stays nil.
func Collaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidClock)
}

// IsConflict returns true for state-conflict errors. These are shown to the
// user as a notice and are not logged as system errors.
func IsConflict(err error) bool {
	return errors.Is(err, ErrNotPending) ||
		errors.Is(err, ErrAlreadyCancelled) ||
		errors.Is(err, ErrNotAuthor) ||
		errors.Is(err, ErrAlreadyActive) ||
		errors.Is(err, ErrNotActive) ||
		errors.Is(err, ErrSessionEnded) ||
		errors.Is(err, ErrNoTimelog) ||
		errors.Is(err, ErrWrongRoom)
}

// IsNotFound returns true if the error indicates a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired)
}
