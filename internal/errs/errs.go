// Package errs defines the domain error taxonomy shared by stores, the
// settlement engine, and the HTTP handlers.
package errs

import "fmt"

// ValidationError reports malformed input (non-positive weight, empty title).
// Never retried; surfaced to the caller immediately.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validation builds a ValidationError from a format string.
func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown challenge, participant, or record.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// NotFound builds a NotFoundError for the named resource.
func NotFound(resource string, id int64) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// IllegalStateError reports an operation attempted against a challenge in the
// wrong lifecycle status, or a settlement re-run that cannot be satisfied
// idempotently. Committed data is never corrupted by the failed operation.
type IllegalStateError struct {
	Msg string
}

func (e *IllegalStateError) Error() string { return e.Msg }

// IllegalState builds an IllegalStateError from a format string.
func IllegalState(format string, args ...any) error {
	return &IllegalStateError{Msg: fmt.Sprintf(format, args...)}
}

// NoWinnersError is a structured, non-exceptional settlement outcome: the
// challenge completed but no paid participant reached the goal, so the pool
// is not distributed. Callers must handle it explicitly; it is not a failure.
type NoWinnersError struct {
	ChallengeID int64
}

func (e *NoWinnersError) Error() string {
	return fmt.Sprintf("challenge %d settled with no winners", e.ChallengeID)
}
