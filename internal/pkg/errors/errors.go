package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict is returned when a user already owns an active generation job.
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition marks a lifecycle change the job's current status does not allow.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrUpstreamFailure wraps failures of the AI generation collaborator.
	ErrUpstreamFailure = errors.New("upstream failure")
	// ErrVerificationTimeout is logged when a produced artifact never became visible.
	ErrVerificationTimeout = errors.New("verification timeout")
)

// ConflictError carries the blocking resource so callers can fall back to resuming it.
// Active is typed as any to keep this package free of domain imports.
type ConflictError struct {
	Reason string
	Active any
}

func (e *ConflictError) Error() string {
	if e == nil || e.Reason == "" {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("%s: %s", ErrConflict.Error(), e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// UpstreamError keeps the collaborator's own message while matching ErrUpstreamFailure.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	if e == nil || e.Err == nil {
		return ErrUpstreamFailure.Error()
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamFailure }

func Upstream(err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Err: err}
}
