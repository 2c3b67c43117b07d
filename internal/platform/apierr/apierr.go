package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainerrs "github.com/yungbote/cyclecoach-backend/internal/pkg/errors"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// From maps a service error onto an HTTP status and stable error code.
// Already-typed *Error values pass through untouched.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, domainerrs.ErrConflict):
		return New(http.StatusConflict, "conflict", err)
	case errors.Is(err, domainerrs.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, domainerrs.ErrInvalidArgument):
		return New(http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, domainerrs.ErrUnauthorized):
		return New(http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, domainerrs.ErrInvalidTransition):
		return New(http.StatusConflict, "invalid_transition", err)
	case errors.Is(err, domainerrs.ErrUpstreamFailure):
		return New(http.StatusBadGateway, "upstream_failure", err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}
