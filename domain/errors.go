package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrInvalidEnum        = errors.New("invalid value")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrNoActiveSession    = errors.New("no active session")
	ErrSessionAlreadyOpen = errors.New("session already open")
	ErrSessionClosed      = errors.New("session is closed")
	ErrRiderRequired      = errors.New("rider must be assigned first")
)

// Invalid wraps ErrValidation with a human readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
