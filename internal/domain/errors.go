package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnknownField = errors.New("unknown profile field")
	ErrSocialIndex  = errors.New("social link index out of range")
	ErrNotImage     = errors.New("upload is not an image")
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Login failure reasons carried in the ?error= query of the login page.
const (
	ReasonMissingCode     = "missing_code"
	ReasonInvalidState    = "invalid_state"
	ReasonMissingToken    = "missing_token"
	ReasonUserInfoInvalid = "userinfo_invalid"
)

// LoginError is a terminal failure of the UAE PASS callback. Reason is the
// opaque code shown to the browser; Err is only ever logged.
type LoginError struct {
	Reason string
	Err    error
}

func (e *LoginError) Error() string {
	if e.Err == nil {
		return "uaepass login: " + e.Reason
	}
	return fmt.Sprintf("uaepass login: %s: %v", e.Reason, e.Err)
}

func (e *LoginError) Unwrap() error {
	return e.Err
}
