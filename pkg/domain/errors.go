package domain

import "errors"

// ErrEmptyProcedure is returned when the procedure text has no non-whitespace character.
var ErrEmptyProcedure = errors.New("procedure text is empty")

// ErrProcedureTooLarge is returned when the procedure text exceeds the configured limit.
var ErrProcedureTooLarge = errors.New("procedure text exceeds maximum allowed size")

// ErrMissingCredential is returned when no credential is available for the outbound call.
var ErrMissingCredential = errors.New("no API credential configured")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ServiceError wraps any failure raised while contacting the extraction service.
// Its message is the underlying failure text, unchanged.
type ServiceError struct {
	Err error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return "extraction service error"
	}
	return e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err was raised before any outbound call.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyProcedure) || errors.Is(err, ErrProcedureTooLarge)
}
