package domain

import (
	"errors"
	"fmt"
)

// ErrAuthRequired means there is no active session. It triggers a redirect
// to the login page (or a 401 on the API), never an inline message.
var ErrAuthRequired = errors.New("authentication required")

// GenericFailureMessage is shown to users for backend failures.
const GenericFailureMessage = "Something went wrong, please try again"

// ValidationError is returned for malformed input. It is surfaced inline
// and the request is not forwarded to storage.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// BackendError wraps a storage, feed or network failure.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// NewBackendError wraps err unless it is nil or already classified.
func NewBackendError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) || errors.Is(err, ErrAuthRequired) {
		return err
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsBackend reports whether err is a BackendError.
func IsBackend(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// UserMessage returns the text to show for err. Validation errors keep
// their reason; anything else becomes the generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return GenericFailureMessage
}
