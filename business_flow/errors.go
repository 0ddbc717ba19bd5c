// Package businessflow contains the core business logic for the engagement tracking workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Video-related errors
	ErrVideoNotFound      = errors.New("video not found")
	ErrVideoAccessDenied  = errors.New("video access denied")
	ErrVideoNotReady      = errors.New("video is not ready to be sent")
	ErrVideoTitleRequired = errors.New("video title is required")
	ErrVideoPathRequired  = errors.New("video media path is required")

	// Event-related errors
	ErrUnknownEventKind = errors.New("unknown event kind")

	// Forward-related errors
	ErrForwardRecipientRequired = errors.New("forward recipient is required")

	// Owner-related errors
	ErrCustomerNotFound = errors.New("customer not found")
	ErrAccountInactive  = errors.New("account is inactive")

	// Infrastructure errors
	ErrStoreUnavailable = errors.New("datastore unavailable")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// unavailable wraps a datastore failure so handlers can map it to a retryable
// 5xx without leaking the raw driver error.
func unavailable(message string, err error) *BusinessError {
	return &BusinessError{
		Code:    "STORE_UNAVAILABLE",
		Message: message,
		Err:     fmt.Errorf("%w: %w", ErrStoreUnavailable, err),
	}
}

func IsVideoNotFound(err error) bool {
	return errors.Is(err, ErrVideoNotFound)
}

func IsVideoAccessDenied(err error) bool {
	return errors.Is(err, ErrVideoAccessDenied)
}

func IsVideoNotReady(err error) bool {
	return errors.Is(err, ErrVideoNotReady)
}

func IsUnknownEventKind(err error) bool {
	return errors.Is(err, ErrUnknownEventKind)
}

func IsForwardRecipientRequired(err error) bool {
	return errors.Is(err, ErrForwardRecipientRequired)
}

func IsCustomerNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
