package apperr

import (
	"errors"
	"fmt"

	"legal_marketplace_service/pkg/logger"
)

// Error kinds shared by every service. Handlers map these to transport
// status codes; everything else is treated as an internal error.
var (
	// ErrValidation malformed input, rejected before any side effect
	ErrValidation = errors.New("validation error")
	// ErrAuth missing, expired or invalid credential
	ErrAuth = errors.New("auth error")
	// ErrNotAuthorized caller is not a participant of the target room
	ErrNotAuthorized = errors.New("not authorized")
	// ErrTransport socket disconnect or request timeout
	ErrTransport = errors.New("transport error")
	// ErrNotFound target record does not exist
	ErrNotFound = errors.New("not found")
)

// Validation wraps msg as a ValidationError.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Auth wraps msg as an AuthError.
func Auth(msg string) error {
	return fmt.Errorf("%w: %s", ErrAuth, msg)
}

// NotAuthorized wraps msg as a NotAuthorizedError.
func NotAuthorized(msg string) error {
	return fmt.Errorf("%w: %s", ErrNotAuthorized, msg)
}

// Transport wraps err as a TransportError, keeping the cause in the message.
func Transport(err error) error {
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// NotFound wraps msg as a NotFound error.
func NotFound(msg string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, msg)
}

// Set logs errMsg and returns it as an error.
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// IsValidation report whether err is a ValidationError.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsAuth report whether err is an AuthError.
func IsAuth(err error) bool { return errors.Is(err, ErrAuth) }

// IsNotAuthorized report whether err is a NotAuthorizedError.
func IsNotAuthorized(err error) bool { return errors.Is(err, ErrNotAuthorized) }

// IsTransport report whether err is a TransportError.
func IsTransport(err error) bool { return errors.Is(err, ErrTransport) }

// IsNotFound report whether err is a NotFound error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
