package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMissingRequiredFields = errors.New("missing required fields")
	ErrMalformedKey          = errors.New("malformed object key")
	ErrInconsistentLocation  = errors.New("partition values map to more than one location")
	ErrInvalidBatchSize      = errors.New("invalid batch size")
)

// TransportErrorCode is reported when a catalog call failed without an API error code.
const TransportErrorCode = "Transport"

// UnknownErrorCode is reported when the catalog rejected a partition without error details.
const UnknownErrorCode = "Unknown"

// RegistrationError carries a catalog failure other than "already exists".
type RegistrationError struct {
	Code    string
	Message string
	Err     error
}

func (e *RegistrationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("partition registration failed: %s", e.Code)
	}
	return fmt.Sprintf("partition registration failed: %s: %s", e.Code, e.Message)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// ListingError is returned when the object listing could not be completed.
type ListingError struct {
	Bucket string
	Prefix string
	Err    error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("failed to list %s/%s: %v", e.Bucket, e.Prefix, e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}

// MalformedKeyError generates a formatted error for a key that cannot be decomposed.
func MalformedKeyError(key, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrMalformedKey, key, reason)
}

func ConfigNotSetError(config string) error {
	return fmt.Errorf("the %s setting must be set: %w", config, ErrMissingRequiredFields)
}
