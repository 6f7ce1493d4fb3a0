package extension

import (
	"errors"
	"fmt"
)

// IOError indicates a local file could not be read or written.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error on %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// DecodeError indicates a malformed JSON document.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ValidationError is a structural violation in a manifest or source.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Reason
}

// NotFoundError indicates an unknown source or extension id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// PermissionDeniedError is raised by hosts that enforce authorization.
// Nothing in this module returns it.
type PermissionDeniedError struct {
	Permission string
	Reason     string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission %q denied: %s", e.Permission, e.Reason)
}

// NetworkError indicates a transport failure or a non-2xx response.
// StatusCode is zero when no response was received.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("network error: GET %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("network error: GET %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// SecurityError is a trust-boundary violation. The offending artifact is
// never handed back to the caller.
type SecurityError struct {
	Reason string
	Err    error
}

func (e *SecurityError) Error() string {
	return "security error: " + e.Reason
}

func (e *SecurityError) Unwrap() error {
	return e.Err
}

// IsIOError returns true if the error is an IOError.
func IsIOError(err error) bool {
	var target *IOError
	return errors.As(err, &target)
}

// IsDecodeError returns true if the error is a DecodeError.
func IsDecodeError(err error) bool {
	var target *DecodeError
	return errors.As(err, &target)
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsPermissionDenied returns true if the error is a PermissionDeniedError.
func IsPermissionDenied(err error) bool {
	var target *PermissionDeniedError
	return errors.As(err, &target)
}

// IsNetworkError returns true if the error is a NetworkError.
func IsNetworkError(err error) bool {
	var target *NetworkError
	return errors.As(err, &target)
}

// IsSecurityError returns true if the error is a SecurityError.
func IsSecurityError(err error) bool {
	var target *SecurityError
	return errors.As(err, &target)
}

// Reason extracts the human readable reason from a ValidationError or
// SecurityError, falling back to err.Error().
func Reason(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Reason
	}
	var s *SecurityError
	if errors.As(err, &s) {
		return s.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
