// Package common defines shared constants and sentinel errors used across
// gophauth layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Business outcomes reported to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("validation failed")
	ErrTokenMalformed     = errors.New("token malformed")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrUserNotFound       = errors.New("user not found")
)

// Machine-readable error kinds returned to API clients.
const (
	KindInvalidCredentials = "InvalidCredentials"
	KindValidationFailed   = "ValidationFailed"
	KindTokenMalformed     = "TokenMalformed"
	KindTokenExpired       = "TokenExpired"
	KindTokenRevoked       = "TokenRevoked"
	KindTokenInvalid       = "TokenInvalid"
	KindUserNotFound       = "UserNotFound"
	KindInternal           = "Internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrValidation, KindValidationFailed},
	{ErrTokenMalformed, KindTokenMalformed},
	{ErrTokenExpired, KindTokenExpired},
	{ErrTokenRevoked, KindTokenRevoked},
	{ErrTokenInvalid, KindTokenInvalid},
	{ErrUserNotFound, KindUserNotFound},
}

// Kind returns the machine-readable kind of err. Errors outside the
// business taxonomy (store failures, bugs) are reported as KindInternal.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// ValidationError carries per-field messages for malformed input.
// It matches ErrValidation through errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error()
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
