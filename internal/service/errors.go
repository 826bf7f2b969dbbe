package service

import (
	"errors"
)

// Domain errors. Handlers translate these into HTTP responses; callers
// test for them with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidRange       = errors.New("min_grade cannot be greater than max_grade")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyEnrolled    = errors.New("already enrolled")
	ErrConflict           = errors.New("conflict")
	ErrStorage            = errors.New("storage failure")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrBackupInProgress   = errors.New("backup already in progress")
)

// ValidationKind classifies a ValidationError.
type ValidationKind int

const (
	InvalidType ValidationKind = iota + 1
	OutOfRange
	MissingField
	EmptyField
)

func (k ValidationKind) String() string {
	switch k {
	case InvalidType:
		return "invalid_type"
	case OutOfRange:
		return "out_of_range"
	case MissingField:
		return "missing_field"
	case EmptyField:
		return "empty_field"
	}
	return "unknown"
}

// ValidationError describes why a grade value or record was rejected.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// AsValidation unwraps err into a *ValidationError when it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
