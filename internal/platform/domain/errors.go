package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a DomainError for transport mapping.
type ErrorCode string

const (
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeConflict     ErrorCode = "CONFLICT"
	CodeInvalidState ErrorCode = "INVALID_STATE"
	CodeUpstream     ErrorCode = "UPSTREAM_ERROR"
)

// DomainError is a typed, user-presentable error raised by the domain and application layers.
type DomainError struct {
	Code    ErrorCode
	Reason  string
	Message string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithReason returns a copy of the error carrying a machine-readable reason.
func (e *DomainError) WithReason(reason string) *DomainError {
	cp := *e
	cp.Reason = reason
	return &cp
}

// NewValidationError creates an error for rejected input.
func NewValidationError(message string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: message}
}

// NewNotFoundError creates an error for a missing entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: fmt.Sprintf("%s with ID %s not found", entity, id)}
}

// NewConflictError creates an error for a write that lost against concurrent state.
func NewConflictError(message string) *DomainError {
	return &DomainError{Code: CodeConflict, Message: message}
}

// NewInvalidStateError creates an error for a disallowed state transition.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{
		Code:    CodeInvalidState,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

// NewUpstreamError creates an error for a failed call to an external collaborator.
func NewUpstreamError(reason, message string) *DomainError {
	return &DomainError{Code: CodeUpstream, Reason: reason, Message: message}
}

// AsDomainError unwraps err into a DomainError if it is one.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsCode reports whether err is a DomainError with the given code.
func IsCode(err error, code ErrorCode) bool {
	de, ok := AsDomainError(err)
	return ok && de.Code == code
}

// IsNotFound reports whether err is a not-found DomainError.
func IsNotFound(err error) bool { return IsCode(err, CodeNotFound) }

// IsConflict reports whether err is a conflict DomainError.
func IsConflict(err error) bool { return IsCode(err, CodeConflict) }
