package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports malformed or missing required input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NotFoundError reports a record, user or verifier that does not exist.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// ConflictError reports a duplicate-creation attempt.
type ConflictError struct {
	Entity string
	Key    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.Key)
}

// AuthorizationError reports a failed role or ownership check.
type AuthorizationError struct {
	Role      string
	Operation string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %s is not permitted to %s", e.Role, e.Operation)
}

// PreconditionFailedError reports a lifecycle transition attempted from the
// wrong status, or a missing declaration agreement. Required and Actual carry
// enough context for the caller to render a precise message.
type PreconditionFailedError struct {
	Required string
	Actual   string
	Message  string
}

func (e *PreconditionFailedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("requires status %s, current status is %s", e.Required, e.Actual)
}

// IntegrityError reports a violated committee invariant, such as a verifier
// from the department under review.
type IntegrityError struct {
	Message string
}

func (e *IntegrityError) Error() string { return e.Message }

// StorageError wraps an unexpected storage-layer failure so callers can tell
// infrastructure faults apart from validation and authorization outcomes.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storeErr wraps a gorm error unless it is nil.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// HTTPStatus maps every taxonomy member to a distinct outward signal.
func HTTPStatus(err error) int {
	var (
		validation   *ValidationError
		notFound     *NotFoundError
		conflict     *ConflictError
		authz        *AuthorizationError
		precondition *PreconditionFailedError
		integrity    *IntegrityError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &authz):
		return http.StatusForbidden
	case errors.As(err, &precondition):
		return http.StatusConflict
	case errors.As(err, &integrity):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
