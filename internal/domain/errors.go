// Package domain contains the core business entities for openshelf.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken indicates a user with the same email already exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUsernameTaken indicates a user with the same username already exists.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrUserInactive indicates the user account is disabled.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrUserDeleted indicates the user account has been soft-deleted.
	ErrUserDeleted = errors.New("user account no longer exists")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ===========================================
	// Book Errors
	// ===========================================

	// ErrBookNotFound indicates the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrISBNTaken indicates a book with the same ISBN already exists.
	ErrISBNTaken = errors.New("a book with this isbn already exists")

	// ===========================================
	// Authorization Errors
	// ===========================================

	// ErrOwnershipRequired indicates the acting user neither owns the
	// resource nor holds an admin-equivalent role.
	ErrOwnershipRequired = errors.New("access denied: you can only modify your own resources")
)

// ValidationError is a field-tagged validation failure, surfaced to clients
// as a 400 with the offending field name.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a field-tagged validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AsValidationError unwraps err into a *ValidationError if possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
