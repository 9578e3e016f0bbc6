// Package auth provides bearer-token authentication for openshelf.
package auth

import "errors"

// Authentication and authorization errors.
var (
	// ErrMissingSecret indicates the signing secret is not configured.
	ErrMissingSecret = errors.New("token signing secret is not configured")

	// ErrMissingToken indicates no bearer token was supplied.
	ErrMissingToken = errors.New("access token required")

	// ErrTokenExpired indicates the token's expiry has passed.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenMalformed indicates the token signature or structure is invalid.
	ErrTokenMalformed = errors.New("invalid token")

	// ErrTokenNotYetValid indicates a not-before claim has not yet been met.
	ErrTokenNotYetValid = errors.New("token not active yet")

	// ErrUserNotFound indicates the token subject no longer resolves to a user.
	ErrUserNotFound = errors.New("user not found")

	// ErrAccountInactive indicates the resolved account is not active.
	ErrAccountInactive = errors.New("account is not active")

	// ErrUserDeleted indicates the resolved account is soft-deleted.
	ErrUserDeleted = errors.New("user account no longer exists")

	// ErrAuthRequired indicates a handler needing an identity found none.
	ErrAuthRequired = errors.New("authentication required")

	// ErrInsufficientRole indicates the identity lacks every required role.
	ErrInsufficientRole = errors.New("insufficient permissions")

	// ErrOwnershipRequired indicates the identity neither owns the resource
	// nor holds an admin-equivalent role.
	ErrOwnershipRequired = errors.New("access denied - you can only access your own resources")
)

// Code is a machine-readable error code carried in API error payloads.
type Code string

// The closed set of auth error codes.
const (
	CodeMissingToken      Code = "MISSING_TOKEN"
	CodeTokenExpired      Code = "TOKEN_EXPIRED"
	CodeInvalidToken      Code = "INVALID_TOKEN"
	CodeTokenNotActive    Code = "TOKEN_NOT_ACTIVE"
	CodeUserNotFound      Code = "USER_NOT_FOUND"
	CodeAccountInactive   Code = "ACCOUNT_INACTIVE"
	CodeUserDeleted       Code = "USER_DELETED"
	CodeAuthRequired      Code = "AUTH_REQUIRED"
	CodeInsufficientRole  Code = "INSUFFICIENT_PERMISSIONS"
	CodeOwnershipRequired Code = "OWNERSHIP_REQUIRED"
	CodeRateLimited       Code = "RATE_LIMIT_EXCEEDED"
)

// AuthError pairs a sentinel error with its API code and HTTP status.
type AuthError struct {
	// Code is the machine-readable error code.
	Code Code

	// Message is the human-readable error message.
	Message string

	// HTTPStatus is the HTTP status code.
	HTTPStatus int
}

func (e *AuthError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// NewAuthError maps an error from the auth chain onto its API representation.
// The mapping is exhaustive over the package's sentinel errors; anything
// unrecognized fails closed as an invalid token.
func NewAuthError(err error) *AuthError {
	switch {
	case errors.Is(err, ErrMissingToken):
		return &AuthError{Code: CodeMissingToken, Message: ErrMissingToken.Error(), HTTPStatus: 401}
	case errors.Is(err, ErrTokenExpired):
		return &AuthError{Code: CodeTokenExpired, Message: ErrTokenExpired.Error(), HTTPStatus: 401}
	case errors.Is(err, ErrTokenNotYetValid):
		return &AuthError{Code: CodeTokenNotActive, Message: ErrTokenNotYetValid.Error(), HTTPStatus: 401}
	case errors.Is(err, ErrUserNotFound):
		return &AuthError{Code: CodeUserNotFound, Message: ErrUserNotFound.Error(), HTTPStatus: 401}
	case errors.Is(err, ErrAccountInactive):
		return &AuthError{Code: CodeAccountInactive, Message: ErrAccountInactive.Error(), HTTPStatus: 403}
	case errors.Is(err, ErrUserDeleted):
		return &AuthError{Code: CodeUserDeleted, Message: ErrUserDeleted.Error(), HTTPStatus: 401}
	case errors.Is(err, ErrAuthRequired):
		return &AuthError{Code: CodeAuthRequired, Message: ErrAuthRequired.Error(), HTTPStatus: 401}
	case errors.Is(err, ErrInsufficientRole):
		return &AuthError{Code: CodeInsufficientRole, Message: ErrInsufficientRole.Error(), HTTPStatus: 403}
	case errors.Is(err, ErrOwnershipRequired):
		return &AuthError{Code: CodeOwnershipRequired, Message: ErrOwnershipRequired.Error(), HTTPStatus: 403}
	default:
		return &AuthError{Code: CodeInvalidToken, Message: ErrTokenMalformed.Error(), HTTPStatus: 401}
	}
}
