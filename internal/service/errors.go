// Package service provides business logic services for openshelf.
package service

import "errors"

// Common service errors.
var (
	// ErrInternalError wraps infrastructure failures so handlers can map
	// everything unclassified to a generic 500.
	ErrInternalError = errors.New("internal server error")
)
