// Package ratelimit provides attempt counting for authentication endpoints.
// For single-node deployments, an in-memory counter is used.
// For distributed deployments, a Redis-based counter can be used so that all
// instances enforce one shared limit.
package ratelimit

import (
	"context"
	"time"
)

// Counter tracks per-key attempt counts over a fixed window.
// This abstraction allows switching between an in-process map (tests,
// single instance) and a shared external store (multi-instance deployments)
// without changing the middleware.
type Counter interface {
	// Increment records one attempt for key and returns the attempt count
	// within the current window plus the time remaining until the window
	// resets. The first attempt of a window starts it.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
}
