package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter implements Counter using an in-process map.
// Counts are NOT shared across process restarts or multiple instances;
// each process enforces its own independent limit.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*counterEntry
	stopCh  chan struct{}
	stopped bool

	// now is swappable for tests.
	now func() time.Time
}

// counterEntry tracks attempts for a single key.
type counterEntry struct {
	count   int64
	resetAt time.Time
}

// NewMemoryCounter creates a new in-memory counter.
func NewMemoryCounter() *MemoryCounter {
	c := &MemoryCounter{
		entries: make(map[string]*counterEntry),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	// Background sweep of expired windows; entries are also purged lazily
	// on each Increment.
	go c.cleanupLoop()

	return c
}

// cleanupLoop periodically removes expired windows.
func (c *MemoryCounter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes entries whose window has elapsed.
func (c *MemoryCounter) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.resetAt) {
			delete(c.entries, key)
		}
	}
}

// Stop stops the cleanup goroutine.
func (c *MemoryCounter) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stopped {
		close(c.stopCh)
		c.stopped = true
	}
}

// Increment records one attempt for key within the current window.
func (c *MemoryCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	entry, exists := c.entries[key]
	if !exists || now.After(entry.resetAt) {
		entry = &counterEntry{count: 0, resetAt: now.Add(window)}
		c.entries[key] = entry
	}

	entry.count++
	return entry.count, entry.resetAt.Sub(now), nil
}

// Ensure MemoryCounter implements Counter.
var _ Counter = (*MemoryCounter)(nil)
