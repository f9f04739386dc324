// Package watch provides a single-slot latest-value channel. Every reader
// observes only the most recently published value; slow readers miss
// intermediate values instead of accumulating a backlog.
package watch

import "sync"

// Value holds the latest published value of type T.
type Value[T any] struct {
	mu      sync.Mutex
	current T
	updated chan struct{}
}

// New creates a Value seeded with an initial value, so readers never observe
// an unset slot.
func New[T any](initial T) *Value[T] {
	return &Value[T]{current: initial, updated: make(chan struct{})}
}

// Set publishes a new value and wakes all waiters.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	v.current = x
	close(v.updated)
	v.updated = make(chan struct{})
	v.mu.Unlock()
}

// Get returns the most recently published value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Updated returns a channel that is closed on the next Set. Callers wait on
// it and then call Get; values published in between are coalesced.
func (v *Value[T]) Updated() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.updated
}
