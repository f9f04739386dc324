// Package cancel implements a cooperative cancellation token shared between
// the dispense orchestrator, the overcurrent interlock and motor backends.
// Cancellation is advisory: long-running operations must poll the token and
// abort at their next opportunity.
package cancel

import (
	"sync"
	"sync/atomic"
)

// Token is a one-shot broadcast of "stop". It is safe to share across
// goroutines and to cancel more than once.
type Token struct {
	once  sync.Once
	fired atomic.Bool
	done  chan struct{}
}

// New returns an unsignaled token.
func New() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel signals the token. Subsequent calls are no-ops.
func (t *Token) Cancel() {
	t.once.Do(func() {
		t.fired.Store(true)
		close(t.done)
	})
}

// Cancelled reports whether the token has been signaled.
func (t *Token) Cancelled() bool {
	return t.fired.Load()
}

// Done returns a channel closed when the token is signaled.
func (t *Token) Done() <-chan struct{} {
	return t.done
}
