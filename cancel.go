//go:build windows

package wae

import "sync"

// CancelToken is a standalone cancellation signal modelled on the DOM
// AbortController/AbortSignal pattern: Cancel triggers it and runs the
// handlers registered via OnCancel. No operation in this package takes or
// observes a CancelToken; reads, writes and tasks are cancelled through
// their own methods (CancelRead, CancelWrite, Task.Cancel).
type CancelToken struct {
	mu       sync.Mutex
	handlers []func()
	done     bool
}

// NewCancelToken returns a ready-to-use, not-yet-cancelled token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel marks the token cancelled and runs every handler registered via
// OnCancel, in registration order. Calling Cancel more than once has no
// further effect.
func (c *CancelToken) Cancel() {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	handlers := c.handlers
	c.handlers = nil
	c.mu.Unlock()

	for _, h := range handlers {
		h()
	}
}

// Cancelled reports whether Cancel has been called.
func (c *CancelToken) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// OnCancel registers fn to run when Cancel is called. If the token is
// already cancelled, fn runs immediately on the calling goroutine.
func (c *CancelToken) OnCancel(fn func()) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		fn()
		return
	}
	c.handlers = append(c.handlers, fn)
	c.mu.Unlock()
}
