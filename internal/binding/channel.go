package binding

import (
	"context"
	"fmt"
	"sync"
)

// ChannelForwarder delivers calls to an in-process consumer over a buffered
// Go channel. Invoke never blocks: a full or closed channel rejects the call.
type ChannelForwarder struct {
	mu     sync.RWMutex
	calls  chan Call
	closed bool
}

// NewChannelForwarder creates a forwarder whose channel holds up to buffer
// undelivered calls.
func NewChannelForwarder(buffer int) *ChannelForwarder {
	return &ChannelForwarder{calls: make(chan Call, buffer)}
}

// Calls is the consumer's receive side.
func (c *ChannelForwarder) Calls() <-chan Call {
	return c.calls
}

// Invoke implements Forwarder.
func (c *ChannelForwarder) Invoke(_ context.Context, method string, args map[string]any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return fmt.Errorf("%w: channel closed", ErrRejected)
	}

	select {
	case c.calls <- Call{Method: method, Args: args}:
		return nil
	default:
		return fmt.Errorf("%w: channel full", ErrRejected)
	}
}

// Close closes the receive side. Later calls are rejected.
func (c *ChannelForwarder) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.calls)
}
