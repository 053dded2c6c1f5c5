package testutil

import (
	"context"
	"sync"

	"github.com/roach88/capture-relay/internal/binding"
)

// RecordingForwarder is a binding.Forwarder that records every call and
// returns a configurable error.
//
// Thread-safety: safe for concurrent use.
type RecordingForwarder struct {
	mu    sync.Mutex
	calls []binding.Call
	err   error
}

// NewRecordingForwarder creates a forwarder that accepts every call.
func NewRecordingForwarder() *RecordingForwarder {
	return &RecordingForwarder{}
}

// FailWith makes later calls return err (still recorded). nil restores
// acceptance.
func (f *RecordingForwarder) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Invoke implements binding.Forwarder.
func (f *RecordingForwarder) Invoke(_ context.Context, method string, args map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, binding.Call{Method: method, Args: args})
	return f.err
}

// Calls returns a copy of the recorded calls in order.
func (f *RecordingForwarder) Calls() []binding.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]binding.Call, len(f.calls))
	copy(out, f.calls)
	return out
}
