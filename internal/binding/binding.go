// Package binding holds the registration of the live downstream consumer.
//
// The consumer attaches one Forwarder per event category at its own startup.
// A slot starts unset and is replaced by every later Attach (last writer
// wins, no versioning). Slots are never cleared by the relay itself: an
// absent consumer is simply an unset slot, and a consumer that went away is
// discovered when a forward through its stale Forwarder fails.
//
// Thread-safety: all Registry methods are safe for concurrent use. Reads are
// lock-free; a reader may observe a Forwarder replaced a moment later, which
// at worst costs one extra queue fallback.
package binding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/roach88/capture-relay/internal/event"
)

var (
	// ErrNotBound reports that no consumer is attached for the category.
	ErrNotBound = errors.New("consumer not bound")

	// ErrRejected reports that the consumer's channel refused the call.
	ErrRejected = errors.New("consumer rejected call")

	// ErrUnknownCategory is returned by Attach for categories without a slot.
	ErrUnknownCategory = errors.New("unknown binding category")
)

// Forwarder is the consumer's message channel.
type Forwarder interface {
	// Invoke delivers one method call. A nil error means the consumer
	// accepted the call.
	Invoke(ctx context.Context, method string, args map[string]any) error
}

// Call is one method invocation as seen by the consumer.
type Call struct {
	Method string         `json:"method"`
	Args   map[string]any `json:"args"`
}

// Categories lists every category a Registry has a slot for.
var Categories = []event.Category{
	event.CategorySMS,
	event.CategoryNotification,
	event.CategoryApp,
}

type holder struct {
	f Forwarder
}

// Registry holds one binding slot per category.
type Registry struct {
	slots map[event.Category]*atomic.Pointer[holder]
}

// NewRegistry creates a Registry with every slot unset.
func NewRegistry() *Registry {
	r := &Registry{slots: make(map[event.Category]*atomic.Pointer[holder], len(Categories))}
	for _, c := range Categories {
		r.slots[c] = new(atomic.Pointer[holder])
	}
	return r
}

// Attach sets the Forwarder for category, replacing any previous one.
func (r *Registry) Attach(category event.Category, f Forwarder) error {
	if f == nil {
		return fmt.Errorf("attach %s: nil forwarder", category)
	}
	slot, ok := r.slots[category]
	if !ok {
		return fmt.Errorf("attach %q: %w", category, ErrUnknownCategory)
	}
	slot.Store(&holder{f: f})
	return nil
}

// AttachAll sets f for every category.
func (r *Registry) AttachAll(f Forwarder) error {
	for _, c := range Categories {
		if err := r.Attach(c, f); err != nil {
			return err
		}
	}
	return nil
}

// Detach unsets the slot for category. The relay never calls it on its own
// paths; it exists for orderly shutdown.
func (r *Registry) Detach(category event.Category) {
	if slot, ok := r.slots[category]; ok {
		slot.Store(nil)
	}
}

// Current returns the Forwarder attached for category.
func (r *Registry) Current(category event.Category) (Forwarder, bool) {
	slot, ok := r.slots[category]
	if !ok {
		return nil, false
	}
	h := slot.Load()
	if h == nil {
		return nil, false
	}
	return h.f, true
}

// Bound reports whether a consumer is attached for category.
func (r *Registry) Bound(category event.Category) bool {
	_, ok := r.Current(category)
	return ok
}

// Invoke forwards one call through the category's Forwarder. It returns
// ErrNotBound when the slot is unset. A panicking Forwarder is reported as
// ErrRejected.
func (r *Registry) Invoke(ctx context.Context, category event.Category, method string, args map[string]any) (err error) {
	f, ok := r.Current(category)
	if !ok {
		return ErrNotBound
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: forwarder panic: %v", ErrRejected, p)
		}
	}()

	return f.Invoke(ctx, method, args)
}
