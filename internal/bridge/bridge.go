// Package bridge routes captured events to the live consumer or, failing
// that, to the durable queue.
//
// Every delivered event takes exactly one path:
//   - forwarded: the category's binding is set and the consumer accepted
//     the call
//   - queued: no binding, or the forward failed; the event's record was
//     handed to the queue
//   - dropped: the queue refused the record (StoreUnavailable)
//
// Deliver never reports failure to its caller. Outcomes are observable only
// through logs and metrics.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/capture-relay/internal/binding"
	"github.com/roach88/capture-relay/internal/event"
	"github.com/roach88/capture-relay/internal/metrics"
)

// Outcome is the path a delivered event took.
type Outcome string

const (
	OutcomeForwarded Outcome = "forwarded"
	OutcomeQueued    Outcome = "queued"
	OutcomeDropped   Outcome = "dropped"
)

// Invoker forwards a call to the consumer bound for a category.
// Implemented by *binding.Registry.
type Invoker interface {
	Invoke(ctx context.Context, category event.Category, method string, args map[string]any) error
}

// Enqueuer accepts records for durable storage without blocking.
// Implemented by *queue.Queue.
type Enqueuer interface {
	Enqueue(record string) error
}

// Bridge is the forward-or-enqueue router.
type Bridge struct {
	bindings Invoker
	queue    Enqueuer
	now      func() time.Time
	timeout  time.Duration
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// WithMetrics sets the metrics sink. Default: none.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithClock sets the clock used for enqueue timestamps. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) { b.now = now }
}

// WithForwardTimeout bounds each forward attempt.
// Default: binding.DefaultForwardTimeout.
func WithForwardTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// New creates a Bridge.
func New(bindings Invoker, queue Enqueuer, opts ...Option) *Bridge {
	b := &Bridge{
		bindings: bindings,
		queue:    queue,
		now:      time.Now,
		timeout:  binding.DefaultForwardTimeout,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Deliver forwards e to the bound consumer or queues it. It returns once the
// forward attempt has finished (bounded by the forward timeout) and the
// record, if any, is in the queue's mailbox.
func (b *Bridge) Deliver(ctx context.Context, e event.Event) {
	b.deliver(ctx, e)
}

func (b *Bridge) deliver(ctx context.Context, e event.Event) Outcome {
	log := b.log.With("event_id", e.ID(), "category", string(e.Category()))

	err := b.forward(ctx, e)
	switch {
	case err == nil:
		log.Debug("event forwarded", "method", e.Method())
		return b.record(e, OutcomeForwarded)
	case errors.Is(err, binding.ErrNotBound):
		log.Info("consumer not bound, queueing event")
	default:
		log.Warn("forward failed, queueing event", "error", err)
	}

	entry := e.Entry(b.now())
	switch {
	case entry.HasDelimiterCollision():
		log.Warn("event field contains record delimiter, queued record will not parse",
			"delimiter", event.Delimiter)
	case entry.HasTagCollision():
		log.Warn("notification title equals the SMS tag, queued record will read back as an SMS")
	}

	if err := b.queue.Enqueue(entry.Record()); err != nil {
		log.Error("queue unavailable, dropping event", "error", err)
		return b.record(e, OutcomeDropped)
	}
	return b.record(e, OutcomeQueued)
}

func (b *Bridge) forward(ctx context.Context, e event.Event) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.bindings.Invoke(ctx, e.Category(), e.Method(), e.Payload())
}

func (b *Bridge) record(e event.Event, o Outcome) Outcome {
	b.metrics.BridgeDelivery(string(e.Category()), string(o))
	return o
}
