// Package queue implements the durable fallback queue for events that could
// not be forwarded to a live consumer.
//
// Records live in a string set under a fixed (namespace, key) pair of the
// backing store. Every store access happens in one goroutine, the Run loop,
// so a Drain's read and clear cannot interleave with an insertion. Callers
// only append to an in-memory mailbox, which never blocks on the store.
//
// Thread-safety model:
//   - Enqueue(), EnqueueWait(), Drain(), List(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
package queue

import (
	"context"
	"log/slog"
	"slices"

	"github.com/roach88/capture-relay/internal/event"
	"github.com/roach88/capture-relay/internal/metrics"
)

// Backend is the persistent key-value region the queue writes to.
// Implemented by *store.Store.
type Backend interface {
	StringSet(ctx context.Context, namespace, key string) ([]string, error)
	PutStringSet(ctx context.Context, namespace, key string, members []string) error
	AddToStringSet(ctx context.Context, namespace, key, member string) (int, error)
}

// Queue is the durable queue. Create with New and start Run before relying
// on records reaching the store; records enqueued earlier wait in the
// mailbox.
type Queue struct {
	backend   Backend
	box       *mailbox
	log       *slog.Logger
	metrics   *metrics.Metrics
	namespace string
	key       string
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.log = l }
}

// WithMetrics sets the metrics sink. Default: none.
func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Queue) { q.metrics = m }
}

// WithLocation overrides the store location.
// Default: event.QueueNamespace / event.QueueKey.
func WithLocation(namespace, key string) Option {
	return func(q *Queue) {
		q.namespace = namespace
		q.key = key
	}
}

// New creates a Queue over backend.
func New(backend Backend, opts ...Option) *Queue {
	q := &Queue{
		backend:   backend,
		box:       newMailbox(),
		log:       slog.Default(),
		namespace: event.QueueNamespace,
		key:       event.QueueKey,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue submits record for persistence and returns without waiting for the
// store. The only synchronous failure is a closed queue, reported as
// StoreUnavailable. Store failures during the later write are logged by the
// Run loop and the record is dropped.
func (q *Queue) Enqueue(record string) error {
	if !q.box.Enqueue(message{op: opEnqueue, record: record}) {
		return storeUnavailable("queue closed", nil)
	}
	return nil
}

// EnqueueWait submits record and waits until the Run loop has written it.
func (q *Queue) EnqueueWait(ctx context.Context, record string) error {
	r := q.call(ctx, message{op: opEnqueue, record: record})
	return r.err
}

// Drain returns every pending record, oldest first, and clears the queue in
// the same writer turn, so no record enqueued concurrently is lost between
// the read and the clear.
func (q *Queue) Drain(ctx context.Context) ([]string, error) {
	r := q.call(ctx, message{op: opDrain})
	return r.records, r.err
}

// List returns every pending record, oldest first, without removing them.
func (q *Queue) List(ctx context.Context) ([]string, error) {
	r := q.call(ctx, message{op: opList})
	return r.records, r.err
}

// Pending returns the number of messages not yet processed by Run.
func (q *Queue) Pending() int {
	return q.box.Len()
}

// Close stops accepting new messages. Run processes what is already in the
// mailbox and then returns.
func (q *Queue) Close() {
	q.box.Close()
}

func (q *Queue) call(ctx context.Context, m message) reply {
	m.reply = make(chan reply, 1)
	if !q.box.Enqueue(m) {
		return reply{err: storeUnavailable("queue closed", nil)}
	}
	select {
	case r := <-m.reply:
		return r
	case <-ctx.Done():
		return reply{err: ctx.Err()}
	}
}

// Run is the single-writer loop. It blocks until the queue is closed and its
// mailbox is empty, or ctx is cancelled. On cancellation, messages already in
// the mailbox are still written before Run returns and the queue is closed.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (q *Queue) Run(ctx context.Context) error {
	q.log.Debug("queue writer starting", "namespace", q.namespace, "key", q.key)

	for {
		if ctx.Err() != nil {
			// Later callers get StoreUnavailable instead of a mailbox
			// nobody reads.
			q.box.Close()
			q.flush(context.WithoutCancel(ctx))
			q.log.Debug("queue writer stopped", "reason", ctx.Err())
			return nil
		}

		if m, ok := q.box.TryDequeue(); ok {
			q.process(ctx, m)
			continue
		}

		if q.box.Closed() {
			q.log.Debug("queue writer stopped")
			return nil
		}

		select {
		case <-ctx.Done():
		case <-q.box.Wait():
		}
	}
}

// flush processes everything left in the mailbox.
func (q *Queue) flush(ctx context.Context) {
	for {
		m, ok := q.box.TryDequeue()
		if !ok {
			return
		}
		q.process(ctx, m)
	}
}

func (q *Queue) process(ctx context.Context, m message) {
	var r reply
	switch m.op {
	case opEnqueue:
		r.err = q.add(ctx, m.record)
	case opDrain:
		r.records, r.err = q.drain(ctx)
	case opList:
		r.records, r.err = q.list(ctx)
	}
	if m.reply != nil {
		m.reply <- r
	}
}

func (q *Queue) add(ctx context.Context, record string) error {
	depth, err := q.backend.AddToStringSet(ctx, q.namespace, q.key, record)
	if err != nil {
		return q.dropped(record, err)
	}

	q.metrics.QueueWrite("ok")
	q.metrics.SetQueueDepth(depth)
	q.log.Debug("record queued", "depth", depth)
	return nil
}

func (q *Queue) dropped(record string, err error) error {
	q.metrics.QueueWrite("failed")
	q.log.Error("store unavailable, dropping record", "error", err, "record_len", len(record))
	return storeUnavailable("write record", err)
}

func (q *Queue) drain(ctx context.Context) ([]string, error) {
	records, err := q.list(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}
	if err := q.backend.PutStringSet(ctx, q.namespace, q.key, nil); err != nil {
		return nil, storeUnavailable("clear queue", err)
	}
	q.metrics.SetQueueDepth(0)
	q.log.Info("queue drained", "records", len(records))
	return records, nil
}

func (q *Queue) list(ctx context.Context) ([]string, error) {
	records, err := q.backend.StringSet(ctx, q.namespace, q.key)
	if err != nil {
		return nil, storeUnavailable("read queue", err)
	}
	sortByEnqueueTime(records)
	return records, nil
}

// sortByEnqueueTime orders records by their trailing timestamp. Records that
// do not parse sort first, in their stored order.
func sortByEnqueueTime(records []string) {
	slices.SortStableFunc(records, func(a, b string) int {
		ta, tb := enqueuedAt(a), enqueuedAt(b)
		switch {
		case ta < tb:
			return -1
		case ta > tb:
			return 1
		default:
			return 0
		}
	})
}

func enqueuedAt(record string) int64 {
	entry, err := event.ParseRecord(record)
	if err != nil {
		return 0
	}
	return entry.EnqueuedAtMillis
}
