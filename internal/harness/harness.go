package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/capture-relay/internal/binding"
	"github.com/roach88/capture-relay/internal/bridge"
	"github.com/roach88/capture-relay/internal/event"
	"github.com/roach88/capture-relay/internal/listener"
	"github.com/roach88/capture-relay/internal/queue"
	"github.com/roach88/capture-relay/internal/store"
	"github.com/roach88/capture-relay/internal/testutil"
)

// Harness is one in-process relay wired for a scenario run.
type Harness struct {
	store    *store.Store
	queue    *queue.Queue
	bindings *binding.Registry
	consumer *testutil.RecordingForwarder
	failing  bool
	clock    *testutil.ManualClock
	sms      *listener.SMSListener
	notes    *listener.NotificationListener

	// pending mirrors the queue content after the last step.
	pending map[string]bool
}

// Run executes a scenario against a fresh relay and evaluates its
// assertions.
//
// Execution flow:
//  1. Open an in-memory store and start the queue writer
//  2. Run each step, recording forwarded calls and new queue records
//  3. Read the final queue and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	start := scenario.StartMillis
	if start == 0 {
		start = DefaultStartMillis
	}

	h := &Harness{
		store:    st,
		queue:    queue.New(st, queue.WithLogger(logger)),
		bindings: binding.NewRegistry(),
		consumer: testutil.NewRecordingForwarder(),
		clock:    testutil.NewManualClockMillis(start),
		pending:  make(map[string]bool),
	}
	b := bridge.New(h.bindings, h.queue, bridge.WithClock(h.clock.Now), bridge.WithLogger(logger))
	h.sms = listener.NewSMSListener(b, listener.WithLogger(logger))
	h.notes = listener.NewNotificationListener(b, listener.WithLogger(logger))

	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- h.queue.Run(ctx) }()
	defer func() {
		h.queue.Close()
		<-done
	}()

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	pending, err := h.queue.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final queue: %w", err)
	}
	result.Pending = pending

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	before := len(h.consumer.Calls())

	switch {
	case step.SMS != nil:
		h.sms.OnReceive(ctx, listener.RawSMSSignal{
			Action: listener.ActionSMSReceived,
			Parts: []listener.RawSMSPart{{
				Sender:          step.SMS.Sender,
				Body:            step.SMS.Body,
				TimestampMillis: step.SMS.TimestampMillis,
			}},
		})
	case step.Notification != nil:
		h.notes.OnPosted(ctx, step.Notification.raw())
	case step.Bind != "":
		if err := h.attach(step.Bind); err != nil {
			return err
		}
	case step.Unbind != "":
		h.detach(step.Unbind)
	case step.Advance != "":
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		h.clock.Advance(d)
	case step.ConsumerFails != nil:
		h.failing = *step.ConsumerFails
		if h.failing {
			h.consumer.FailWith(binding.ErrRejected)
		} else {
			h.consumer.FailWith(nil)
		}
	case step.Drain:
		records, err := h.queue.Drain(ctx)
		if err != nil {
			return fmt.Errorf("drain: %w", err)
		}
		clear(h.pending)
		result.addDrained(index, records)
		return nil
	}

	kind := TraceForwarded
	if h.failing {
		kind = TraceRejected
	}
	calls := h.consumer.Calls()
	for _, c := range calls[before:] {
		result.addCall(kind, index, c.Method, c.Args)
	}
	return h.recordQueued(ctx, index, result)
}

// recordQueued reads the queue through the writer's mailbox, so every
// record the step enqueued has been written, and traces the new ones.
func (h *Harness) recordQueued(ctx context.Context, index int, result *Result) error {
	records, err := h.queue.List(ctx)
	if err != nil {
		return fmt.Errorf("list queue: %w", err)
	}

	var added []string
	for _, r := range records {
		if !h.pending[r] {
			h.pending[r] = true
			added = append(added, r)
		}
	}
	if len(added) > 0 {
		result.addQueued(index, added)
	}
	return nil
}

func (h *Harness) attach(category string) error {
	if category == "all" {
		return h.bindings.AttachAll(h.consumer)
	}
	return h.bindings.Attach(event.Category(category), h.consumer)
}

func (h *Harness) detach(category string) {
	if category != "all" {
		h.bindings.Detach(event.Category(category))
		return
	}
	for _, c := range binding.Categories {
		h.bindings.Detach(c)
	}
}

func (n *NotificationStep) raw() listener.RawNotification {
	extras := make(map[string]any)
	for key, v := range map[string]*string{
		listener.ExtraTitle:   n.Title,
		listener.ExtraText:    n.Text,
		listener.ExtraBigText: n.BigText,
	} {
		if v != nil {
			extras[key] = *v
		}
	}
	return listener.RawNotification{SourceAppID: n.SourceAppID, Extras: extras}
}
