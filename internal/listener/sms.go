package listener

import (
	"context"
	"fmt"

	"github.com/roach88/capture-relay/internal/event"
)

// ActionSMSReceived is the only signal action the SMS listener handles.
const ActionSMSReceived = "sms-received"

// RawSMSPart is one message part as delivered by the host. Sender and body
// may be absent.
type RawSMSPart struct {
	Sender          *string `json:"sender"`
	Body            *string `json:"body"`
	TimestampMillis int64   `json:"timestampMillis"`
}

// RawSMSSignal is one SMS-received signal, possibly bundling several parts.
type RawSMSSignal struct {
	Action string       `json:"action"`
	Parts  []RawSMSPart `json:"parts"`
}

// SMSListener turns SMS-received signals into SMS events, one per part.
type SMSListener struct {
	out  Deliverer
	opts options
}

// NewSMSListener creates an SMSListener delivering to out.
func NewSMSListener(out Deliverer, opts ...Option) *SMSListener {
	return &SMSListener{out: out, opts: buildOptions(opts)}
}

// OnReceive handles one signal and returns how many parts were delivered.
// Parts are delivered in the order the host presents them. A part that
// fails to normalize or deliver is logged and skipped; later parts still
// run.
func (l *SMSListener) OnReceive(ctx context.Context, sig RawSMSSignal) int {
	if sig.Action != ActionSMSReceived {
		l.opts.log.Debug("ignoring signal", "action", sig.Action)
		return 0
	}

	delivered := 0
	for i, part := range sig.Parts {
		if err := l.deliverPart(ctx, part); err != nil {
			l.opts.log.Error("error processing sms part", "part", i, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

func (l *SMSListener) deliverPart(ctx context.Context, part RawSMSPart) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	e := event.NewSMS(
		l.opts.ids.Generate(),
		event.Normalize(deref(part.Sender)),
		event.Normalize(deref(part.Body)),
		part.TimestampMillis,
	)
	l.opts.log.Debug("sms received", "event_id", e.ID(), "sender", e.Sender())
	l.out.Deliver(ctx, e)
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
