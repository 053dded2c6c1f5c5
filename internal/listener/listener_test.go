package listener

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/capture-relay/internal/event"
)

type recordingDeliverer struct {
	mu     sync.Mutex
	events []event.Event
	panics map[string]bool
}

func (r *recordingDeliverer) Deliver(_ context.Context, e event.Event) {
	if sms, ok := e.(event.SMS); ok && r.panics[sms.Body()] {
		panic("boom")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingDeliverer) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

func ptr(s string) *string { return &s }

func TestSMSListener_ZeroPartsDeliversNothing(t *testing.T) {
	out := &recordingDeliverer{}
	l := NewSMSListener(out)

	n := l.OnReceive(context.Background(), RawSMSSignal{Action: ActionSMSReceived})

	assert.Zero(t, n)
	assert.Empty(t, out.Events())
}

func TestSMSListener_PartsDeliveredInOrder(t *testing.T) {
	out := &recordingDeliverer{}
	l := NewSMSListener(out, WithIDGenerator(event.NewFixedGenerator("a", "b")))

	n := l.OnReceive(context.Background(), RawSMSSignal{
		Action: ActionSMSReceived,
		Parts: []RawSMSPart{
			{Sender: ptr("X"), Body: ptr("A"), TimestampMillis: 1},
			{Sender: ptr("Y"), Body: ptr("B"), TimestampMillis: 2},
		},
	})

	assert.Equal(t, 2, n)
	got := out.Events()
	require.Len(t, got, 2)
	assert.Equal(t, event.NewSMS("a", "X", "A", 1), got[0])
	assert.Equal(t, event.NewSMS("b", "Y", "B", 2), got[1])
}

func TestSMSListener_IgnoresOtherActions(t *testing.T) {
	out := &recordingDeliverer{}
	l := NewSMSListener(out)

	n := l.OnReceive(context.Background(), RawSMSSignal{
		Action: "sms-delivered",
		Parts:  []RawSMSPart{{Sender: ptr("X"), Body: ptr("A")}},
	})

	assert.Zero(t, n)
	assert.Empty(t, out.Events())
}

func TestSMSListener_AbsentFieldsBecomeEmpty(t *testing.T) {
	out := &recordingDeliverer{}
	l := NewSMSListener(out, WithIDGenerator(event.NewFixedGenerator("a")))

	l.OnReceive(context.Background(), RawSMSSignal{
		Action: ActionSMSReceived,
		Parts:  []RawSMSPart{{TimestampMillis: 7}},
	})

	got := out.Events()
	require.Len(t, got, 1)
	sms := got[0].(event.SMS)
	assert.Empty(t, sms.Sender())
	assert.Empty(t, sms.Body())
	assert.Equal(t, int64(7), sms.TimestampMillis())
}

func TestSMSListener_FailingPartDoesNotStopLaterParts(t *testing.T) {
	out := &recordingDeliverer{panics: map[string]bool{"bad": true}}
	l := NewSMSListener(out)

	n := l.OnReceive(context.Background(), RawSMSSignal{
		Action: ActionSMSReceived,
		Parts: []RawSMSPart{
			{Sender: ptr("X"), Body: ptr("bad")},
			{Sender: ptr("X"), Body: ptr("good")},
		},
	})

	assert.Equal(t, 1, n)
	got := out.Events()
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].(event.SMS).Body())
}

func TestSMSListener_NormalizesText(t *testing.T) {
	out := &recordingDeliverer{}
	l := NewSMSListener(out)

	l.OnReceive(context.Background(), RawSMSSignal{
		Action: ActionSMSReceived,
		Parts:  []RawSMSPart{{Sender: ptr("Cafe\u0301"), Body: ptr("x")}},
	})

	require.Len(t, out.Events(), 1)
	assert.Equal(t, "Caf\u00e9", out.Events()[0].(event.SMS).Sender())
}

func TestNotificationListener_BankNotification(t *testing.T) {
	out := &recordingDeliverer{}
	l := NewNotificationListener(out, WithIDGenerator(event.NewFixedGenerator("n1")))

	ok := l.OnPosted(context.Background(), RawNotification{
		SourceAppID: "com.bank",
		Extras: map[string]any{
			ExtraTitle: "Bank",
			ExtraText:  "Debited 500",
		},
	})

	require.True(t, ok)
	got := out.Events()
	require.Len(t, got, 1)
	n := got[0].(event.Notification)
	assert.Equal(t, "Bank", n.Title())
	assert.Equal(t, "Debited 500", n.Text())
	assert.Empty(t, n.BigText())
	assert.Equal(t, "Bank Debited 500", n.FullText())
	assert.Equal(t, "com.bank", n.SourceAppID())
}

func TestNotificationListener_NoExtrasDeliversEmptyFields(t *testing.T) {
	out := &recordingDeliverer{}
	l := NewNotificationListener(out)

	ok := l.OnPosted(context.Background(), RawNotification{SourceAppID: "com.chat"})

	require.True(t, ok)
	n := out.Events()[0].(event.Notification)
	assert.Empty(t, n.Title())
	assert.Empty(t, n.FullText())
}

func TestNotificationListener_NonStringExtraDropped(t *testing.T) {
	out := &recordingDeliverer{}
	l := NewNotificationListener(out)

	ok := l.OnPosted(context.Background(), RawNotification{
		SourceAppID: "com.bank",
		Extras:      map[string]any{ExtraTitle: "Bank", ExtraText: 500},
	})

	assert.False(t, ok)
	assert.Empty(t, out.Events())
}

func TestNotificationListener_RemovedIsIgnored(t *testing.T) {
	out := &recordingDeliverer{}
	l := NewNotificationListener(out)

	l.OnRemoved(context.Background(), RawNotification{SourceAppID: "com.bank"})

	assert.Empty(t, out.Events())
}

func TestStringExtra(t *testing.T) {
	extras := map[string]any{"a": "x", "b": nil, "c": 1.5}

	s, err := stringExtra(extras, "a")
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	s, err = stringExtra(extras, "b")
	require.NoError(t, err)
	assert.Empty(t, s)

	s, err = stringExtra(extras, "missing")
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = stringExtra(extras, "c")
	assert.ErrorIs(t, err, ErrExtraType)
}
