package listener

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/capture-relay/internal/event"
)

// Extras keys read from a posted notification.
const (
	ExtraTitle   = "title"
	ExtraText    = "text"
	ExtraBigText = "bigText"
)

// ErrExtraType reports a notification extra that is present but not a
// string.
var ErrExtraType = errors.New("notification extra is not a string")

// RawNotification is one posted or removed notification as delivered by the
// host.
type RawNotification struct {
	Key         string         `json:"key"`
	SourceAppID string         `json:"sourceAppId"`
	Extras      map[string]any `json:"extras"`
}

// NotificationListener turns posted notifications into Notification events.
type NotificationListener struct {
	out  Deliverer
	opts options
}

// NewNotificationListener creates a NotificationListener delivering to out.
func NewNotificationListener(out Deliverer, opts ...Option) *NotificationListener {
	return &NotificationListener{out: out, opts: buildOptions(opts)}
}

// OnPosted handles one posted notification and reports whether an event was
// delivered. An extraction failure drops the notification: no partial event
// is ever delivered.
func (l *NotificationListener) OnPosted(ctx context.Context, n RawNotification) bool {
	e, err := l.normalize(n)
	if err != nil {
		l.opts.log.Error("error processing notification", "source_app", n.SourceAppID, "error", err)
		return false
	}

	l.opts.log.Debug("notification received", "event_id", e.ID(), "source_app", e.SourceAppID())
	l.out.Deliver(ctx, e)
	return true
}

// OnRemoved ignores dismissals; only arrivals are relayed.
func (l *NotificationListener) OnRemoved(_ context.Context, n RawNotification) {
	l.opts.log.Debug("notification removed, ignoring", "source_app", n.SourceAppID)
}

func (l *NotificationListener) normalize(n RawNotification) (e event.Notification, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	title, err := stringExtra(n.Extras, ExtraTitle)
	if err != nil {
		return event.Notification{}, err
	}
	text, err := stringExtra(n.Extras, ExtraText)
	if err != nil {
		return event.Notification{}, err
	}
	bigText, err := stringExtra(n.Extras, ExtraBigText)
	if err != nil {
		return event.Notification{}, err
	}

	return event.NewNotification(
		l.opts.ids.Generate(),
		event.Normalize(title),
		event.Normalize(text),
		event.Normalize(bigText),
		n.SourceAppID,
	), nil
}

func stringExtra(extras map[string]any, key string) (string, error) {
	v, ok := extras[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T", ErrExtraType, key, v)
	}
	return s, nil
}
