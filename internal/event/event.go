package event

import (
	"strconv"
	"strings"
	"time"
)

// Category selects the consumer binding an event is forwarded through.
type Category string

const (
	CategorySMS          Category = "sms"
	CategoryNotification Category = "notification"
	CategoryApp          Category = "app"
)

// Consumer method names used when forwarding.
const (
	MethodSMSReceived          = "onSmsReceived"
	MethodNotificationReceived = "onNotificationReceived"
)

// Event is a captured event. The set of implementations is closed: SMS and
// Notification. Values are immutable once constructed.
type Event interface {
	// ID is a correlation id for logs. It is never forwarded or persisted.
	ID() string
	Category() Category
	// Method is the consumer method the event is forwarded as.
	Method() string
	// Payload is the forwarded argument map. A fresh map is returned on
	// every call.
	Payload() map[string]any
	// Entry is the queue entry persisted when the event cannot be forwarded.
	Entry(enqueuedAt time.Time) Entry

	sealed()
}

// SMS is one part of an incoming text message.
type SMS struct {
	id              string
	sender          string
	body            string
	timestampMillis int64
}

// NewSMS constructs an SMS event.
func NewSMS(id, sender, body string, timestampMillis int64) SMS {
	return SMS{id: id, sender: sender, body: body, timestampMillis: timestampMillis}
}

func (e SMS) ID() string             { return e.id }
func (e SMS) Sender() string         { return e.sender }
func (e SMS) Body() string           { return e.body }
func (e SMS) TimestampMillis() int64 { return e.timestampMillis }
func (SMS) Category() Category       { return CategorySMS }
func (SMS) Method() string           { return MethodSMSReceived }
func (SMS) sealed()                  {}

func (e SMS) Payload() map[string]any {
	return map[string]any{
		"sender":          e.sender,
		"body":            e.body,
		"timestampMillis": e.timestampMillis,
	}
}

func (e SMS) Entry(enqueuedAt time.Time) Entry {
	return Entry{
		Kind:             KindSMS,
		Fields:           [3]string{smsTag, e.body, e.sender},
		EnqueuedAtMillis: enqueuedAt.UnixMilli(),
	}
}

func (e SMS) String() string {
	return "sms from " + strconv.Quote(e.sender)
}

// Notification is a posted notification.
type Notification struct {
	id          string
	title       string
	text        string
	bigText     string
	fullText    string
	sourceAppID string
}

// NewNotification constructs a Notification event and derives its full text.
func NewNotification(id, title, text, bigText, sourceAppID string) Notification {
	return Notification{
		id:          id,
		title:       title,
		text:        text,
		bigText:     bigText,
		fullText:    FullText(title, text, bigText),
		sourceAppID: sourceAppID,
	}
}

// FullText joins title, text and big text with single spaces and trims the
// result, so absent leading or trailing segments leave no padding.
func FullText(title, text, bigText string) string {
	return strings.TrimSpace(title + " " + text + " " + bigText)
}

func (e Notification) ID() string          { return e.id }
func (e Notification) Title() string       { return e.title }
func (e Notification) Text() string        { return e.text }
func (e Notification) BigText() string     { return e.bigText }
func (e Notification) FullText() string    { return e.fullText }
func (e Notification) SourceAppID() string { return e.sourceAppID }
func (Notification) Category() Category    { return CategoryNotification }
func (Notification) Method() string        { return MethodNotificationReceived }
func (Notification) sealed()               {}

func (e Notification) Payload() map[string]any {
	return map[string]any{
		"title":       e.title,
		"text":        e.text,
		"bigText":     e.bigText,
		"fullText":    e.fullText,
		"sourceAppId": e.sourceAppID,
	}
}

func (e Notification) Entry(enqueuedAt time.Time) Entry {
	return Entry{
		Kind:             KindNotification,
		Fields:           [3]string{e.title, e.text, e.sourceAppID},
		EnqueuedAtMillis: enqueuedAt.UnixMilli(),
	}
}

func (e Notification) String() string {
	return "notification from " + strconv.Quote(e.sourceAppID)
}
