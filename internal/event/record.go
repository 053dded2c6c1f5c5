package event

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Storage location of pending records.
const (
	QueueNamespace = "pending_notifications"
	QueueKey       = "queue"
)

// Delimiter separates record fields. It is never escaped.
const Delimiter = "|"

const smsTag = "SMS"

// ErrMalformedRecord is returned by ParseRecord for records that do not have
// exactly four fields or whose timestamp is not an integer.
var ErrMalformedRecord = errors.New("malformed queue record")

// Kind distinguishes queue entry variants.
type Kind int

const (
	KindSMS Kind = iota + 1
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindSMS:
		return "sms"
	case KindNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// Entry is the persisted form of an event that could not be forwarded.
type Entry struct {
	Kind             Kind
	Fields           [3]string
	EnqueuedAtMillis int64
}

// Record renders the entry as a pipe-delimited queue record.
func (e Entry) Record() string {
	return strings.Join([]string{
		e.Fields[0],
		e.Fields[1],
		e.Fields[2],
		strconv.FormatInt(e.EnqueuedAtMillis, 10),
	}, Delimiter)
}

// HasDelimiterCollision reports whether any field contains the delimiter,
// meaning the record will not parse back into the same entry.
func (e Entry) HasDelimiterCollision() bool {
	for _, f := range e.Fields {
		if strings.Contains(f, Delimiter) {
			return true
		}
	}
	return false
}

// HasTagCollision reports whether a notification's title equals the SMS tag,
// meaning the record will parse back as an SMS entry.
func (e Entry) HasTagCollision() bool {
	return e.Kind == KindNotification && e.Fields[0] == smsTag
}

// Event rebuilds the event the entry was written for. Fields not carried by
// the record format (notification big text, the SMS sent time) are filled
// from what the record has: big text is empty and the SMS timestamp is the
// enqueue time.
func (e Entry) Event(id string) (Event, error) {
	switch e.Kind {
	case KindSMS:
		return NewSMS(id, e.Fields[2], e.Fields[1], e.EnqueuedAtMillis), nil
	case KindNotification:
		return NewNotification(id, e.Fields[0], e.Fields[1], "", e.Fields[2]), nil
	default:
		return nil, fmt.Errorf("rebuild event: unknown kind %d", e.Kind)
	}
}

// ParseRecord parses a queue record. A record whose first field is the SMS
// tag is an SMS entry; anything else is a notification entry. A notification
// titled exactly "SMS" therefore reads back as an SMS.
func ParseRecord(record string) (Entry, error) {
	parts := strings.Split(record, Delimiter)
	if len(parts) != 4 {
		return Entry{}, fmt.Errorf("%w: want 4 fields, got %d", ErrMalformedRecord, len(parts))
	}
	ts, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: timestamp %q", ErrMalformedRecord, parts[3])
	}

	kind := KindNotification
	if parts[0] == smsTag {
		kind = KindSMS
	}
	return Entry{
		Kind:             kind,
		Fields:           [3]string{parts[0], parts[1], parts[2]},
		EnqueuedAtMillis: ts,
	}, nil
}
