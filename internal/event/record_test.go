package event

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord_RoundTripNotification(t *testing.T) {
	n := NewNotification("id", "Bank", "Debited 500", "", "com.bank")
	record := n.Entry(time.UnixMilli(1700000000000)).Record()

	entry, err := ParseRecord(record)
	require.NoError(t, err)

	rebuilt, err := entry.Event("id")
	require.NoError(t, err)

	got, ok := rebuilt.(Notification)
	require.True(t, ok, "expected Notification, got %T", rebuilt)
	assert.Equal(t, n.Title(), got.Title())
	assert.Equal(t, n.Text(), got.Text())
	assert.Equal(t, n.SourceAppID(), got.SourceAppID())
	assert.Equal(t, n.FullText(), got.FullText())
}

func TestParseRecord_RoundTripSMS(t *testing.T) {
	s := NewSMS("id", "X", "Debited 500", 42)
	record := s.Entry(time.UnixMilli(1700000000000)).Record()

	entry, err := ParseRecord(record)
	require.NoError(t, err)
	assert.Equal(t, KindSMS, entry.Kind)
	assert.Equal(t, int64(1700000000000), entry.EnqueuedAtMillis)

	rebuilt, err := entry.Event("id")
	require.NoError(t, err)

	got, ok := rebuilt.(SMS)
	require.True(t, ok, "expected SMS, got %T", rebuilt)
	assert.Equal(t, "X", got.Sender())
	assert.Equal(t, "Debited 500", got.Body())
}

func TestParseRecord_EmptyFields(t *testing.T) {
	entry, err := ParseRecord("|||5")
	require.NoError(t, err)

	assert.Equal(t, KindNotification, entry.Kind)
	assert.Equal(t, [3]string{"", "", ""}, entry.Fields)
	assert.Equal(t, int64(5), entry.EnqueuedAtMillis)
}

func TestParseRecord_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		record string
	}{
		{"too few fields", "a|b|1"},
		{"delimiter in field", "Bank|Debited|500|com.bank|1"},
		{"bad timestamp", "a|b|c|yesterday"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(tt.record)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRecord))
		})
	}
}

func TestEntry_HasDelimiterCollision(t *testing.T) {
	clean := NewNotification("id", "Bank", "Debited 500", "", "com.bank").Entry(time.UnixMilli(1))
	dirty := NewNotification("id", "Bank", "A|B", "", "com.bank").Entry(time.UnixMilli(1))

	assert.False(t, clean.HasDelimiterCollision())
	assert.True(t, dirty.HasDelimiterCollision())
}

func TestEntry_HasTagCollision(t *testing.T) {
	tests := map[string]struct {
		event Event
		want  bool
	}{
		"notification titled SMS": {NewNotification("id", "SMS", "Debited 500", "", "com.bank"), true},
		"notification titled sms": {NewNotification("id", "sms", "Debited 500", "", "com.bank"), false},
		"ordinary notification":   {NewNotification("id", "Bank", "Debited 500", "", "com.bank"), false},
		"sms":                     {NewSMS("id", "BANK", "Debited 500", 1), false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.Entry(time.UnixMilli(1)).HasTagCollision())
		})
	}
}

func TestParseRecord_NotificationTitledSMSReadsBackAsSMS(t *testing.T) {
	entry := NewNotification("id", "SMS", "Debited 500", "", "com.bank").Entry(time.UnixMilli(1))

	got, err := ParseRecord(entry.Record())

	require.NoError(t, err)
	assert.Equal(t, KindSMS, got.Kind)
}

func TestEntry_EventUnknownKind(t *testing.T) {
	_, err := Entry{}.Event("id")
	assert.Error(t, err)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "sms", KindSMS.String())
	assert.Equal(t, "notification", KindNotification.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
