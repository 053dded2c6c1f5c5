package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMailbox_FIFO(t *testing.T) {
	b := newMailbox()

	assert.True(t, b.Enqueue(message{op: opEnqueue, record: "1"}))
	assert.True(t, b.Enqueue(message{op: opEnqueue, record: "2"}))
	assert.Equal(t, 2, b.Len())

	m, ok := b.TryDequeue()
	assert.True(t, ok)
	assert.Equal(t, "1", m.record)

	m, ok = b.TryDequeue()
	assert.True(t, ok)
	assert.Equal(t, "2", m.record)

	_, ok = b.TryDequeue()
	assert.False(t, ok)
}

func TestMailbox_CloseRejectsAndWakes(t *testing.T) {
	b := newMailbox()
	b.Close()
	b.Close()

	assert.True(t, b.Closed())
	assert.False(t, b.Enqueue(message{op: opEnqueue}))

	_, open := <-b.Wait()
	assert.False(t, open)
}

func TestMailbox_SignalCoalesces(t *testing.T) {
	b := newMailbox()
	b.Enqueue(message{})
	b.Enqueue(message{})

	<-b.Wait()
	select {
	case <-b.Wait():
		t.Fatal("expected a single coalesced signal")
	default:
	}
}
