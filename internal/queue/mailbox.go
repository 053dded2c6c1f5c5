package queue

import "sync"

type opKind int

const (
	opEnqueue opKind = iota + 1
	opDrain
	opList
)

// message is one request to the queue's writer loop. reply is nil for
// fire-and-forget enqueues.
type message struct {
	op     opKind
	record string
	reply  chan reply
}

type reply struct {
	records []string
	err     error
}

// mailbox is a thread-safe FIFO of messages for the writer loop.
//
// The mailbox is unbounded so capture callbacks never block on a slow store:
// Enqueue is an append under a short critical section.
//
// The signal channel enables context-aware waiting in the Run loop.
type mailbox struct {
	mu     sync.Mutex
	msgs   []message
	closed bool
	signal chan struct{} // Signals message availability (buffered, size 1)
}

func newMailbox() *mailbox {
	return &mailbox{
		msgs:   make([]message, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a message to the back of the mailbox.
// Thread-safe: may be called from any goroutine.
// Returns false if the mailbox is closed.
func (b *mailbox) Enqueue(m message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	b.msgs = append(b.msgs, m)

	// Non-blocking: a buffer of 1 coalesces multiple signals
	select {
	case b.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the front message without blocking.
func (b *mailbox) TryDequeue() (message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.msgs) == 0 {
		return message{}, false
	}

	m := b.msgs[0]
	// Release the reply channel reference held by the backing array.
	b.msgs[0] = message{}

	if len(b.msgs) == 1 {
		b.msgs = b.msgs[:0]
	} else {
		b.msgs = b.msgs[1:]
	}

	return m, true
}

// Wait returns a channel that signals when messages may be available.
// The channel is closed once the mailbox is closed.
func (b *mailbox) Wait() <-chan struct{} {
	return b.signal
}

// Len returns the number of pending messages.
func (b *mailbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.msgs)
}

// Closed reports whether Close has been called.
func (b *mailbox) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Close stops accepting messages and wakes any waiter.
func (b *mailbox) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	close(b.signal)
}
