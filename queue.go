package main

import (
	"sync"

	"github.com/horgh/irc"
)

// MessageQueue is a client's outbound mailbox: unbounded and non-blocking
// on the send side, FIFO on the receive side. This generalizes catbox's
// own per-client channel (local_client.go's WriteChan, a fixed-capacity
// buffered channel that flags the client as overflowed rather than
// blocking) to genuinely unbounded, per spec.md §5's requirement that
// Client.send never fail observably to its caller.
type MessageQueue struct {
	mu     sync.Mutex
	buf    []irc.Message
	notify chan struct{}
	closed bool
}

// NewMessageQueue creates an empty, open queue.
func NewMessageQueue() *MessageQueue {
	return &MessageQueue{notify: make(chan struct{}, 1)}
}

// Send enqueues m. It never blocks. Sending to a closed queue is silently
// discarded — the writer goroutine on the other end is gone, and per
// spec.md §5 that's acceptable because a closed queue only happens once
// the client has quit.
func (q *MessageQueue) Send(m irc.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.buf = append(q.buf, m)
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Receive blocks until at least one message is queued or the queue is
// closed. On success it returns the entire backlog in FIFO order,
// draining the buffer. ok is false once the queue is closed and empty —
// the writer goroutine should stop after that.
func (q *MessageQueue) Receive() (msgs []irc.Message, ok bool) {
	for {
		q.mu.Lock()
		if len(q.buf) > 0 {
			msgs = q.buf
			q.buf = nil
			q.mu.Unlock()
			return msgs, true
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		q.mu.Unlock()
		<-q.notify
	}
}

// Close marks the queue closed. Any backlog already enqueued is still
// delivered by a subsequent Receive (draining on quit); after that,
// Receive reports ok=false and further Sends are dropped.
func (q *MessageQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
