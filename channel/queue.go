package channel

import (
	"sync"

	"github.com/framegrace/tandem/protocol"
)

// Queue is an unbounded FIFO of protocol messages. Push never blocks and
// never fails under back-pressure. Pop operations are safe for one consumer
// with any number of producers.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []protocol.Message
	closed bool
	err    error
}

func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a message. Pushes after close are dropped; the transport is
// already dead and the exit protocol does not await delivery.
func (q *Queue) Push(m protocol.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, m)
	q.cond.Signal()
}

// TryPop returns the oldest pending message without blocking.
func (q *Queue) TryPop() (protocol.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	m := q.items[0]
	q.items = q.items[1:]
	return m, true
}

// Pop blocks until a message is available or the queue is closed. Used by
// the endpoint writer goroutine, never by dispatch paths.
func (q *Queue) Pop() (protocol.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	m := q.items[0]
	q.items = q.items[1:]
	return m, true
}

// Len reports the number of queued messages at the time of the call.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty is a point-in-time hint, not a synchronization primitive. A message
// may arrive between the check and a subsequent TryPop; callers re-check in
// a loop rather than trusting a single emptiness probe.
func (q *Queue) Empty() bool {
	return q.Len() == 0
}

// CloseWithErr marks the queue closed and records the terminal error.
// Already-queued messages remain poppable; only Push and blocking Pop are
// affected.
func (q *Queue) CloseWithErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.err = err
	q.cond.Broadcast()
}

// Err returns the terminal error recorded at close, once the backlog has
// drained. While messages remain queued the error is withheld so consumers
// observe every message delivered before the failure.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed || len(q.items) > 0 {
		return nil
	}
	return q.err
}
