package channel

import (
	"net"

	"github.com/framegrace/tandem/protocol"
)

// Local is one end of an in-process channel pair. It shares queues directly
// with its peer instead of going through the framed codec; semantics match
// Endpoint (unbounded, FIFO, non-blocking send).
type Local struct {
	in  *Queue
	out *Queue
}

// NewLocalPair returns both ends of a cross-linked pair. What one end sends
// the other receives, in order. Used for single-process embedding and tests.
func NewLocalPair() (*Local, *Local) {
	a := NewQueue()
	b := NewQueue()
	return &Local{in: a, out: b}, &Local{in: b, out: a}
}

func (l *Local) Send(m protocol.Message) {
	l.out.Push(m)
}

func (l *Local) TryReceive() (protocol.Message, bool) {
	return l.in.TryPop()
}

func (l *Local) Empty() bool {
	return l.in.Empty()
}

func (l *Local) OutboundEmpty() bool {
	return l.out.Empty()
}

func (l *Local) Err() error {
	return l.in.Err()
}

func (l *Local) Close() {
	l.in.CloseWithErr(net.ErrClosed)
	l.out.CloseWithErr(net.ErrClosed)
}
