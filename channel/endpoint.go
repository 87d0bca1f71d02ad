// Copyright © 2026 Tandem contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: channel/endpoint.go
// Summary: Conn-backed end of a channel pair; pumps frames between the wire
// and unbounded in-memory queues so senders never block on the peer.

package channel

import (
	"io"
	"net"
	"sync"

	"github.com/framegrace/tandem/protocol"
)

// Chan is one end of a channel pair: exclusive producer of its outbound
// queue, exclusive consumer of its inbound queue. Ordering within one
// direction is preserved; no ordering holds across the two directions.
type Chan interface {
	// Send enqueues a message and returns immediately.
	Send(m protocol.Message)
	// TryReceive returns the oldest pending inbound message, if any.
	TryReceive() (protocol.Message, bool)
	// Empty is a point-in-time hint about the inbound queue.
	Empty() bool
	// OutboundEmpty is a point-in-time hint about the outbound queue.
	OutboundEmpty() bool
	// Err reports the terminal transport error once the inbound backlog
	// has drained. A nil result does not promise future delivery.
	Err() error
	// Close tears the channel down. Queued outbound messages are not
	// flushed; the exit protocol is a hard stop.
	Close()
}

// Endpoint carries one side of the pair over a net.Conn (a unix socket in
// production, net.Pipe in tests). A writer goroutine drains the outbound
// queue through the framed codec; a reader goroutine decodes inbound frames
// into the inbound queue.
type Endpoint struct {
	conn      net.Conn
	runID     [16]byte
	in        *Queue
	out       *Queue
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewEndpoint wraps conn and starts the pump goroutines. runID is stamped
// into every outgoing frame header.
func NewEndpoint(conn net.Conn, runID [16]byte) *Endpoint {
	e := &Endpoint{
		conn:  conn,
		runID: runID,
		in:    NewQueue(),
		out:   NewQueue(),
	}
	e.wg.Add(2)
	go e.readLoop()
	go e.writeLoop()
	return e
}

func (e *Endpoint) Send(m protocol.Message) {
	e.out.Push(m)
}

func (e *Endpoint) TryReceive() (protocol.Message, bool) {
	return e.in.TryPop()
}

func (e *Endpoint) Empty() bool {
	return e.in.Empty()
}

func (e *Endpoint) OutboundEmpty() bool {
	return e.out.Empty()
}

func (e *Endpoint) Err() error {
	return e.in.Err()
}

func (e *Endpoint) Close() {
	e.closeOnce.Do(func() {
		e.out.CloseWithErr(net.ErrClosed)
		_ = e.conn.Close()
	})
	e.wg.Wait()
}

func (e *Endpoint) writeLoop() {
	defer e.wg.Done()
	var seq uint64
	for {
		m, ok := e.out.Pop()
		if !ok {
			return
		}
		payload, err := protocol.Encode(m)
		if err != nil {
			// Only reachable with a message type outside the
			// vocabulary; treat as a dead transport.
			e.in.CloseWithErr(err)
			return
		}
		seq++
		hdr := protocol.Header{
			Version:  protocol.Version,
			Type:     m.Type(),
			Flags:    protocol.FlagChecksum,
			RunID:    e.runID,
			Sequence: seq,
		}
		if err := protocol.WriteFrame(e.conn, hdr, payload); err != nil {
			e.in.CloseWithErr(err)
			return
		}
	}
}

func (e *Endpoint) readLoop() {
	defer e.wg.Done()
	for {
		hdr, payload, err := protocol.ReadFrame(e.conn)
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			e.in.CloseWithErr(err)
			return
		}
		m, err := protocol.Decode(hdr.Type, payload)
		if err != nil {
			e.in.CloseWithErr(err)
			return
		}
		e.in.Push(m)
	}
}
