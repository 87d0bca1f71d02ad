// Copyright © 2026 Tandem contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: dispatch/dispatch.go
// Summary: Tag-to-listener routing for the per-tick message drain. A message
// without a listener is a fatal protocol violation, never a silent drop.

package dispatch

import (
	"errors"
	"fmt"

	"github.com/framegrace/tandem/protocol"
)

// ErrUnroutable reports a message whose type has no registered listener.
var ErrUnroutable = errors.New("dispatch: no listener for message")

// Handler consumes one message's payload and produces side effects: state
// changes, further sends, or listener table mutation.
type Handler func(protocol.Message) error

// Receiver is the inbound half of a channel pair as seen by the drain pass.
type Receiver interface {
	TryReceive() (protocol.Message, bool)
}

// Phase tracks where a process is in its lifetime. The transition is one-way
// and irreversible within a run: at any instant exactly one phase holds.
type Phase int

const (
	PhaseAwaitingHandshake Phase = iota
	PhaseSteadyState
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingHandshake:
		return "awaiting handshake"
	case PhaseSteadyState:
		return "steady state"
	}
	return "unknown"
}

// Table maps message types to listeners. It is built at process construction
// and may be mutated at runtime; a listener removing itself models a one-shot
// transition. Processes are single-threaded at this layer, so the table needs
// no locking.
type Table struct {
	handlers map[protocol.MessageType]Handler
}

func NewTable() *Table {
	return &Table{handlers: make(map[protocol.MessageType]Handler)}
}

func (t *Table) Register(mt protocol.MessageType, h Handler) {
	t.handlers[mt] = h
}

func (t *Table) Remove(mt protocol.MessageType) {
	delete(t.handlers, mt)
}

// Registered reports whether a listener exists for the given type.
func (t *Table) Registered(mt protocol.MessageType) bool {
	_, ok := t.handlers[mt]
	return ok
}

// Handle routes a single message to its listener.
func (t *Table) Handle(m protocol.Message) error {
	h, ok := t.handlers[m.Type()]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnroutable, m.Type().String())
	}
	return h(m)
}

// DrainPending pops every currently-available message and routes each in
// arrival order. Table mutation performed by a listener is visible to the
// messages dispatched after it within the same pass. The drain never blocks:
// it consumes whatever is queued and returns.
func (t *Table) DrainPending(rx Receiver) error {
	for {
		m, ok := rx.TryReceive()
		if !ok {
			return nil
		}
		if err := t.Handle(m); err != nil {
			return err
		}
	}
}
