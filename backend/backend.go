// Copyright © 2026 Tandem contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: backend/backend.go
// Summary: Back-end half of the process pair. Verifies front-end liveness,
// completes the handshake, and runs the page session dispatcher.

package backend

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/framegrace/tandem/channel"
	"github.com/framegrace/tandem/config"
	"github.com/framegrace/tandem/dispatch"
	"github.com/framegrace/tandem/protocol"
)

var (
	// ErrLivenessTimeout reports that the front-end never proved liveness
	// within the configured bound. Distinguished from protocol violations
	// in logs and error chains.
	ErrLivenessTimeout = errors.New("backend: liveness timeout")

	// ErrProtocol wraps every protocol-invariant violation.
	ErrProtocol = errors.New("backend: protocol violation")

	// ErrPeerExit is returned when the front-end signals exit program.
	ErrPeerExit = errors.New("backend: peer requested exit")
)

// PageNameUnset is the sentinel held in session state until the front-end
// answers the first pagename request.
const PageNameUnset = "uninitialised"

// PageHandler runs one page's logic. It returns nil to hand control back to
// the page dispatcher (which re-requests the current page) or an error to
// end the run.
type PageHandler func(b *Backend) error

// Backend is the logic-side process state for one application run:
// constructed once at process entry, single-threaded, torn down at process
// exit.
type Backend struct {
	ch       channel.Chan
	table    *dispatch.Table
	phase    dispatch.Phase
	bound    time.Duration
	interval time.Duration
	pages    map[string]PageHandler
	pagename string
	journal  *Journal
}

// New constructs the back-end. The journal may be nil; journalling is
// best-effort diagnostics, never protocol flow.
func New(ch channel.Chan, settings *config.Settings, journal *Journal) *Backend {
	if settings == nil {
		settings = config.Defaults()
	}
	b := &Backend{
		ch:       ch,
		table:    dispatch.NewTable(),
		phase:    dispatch.PhaseAwaitingHandshake,
		bound:    settings.HandshakeBound(),
		interval: settings.PollInterval(),
		pages:    make(map[string]PageHandler),
		pagename: PageNameUnset,
		journal:  journal,
	}
	b.table.Register(protocol.MsgExit, b.onExit)
	b.table.Register(protocol.MsgPageName, b.onPageName)
	return b
}

// RegisterPage binds a page name to its handler.
func (b *Backend) RegisterPage(name string, h PageHandler) {
	b.pages[name] = h
}

// Register installs a listener in the back-end's table. Page handlers use
// this to route the control messages they expect during their dispatch
// loops.
func (b *Backend) Register(mt protocol.MessageType, h dispatch.Handler) {
	b.table.Register(mt, h)
}

// Phase reports the current lifetime phase.
func (b *Backend) Phase() dispatch.Phase {
	return b.phase
}

// CurrentPage returns the session state's page name; PageNameUnset until the
// first pagename answer arrives.
func (b *Backend) CurrentPage() string {
	return b.pagename
}

// onPageName is the only mutator of the session state's page name. It stays
// registered for the whole run: the front-end answers every request it
// receives, so a defensive re-send can leave a duplicate answer queued, and
// that duplicate must route here and be absorbed, not kill the run.
func (b *Backend) onPageName(m protocol.Message) error {
	b.pagename = m.(protocol.PageName).Name
	return nil
}

func (b *Backend) onExit(m protocol.Message) error {
	exit := m.(protocol.Exit)
	if exit.Reason != "" {
		log.Printf("backend: front-end exited: %s", exit.Reason)
	} else {
		log.Printf("backend: front-end exited")
	}
	return ErrPeerExit
}

// awaitOne polls for exactly one message of the wanted type. The emptiness
// hint is racy, so the loop re-checks TryReceive rather than trusting a
// single probe. Exceeding the bound is a liveness failure; a different tag,
// or a second message queued alongside, is a protocol violation. Neither is
// retried.
func (b *Backend) awaitOne(want protocol.MessageType) error {
	deadline := time.Now().Add(b.bound)
	var m protocol.Message
	for {
		var ok bool
		m, ok = b.ch.TryReceive()
		if ok {
			break
		}
		if err := b.ch.Err(); err != nil {
			return b.fatal(fmt.Sprintf("channel failed while awaiting %q: %v", want, err))
		}
		if time.Now().After(deadline) {
			return b.livenessFailure(want)
		}
		time.Sleep(b.interval)
	}

	if m.Type() == protocol.MsgExit {
		return b.table.Handle(m)
	}
	if m.Type() != want {
		return b.fatal(fmt.Sprintf("expected %q during handshake, got %q", want, m.Type()))
	}
	if !b.ch.Empty() {
		return b.fatal(fmt.Sprintf("more than one message queued alongside %q", want))
	}
	return nil
}

// AwaitFrontend is the back-end's startup wait: a bounded polling block for
// the front-end's liveness proof. On success it announces its own readiness.
func (b *Backend) AwaitFrontend() error {
	if err := b.awaitOne(protocol.MsgFrontendAlive); err != nil {
		return err
	}
	b.ch.Send(protocol.BackendReady{})
	return nil
}

// AwaitLaunch consumes the front-end's main-loop acknowledgement and makes
// the irreversible transition into steady state.
func (b *Backend) AwaitLaunch() error {
	if err := b.awaitOne(protocol.MsgMainLoopLaunch); err != nil {
		return err
	}
	b.phase = dispatch.PhaseSteadyState
	log.Printf("backend: handshake complete, entering %s", b.phase)
	b.journal.Record(EventHandshake, "")
	return nil
}

// Handshake performs the back-end's side of the four-step sequence. Any
// failure is fatal for the whole run; the handshake is never retried.
func (b *Backend) Handshake() error {
	if err := b.AwaitFrontend(); err != nil {
		return err
	}
	return b.AwaitLaunch()
}

// RequestPageName asks the front-end which page is active and polls until
// the answer arrives. Everything received on the way is dispatched through
// the listener table, so a queued exit program is never starved behind the
// wait and the answer itself lands in the session state via its listener.
// After an unrelated dispatch the request is re-sent if the outbound channel
// is currently empty: a defensive duplicate-request guard, reproduced as-is
// from the behaviour this engine replaces. It stays correct because the
// front-end answers every request it receives.
func (b *Backend) RequestPageName() error {
	b.ch.Send(protocol.PageNameRequest{})
	for {
		m, ok := b.ch.TryReceive()
		if !ok {
			if err := b.ch.Err(); err != nil {
				return b.fatal(fmt.Sprintf("channel failed while awaiting pagename: %v", err))
			}
			time.Sleep(b.interval)
			continue
		}
		if err := b.table.Handle(m); err != nil {
			if errors.Is(err, ErrPeerExit) || errors.Is(err, ErrProtocol) {
				return err
			}
			return b.fatal(err.Error())
		}
		if m.Type() == protocol.MsgPageName {
			return nil
		}
		if b.ch.OutboundEmpty() {
			b.ch.Send(protocol.PageNameRequest{})
		}
	}
}

// DispatchPending is the steady-state per-tick drain, exposed to page
// handlers. It never blocks.
func (b *Backend) DispatchPending() error {
	if err := b.table.DrainPending(b.ch); err != nil {
		if errors.Is(err, ErrPeerExit) || errors.Is(err, ErrProtocol) {
			return err
		}
		return b.fatal(err.Error())
	}
	return nil
}

// Run is the back-end lifecycle: handshake, then the page dispatcher, which
// learns the active page and hands control to its handler until a fatal
// condition ends the run. An unrecognized page name is fatal, never a
// silent default.
func (b *Backend) Run() error {
	if err := b.Handshake(); err != nil {
		return err
	}
	for {
		if err := b.RequestPageName(); err != nil {
			return err
		}
		handler, ok := b.pages[b.pagename]
		if !ok {
			return b.fatal(fmt.Sprintf("unrecognized page name %q", b.pagename))
		}
		b.journal.Record(EventPageActivated, b.pagename)
		if err := handler(b); err != nil {
			return err
		}
	}
}

// livenessFailure is the timeout arm of the exit protocol, distinguished in
// logs from malformed traffic.
func (b *Backend) livenessFailure(want protocol.MessageType) error {
	reason := fmt.Sprintf("timed out after %v waiting for %q", b.bound, want)
	log.Printf("backend: liveness failure: %s", reason)
	b.ch.Send(protocol.Exit{Reason: reason})
	b.journal.Record(EventFatal, reason)
	return fmt.Errorf("%w: %s", ErrLivenessTimeout, reason)
}

// fatal implements the exit routine: log the diagnostic, best-effort notify
// the peer, and surface a terminal error. Hard stop; nothing is drained or
// awaited.
func (b *Backend) fatal(reason string) error {
	log.Printf("backend: fatal: %s", reason)
	b.ch.Send(protocol.Exit{Reason: reason})
	b.journal.Record(EventFatal, reason)
	return fmt.Errorf("%w: %s", ErrProtocol, reason)
}
