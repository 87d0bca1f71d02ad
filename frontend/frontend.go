// Copyright © 2026 Tandem contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: frontend/frontend.go
// Summary: Front-end half of the process pair. Owns presentation and page
// identity, proves liveness first, and answers page-name requests.

package frontend

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/framegrace/tandem/channel"
	"github.com/framegrace/tandem/config"
	"github.com/framegrace/tandem/dispatch"
	"github.com/framegrace/tandem/protocol"
	"github.com/framegrace/tandem/registry"
)

var (
	// ErrPeerExit is returned when the back-end signals exit program.
	ErrPeerExit = errors.New("frontend: peer requested exit")

	// ErrFatal wraps every front-end-originated fatal condition.
	ErrFatal = errors.New("frontend: fatal protocol error")
)

// Frontend is the presentation-side process state for one application run.
// It is constructed once at process entry and passed explicitly; it is
// single-threaded: the run loop, listeners, and renderer all execute on the
// caller's goroutine.
type Frontend struct {
	ch       channel.Chan
	table    *dispatch.Table
	phase    dispatch.Phase
	pages    *registry.Registry
	renderer Renderer
	tick     time.Duration
	quit     chan struct{}
	stopOnce sync.Once
}

// New constructs the front-end and sends the liveness proof. FrontendAlive
// is the first message overall: it goes out here, before the back-end even
// exists, and nothing else may precede it.
func New(ch channel.Chan, pages *registry.Registry, renderer Renderer, settings *config.Settings) *Frontend {
	if settings == nil {
		settings = config.Defaults()
	}
	fps := settings.FPS
	if fps <= 0 {
		fps = config.Defaults().FPS
	}
	f := &Frontend{
		ch:       ch,
		table:    dispatch.NewTable(),
		phase:    dispatch.PhaseAwaitingHandshake,
		pages:    pages,
		renderer: renderer,
		tick:     time.Second / time.Duration(fps),
		quit:     make(chan struct{}),
	}

	f.ch.Send(protocol.FrontendAlive{})

	f.table.Register(protocol.MsgBackendReady, f.onBackendReady)
	f.table.Register(protocol.MsgPageNameRequest, f.onPageNameRequest)
	f.table.Register(protocol.MsgExit, f.onExit)
	return f
}

// Phase reports the current lifetime phase.
func (f *Frontend) Phase() dispatch.Phase {
	return f.phase
}

// onBackendReady is the one-shot handshake listener: it unregisters itself,
// makes the irreversible phase transition, and acknowledges so the back-end
// can enter its own steady state. A second delivery of this tag finds no
// listener and is therefore a protocol violation.
func (f *Frontend) onBackendReady(protocol.Message) error {
	f.table.Remove(protocol.MsgBackendReady)
	f.phase = dispatch.PhaseSteadyState
	f.ch.Send(protocol.MainLoopLaunch{})
	log.Printf("frontend: handshake complete, entering %s", f.phase)
	return nil
}

// onPageNameRequest answers every request it receives, not just the first;
// the back-end's defensive re-send relies on that idempotence.
func (f *Frontend) onPageNameRequest(protocol.Message) error {
	name, err := f.pages.ActiveName()
	if err != nil {
		return f.fatal(fmt.Sprintf("pagename requested but %v", err))
	}
	f.ch.Send(protocol.PageName{Name: name})
	return nil
}

func (f *Frontend) onExit(m protocol.Message) error {
	exit := m.(protocol.Exit)
	if exit.Reason != "" {
		log.Printf("frontend: back-end exited: %s", exit.Reason)
	} else {
		log.Printf("frontend: back-end exited")
	}
	return ErrPeerExit
}

// Tick is the per-tick entry point exposed to the host frame scheduler: it
// drains whatever is currently queued, never blocking, then renders a frame.
func (f *Frontend) Tick() error {
	if err := f.table.DrainPending(f.ch); err != nil {
		if errors.Is(err, ErrPeerExit) || errors.Is(err, ErrFatal) {
			return err
		}
		return f.fatal(err.Error())
	}
	if err := f.ch.Err(); err != nil {
		return f.fatal(fmt.Sprintf("channel failed: %v", err))
	}
	return f.render()
}

func (f *Frontend) render() error {
	if f.renderer == nil {
		return nil
	}
	title := ""
	if name, err := f.pages.ActiveName(); err == nil {
		if entry, err := f.pages.Lookup(name); err == nil {
			title = entry.Manifest.Title()
		}
	}
	return f.renderer.Draw(Frame{PageTitle: title, Phase: f.phase})
}

// Run drives Tick at the configured cadence until a fatal condition or Stop.
func (f *Frontend) Run() error {
	ticker := time.NewTicker(f.tick)
	defer ticker.Stop()
	for {
		select {
		case <-f.quit:
			return nil
		case <-ticker.C:
			if err := f.Tick(); err != nil {
				return err
			}
		}
	}
}

// Stop ends the run loop without the exit protocol. Used by hosts on
// operator-initiated shutdown (signal, quit key); safe to call from any
// goroutine, any number of times.
func (f *Frontend) Stop() {
	f.stopOnce.Do(func() {
		close(f.quit)
	})
}

// fatal implements the exit routine: log the diagnostic, best-effort notify
// the peer, and surface a terminal error. No draining, no acknowledgement
// wait; the caller turns this into an abnormal process exit.
func (f *Frontend) fatal(reason string) error {
	log.Printf("frontend: fatal: %s", reason)
	f.ch.Send(protocol.Exit{Reason: reason})
	return fmt.Errorf("%w: %s", ErrFatal, reason)
}
