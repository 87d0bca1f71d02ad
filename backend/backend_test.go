package backend

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/framegrace/tandem/channel"
	"github.com/framegrace/tandem/config"
	"github.com/framegrace/tandem/protocol"
)

func testSettings() *config.Settings {
	s := config.Defaults()
	s.HandshakeBoundMs = 200
	s.PollIntervalMs = 10
	return s
}

// receiveOne polls the front-end side of a pair until a message arrives.
func receiveOne(t *testing.T, c channel.Chan) protocol.Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m, ok := c.TryReceive(); ok {
			return m
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for message")
	return nil
}

func TestAwaitFrontendHappyPath(t *testing.T) {
	front, back := channel.NewLocalPair()
	be := New(back, testSettings(), nil)

	front.Send(protocol.FrontendAlive{})
	if err := be.AwaitFrontend(); err != nil {
		t.Fatalf("await failed: %v", err)
	}
	if m := receiveOne(t, front); m.Type() != protocol.MsgBackendReady {
		t.Fatalf("expected back-end initialised, got %v", m.Type())
	}
}

func TestAwaitFrontendLivenessTimeout(t *testing.T) {
	front, back := channel.NewLocalPair()
	settings := testSettings()
	be := New(back, settings, nil)

	start := time.Now()
	err := be.AwaitFrontend()
	elapsed := time.Since(start)

	if !errors.Is(err, ErrLivenessTimeout) {
		t.Fatalf("expected ErrLivenessTimeout, got %v", err)
	}
	bound := settings.HandshakeBound()
	if elapsed < bound {
		t.Fatalf("gave up early: %v < %v", elapsed, bound)
	}
	// No more than bound + one poll interval, with scheduling slack.
	if elapsed > bound+settings.PollInterval()+100*time.Millisecond {
		t.Fatalf("gave up too late: %v", elapsed)
	}
	// The timeout still notifies the peer best-effort.
	if m := receiveOne(t, front); m.Type() != protocol.MsgExit {
		t.Fatalf("expected exit program, got %v", m.Type())
	}
}

func TestAwaitFrontendWrongTag(t *testing.T) {
	front, back := channel.NewLocalPair()
	be := New(back, testSettings(), nil)

	front.Send(protocol.PageName{Name: "enter"})
	if err := be.AwaitFrontend(); !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected protocol violation, got %v", err)
	}
}

func TestAwaitFrontendRejectsExtraQueuedMessage(t *testing.T) {
	front, back := channel.NewLocalPair()
	be := New(back, testSettings(), nil)

	front.Send(protocol.FrontendAlive{})
	front.Send(protocol.FrontendAlive{})
	if err := be.AwaitFrontend(); !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected singularity violation, got %v", err)
	}
}

func TestAwaitLaunchEntersSteadyState(t *testing.T) {
	front, back := channel.NewLocalPair()
	be := New(back, testSettings(), nil)

	front.Send(protocol.MainLoopLaunch{})
	if err := be.AwaitLaunch(); err != nil {
		t.Fatalf("await launch failed: %v", err)
	}
	if be.Phase().String() != "steady state" {
		t.Fatalf("phase not advanced: %v", be.Phase())
	}
	if be.CurrentPage() != PageNameUnset {
		t.Fatalf("session state touched during handshake: %q", be.CurrentPage())
	}
}

func TestHandshakeExitNotStarved(t *testing.T) {
	front, back := channel.NewLocalPair()
	be := New(back, testSettings(), nil)

	front.Send(protocol.Exit{Reason: "front-end died"})
	if err := be.AwaitFrontend(); !errors.Is(err, ErrPeerExit) {
		t.Fatalf("expected peer exit, got %v", err)
	}
}

func TestRequestPageNameStoresAnswer(t *testing.T) {
	front, back := channel.NewLocalPair()
	be := New(back, testSettings(), nil)

	go func() {
		m := receiveOne(t, front)
		if m.Type() != protocol.MsgPageNameRequest {
			return
		}
		front.Send(protocol.PageName{Name: "enter"})
	}()

	if err := be.RequestPageName(); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if be.CurrentPage() != "enter" {
		t.Fatalf("session state not updated: %q", be.CurrentPage())
	}
}

func TestRequestPageNameDispatchesUnrelatedAndResends(t *testing.T) {
	front, back := channel.NewLocalPair()
	be := New(back, testSettings(), nil)

	stray := 0
	be.Register(protocol.MsgBackendReady, func(protocol.Message) error {
		stray++
		return nil
	})

	requests := make(chan struct{}, 4)
	go func() {
		// Consume the first request, inject a stray message instead of
		// answering, then answer the defensive re-send.
		m := receiveOne(t, front)
		if m.Type() != protocol.MsgPageNameRequest {
			return
		}
		requests <- struct{}{}
		front.Send(protocol.BackendReady{})

		m = receiveOne(t, front)
		if m.Type() != protocol.MsgPageNameRequest {
			return
		}
		requests <- struct{}{}
		front.Send(protocol.PageName{Name: "results"})
	}()

	if err := be.RequestPageName(); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if be.CurrentPage() != "results" {
		t.Fatalf("session state not updated: %q", be.CurrentPage())
	}
	if stray != 1 {
		t.Fatalf("stray message dispatched %d times", stray)
	}
	if len(requests) != 2 {
		t.Fatalf("expected the request to be re-sent once, saw %d requests", len(requests))
	}
}

func TestDuplicatePageNameAnswerIsAbsorbed(t *testing.T) {
	front, back := channel.NewLocalPair()
	be := New(back, testSettings(), nil)

	// An idempotent responder answers the original request and the
	// defensive re-send alike, so two answers can be queued for one
	// RequestPageName call.
	front.Send(protocol.PageName{Name: "enter"})
	front.Send(protocol.PageName{Name: "enter"})

	if err := be.RequestPageName(); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if be.CurrentPage() != "enter" {
		t.Fatalf("session state not updated: %q", be.CurrentPage())
	}

	// The leftover answer survives into the steady-state drain; it must
	// route to the session-state listener, not end the run as unroutable.
	if err := be.DispatchPending(); err != nil {
		t.Fatalf("leftover answer was fatal: %v", err)
	}
	if be.CurrentPage() != "enter" {
		t.Fatalf("session state corrupted by duplicate: %q", be.CurrentPage())
	}
}

func TestRequestPageNameExitNotStarved(t *testing.T) {
	front, back := channel.NewLocalPair()
	be := New(back, testSettings(), nil)

	go func() {
		m := receiveOne(t, front)
		if m.Type() != protocol.MsgPageNameRequest {
			return
		}
		front.Send(protocol.Exit{})
	}()

	if err := be.RequestPageName(); !errors.Is(err, ErrPeerExit) {
		t.Fatalf("expected peer exit, got %v", err)
	}
}

func TestRunUnknownPageIsFatal(t *testing.T) {
	front, back := channel.NewLocalPair()
	be := New(back, testSettings(), nil)
	be.RegisterPage("enter", func(*Backend) error { return nil })

	go func() {
		front.Send(protocol.FrontendAlive{})
		if m := receiveOne(t, front); m.Type() != protocol.MsgBackendReady {
			return
		}
		front.Send(protocol.MainLoopLaunch{})
		if m := receiveOne(t, front); m.Type() != protocol.MsgPageNameRequest {
			return
		}
		front.Send(protocol.PageName{Name: "unknown-page"})
	}()

	err := be.Run()
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected protocol violation, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown-page") {
		t.Fatalf("diagnostic does not name the page: %v", err)
	}
	// The fatal path notifies the peer.
	if m := receiveOne(t, front); m.Type() != protocol.MsgExit {
		t.Fatalf("expected exit program, got %v", m.Type())
	}
}

func TestRunDispatchesRegisteredPage(t *testing.T) {
	front, back := channel.NewLocalPair()
	be := New(back, testSettings(), nil)

	ran := make(chan string, 1)
	stop := errors.New("page done")
	be.RegisterPage("enter", func(b *Backend) error {
		ran <- b.CurrentPage()
		return stop
	})

	go func() {
		front.Send(protocol.FrontendAlive{})
		if m := receiveOne(t, front); m.Type() != protocol.MsgBackendReady {
			return
		}
		front.Send(protocol.MainLoopLaunch{})
		if m := receiveOne(t, front); m.Type() != protocol.MsgPageNameRequest {
			return
		}
		front.Send(protocol.PageName{Name: "enter"})
	}()

	if err := be.Run(); !errors.Is(err, stop) {
		t.Fatalf("expected page handler error, got %v", err)
	}
	select {
	case page := <-ran:
		if page != "enter" {
			t.Fatalf("handler saw wrong page: %q", page)
		}
	default:
		t.Fatalf("page handler never ran")
	}
}
