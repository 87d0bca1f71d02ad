// Copyright © 2026 Tandem contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/tandem/main.go
// Summary: Unified tandem command: runs the front-end and launches the
// back-end worker as a child of the same binary.
// Usage: Run `tandem` to start both processes; `tandem -backend` is the
// internal worker mode.

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/oklog/ulid/v2"
	"golang.org/x/term"

	"github.com/framegrace/tandem/backend"
	"github.com/framegrace/tandem/channel"
	"github.com/framegrace/tandem/config"
	"github.com/framegrace/tandem/frontend"
	"github.com/framegrace/tandem/pages"
	"github.com/framegrace/tandem/registry"
)

// runIDEnv carries the front-end's run ULID to the worker child so both
// sides stamp the same run on their frames and journal rows.
const runIDEnv = "TANDEM_RUN_ID"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("tandem", flag.ContinueOnError)

	backendMode := fs.Bool("backend", false, "Run as the back-end worker (internal)")
	configPath := fs.String("config", "", "Path to tandem.json (default: user config dir)")
	socketPath := fs.String("socket", "", "Unix socket path override")
	fps := fs.Int("fps", 0, "Front-end frame cadence override")
	journalPath := fs.String("journal", "", "SQLite session journal path override")
	headless := fs.Bool("headless", false, "Render to an in-memory screen")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	var settings *config.Settings
	var err error
	if *configPath != "" {
		settings, err = config.LoadFile(*configPath)
	} else {
		settings, err = config.Load()
	}
	if err != nil {
		log.Printf("tandem: config problem, continuing with defaults: %v", err)
	}
	if *socketPath != "" {
		settings.SocketPath = *socketPath
	}
	if *fps > 0 {
		settings.FPS = *fps
	}
	if *journalPath != "" {
		settings.JournalPath = *journalPath
	}

	if *backendMode {
		return runBackend(settings)
	}
	return runFrontend(settings, *configPath, *headless)
}

func runBackend(settings *config.Settings) error {
	raw := os.Getenv(runIDEnv)
	runID, err := ulid.Parse(raw)
	if err != nil {
		return fmt.Errorf("backend mode requires %s: %w", runIDEnv, err)
	}

	conn, err := net.DialTimeout("unix", settings.SocketPath, settings.HandshakeBound())
	if err != nil {
		return fmt.Errorf("dial front-end: %w", err)
	}
	ep := channel.NewEndpoint(conn, [16]byte(runID))
	defer ep.Close()

	var journal *backend.Journal
	if settings.JournalPath != "" {
		journal, err = backend.OpenJournal(settings.JournalPath, [16]byte(runID))
		if err != nil {
			log.Printf("backend: journal unavailable: %v", err)
			journal = nil
		}
	}
	defer journal.Close()

	be := backend.New(ep, settings, journal)
	pages.RegisterHandlers(be, settings)
	return be.Run()
}

func runFrontend(settings *config.Settings, configPath string, headless bool) error {
	runID := ulid.Make()

	if err := os.RemoveAll(settings.SocketPath); err != nil {
		return err
	}
	ln, err := net.Listen("unix", settings.SocketPath)
	if err != nil {
		return err
	}
	defer ln.Close()

	reg := registry.New()
	registry.RegisterBuiltIns(reg)
	names := reg.Names()
	if len(names) == 0 {
		return errors.New("no pages registered")
	}
	if err := reg.SetActive(names[0]); err != nil {
		return err
	}

	var screen tcell.Screen
	if headless || !term.IsTerminal(int(os.Stdout.Fd())) {
		screen = tcell.NewSimulationScreen("ansi")
	} else {
		screen, err = tcell.NewScreen()
		if err != nil {
			return err
		}
	}
	renderer, err := frontend.NewScreenRenderer(screen)
	if err != nil {
		return err
	}
	defer renderer.Close()

	child, err := launchWorker(settings, configPath, runID)
	if err != nil {
		return err
	}

	if ul, ok := ln.(*net.UnixListener); ok {
		_ = ul.SetDeadline(time.Now().Add(settings.HandshakeBound() + 2*time.Second))
	}
	conn, err := ln.Accept()
	if err != nil {
		_ = child.Process.Kill()
		return fmt.Errorf("worker never connected: %w", err)
	}
	ep := channel.NewEndpoint(conn, [16]byte(runID))

	fe := frontend.New(ep, reg, renderer, settings)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		<-sigs
		fe.Stop()
	}()
	go watchKeys(renderer.Underlying(), fe)

	runErr := fe.Run()

	ep.Close()
	_ = child.Wait()
	return runErr
}

// watchKeys turns interactive quit keys into an ordered front-end stop. The
// loop ends when the screen is finalized and PollEvent returns nil.
func watchKeys(screen tcell.Screen, fe *frontend.Frontend) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		if key, ok := ev.(*tcell.EventKey); ok {
			switch key.Key() {
			case tcell.KeyCtrlC, tcell.KeyEscape:
				fe.Stop()
				return
			}
		}
	}
}

func launchWorker(settings *config.Settings, configPath string, runID ulid.ULID) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	args := []string{"-backend", "-socket", settings.SocketPath}
	if configPath != "" {
		args = append(args, "-config", configPath)
	}
	if settings.JournalPath != "" {
		args = append(args, "-journal", settings.JournalPath)
	}
	child := exec.Command(exe, args...)
	child.Env = append(os.Environ(), runIDEnv+"="+runID.String())
	child.Stderr = os.Stderr
	if err := child.Start(); err != nil {
		return nil, fmt.Errorf("launch worker: %w", err)
	}
	return child, nil
}
