// Copyright © 2026 Tandem contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/defaults.go
// Summary: Default values for the system configuration file.

package config

// Defaults returns a fully populated Settings value. The handshake bound and
// poll interval reproduce the protocol's 5.0 / 0.1 time-unit policy in
// milliseconds.
func Defaults() *Settings {
	return &Settings{
		SocketPath:       "/tmp/tandem.sock",
		FPS:              30,
		HandshakeBoundMs: 5000,
		PollIntervalMs:   100,
		JournalPath:      "",
	}
}

func applyDefaults(s *Settings) {
	def := Defaults()
	if s.SocketPath == "" {
		s.SocketPath = def.SocketPath
	}
	if s.FPS <= 0 {
		s.FPS = def.FPS
	}
	if s.HandshakeBoundMs <= 0 {
		s.HandshakeBoundMs = def.HandshakeBoundMs
	}
	if s.PollIntervalMs <= 0 {
		s.PollIntervalMs = def.PollIntervalMs
	}
}
