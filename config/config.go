// Copyright © 2026 Tandem contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/config.go
// Summary: System configuration store for tandem.

package config

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

const systemConfigName = "tandem.json"

// Settings holds the resolved configuration for one application run. It is
// constructed explicitly at process entry and passed to whatever needs it;
// there is no global lookup.
type Settings struct {
	// SocketPath is the unix socket the two processes meet on.
	SocketPath string `json:"socket_path"`

	// FPS is the front-end tick cadence.
	FPS int `json:"fps"`

	// HandshakeBoundMs bounds the back-end's polling waits during the
	// handshake. Exceeding it is a liveness failure.
	HandshakeBoundMs int `json:"handshake_bound_ms"`

	// PollIntervalMs is the fixed sleep between polls in the handshake
	// and page-name waits.
	PollIntervalMs int `json:"poll_interval_ms"`

	// JournalPath is the SQLite session journal location. Empty disables
	// the journal.
	JournalPath string `json:"journal_path"`
}

// HandshakeBound returns the liveness bound as a duration.
func (s *Settings) HandshakeBound() time.Duration {
	return time.Duration(s.HandshakeBoundMs) * time.Millisecond
}

// PollInterval returns the polling sleep as a duration.
func (s *Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// Load reads the system config file, filling defaults for anything missing.
// A missing file is not an error; the defaults stand.
func Load() (*Settings, error) {
	path, err := systemConfigPath()
	if err != nil {
		log.Printf("Config: Failed to resolve system config path: %v", err)
		return Defaults(), nil
	}
	return LoadFile(path)
}

// LoadFile reads settings from an explicit path.
func LoadFile(path string) (*Settings, error) {
	settings := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		log.Printf("Config: Failed to read system config %s: %v", path, err)
		return settings, err
	}

	if err := json.Unmarshal(data, settings); err != nil {
		log.Printf("Config: Failed to parse system config %s: %v", path, err)
		return Defaults(), err
	}
	applyDefaults(settings)
	return settings, nil
}

// Save persists settings to an explicit path, creating parent directories.
func Save(path string, settings *Settings) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
