// Copyright © 2026 Tandem contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pages/enter.go
// Summary: The built-in "enter" page: the landing page every run starts on.

package pages

import (
	"time"

	"github.com/framegrace/tandem/backend"
	"github.com/framegrace/tandem/config"
	"github.com/framegrace/tandem/registry"
)

func init() {
	registry.RegisterBuiltInProvider(func() registry.Manifest {
		return registry.Manifest{
			Name:        "enter",
			DisplayName: "Enter",
			Description: "Landing page shown while the worker is idle.",
		}
	})
}

// RegisterHandlers binds the back-end logic for every built-in page.
func RegisterHandlers(b *backend.Backend, settings *config.Settings) {
	if settings == nil {
		settings = config.Defaults()
	}
	interval := settings.PollInterval()
	b.RegisterPage("enter", func(b *backend.Backend) error {
		return runEnter(b, interval)
	})
}

// runEnter is the enter page's dispatch loop: drain whatever is queued each
// tick, then yield. It only returns on a terminal condition surfaced by
// dispatch (peer exit, protocol violation).
func runEnter(b *backend.Backend, interval time.Duration) error {
	for {
		if err := b.DispatchPending(); err != nil {
			return err
		}
		time.Sleep(interval)
	}
}
