// Copyright © 2026 Tandem contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: registry/manifest.go
// Summary: Defines the page manifest structure for the registry.

package registry

import "fmt"

// Manifest describes a page's identity and presentation metadata.
type Manifest struct {
	// Name is the unique identifier for this page (e.g., "enter"). It is
	// the value carried on the wire in pagename answers.
	Name string `json:"name"`

	// DisplayName is the human-readable title shown by the renderer.
	DisplayName string `json:"displayName"`

	// Description provides a brief explanation of what the page shows.
	Description string `json:"description"`
}

// Validate checks the manifest for required fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("registry: manifest missing required field 'name'")
	}
	return nil
}

// Title returns the display name, falling back to the identifier.
func (m *Manifest) Title() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Name
}
