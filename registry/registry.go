// Copyright © 2026 Tandem contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: registry/registry.go
// Summary: Implements the page registry for discovering and addressing pages.
// Usage: The front-end resolves the active page here; the back-end validates
// page names it receives against the same registry.

package registry

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

var (
	// ErrNoActivePage is returned when the current page is read before any
	// page has been registered and activated.
	ErrNoActivePage = errors.New("registry: no active page")

	// ErrUnknownPage is returned for lookups of names never registered.
	ErrUnknownPage = errors.New("registry: unknown page")
)

// Entry represents a registered page with its metadata.
type Entry struct {
	Manifest Manifest
}

// Registry manages the collection of pages an application run can show.
// Pages are held in registration order; the active index addresses one of
// them, or none before the first activation.
type Registry struct {
	mu        sync.RWMutex
	pages     map[string]*Entry
	order     []string
	activeIdx int
}

// New creates an empty registry with no active page.
func New() *Registry {
	return &Registry{
		pages:     make(map[string]*Entry),
		activeIdx: -1,
	}
}

// Register adds a page. Re-registering a name replaces its manifest but
// keeps its position.
func (r *Registry) Register(m Manifest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pages[m.Name]; !exists {
		r.order = append(r.order, m.Name)
	}
	r.pages[m.Name] = &Entry{Manifest: m}
	log.Printf("Registry: Registered page '%s'", m.Name)
}

// Names lists registered pages in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Lookup returns the entry for a page name.
func (r *Registry) Lookup(name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.pages[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPage, name)
	}
	return entry, nil
}

// Has reports whether a page name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.pages[name]
	return ok
}

// SetActive makes the named page current.
func (r *Registry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.order {
		if n == name {
			r.activeIdx = i
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownPage, name)
}

// ActiveName resolves the active index to a page name. Reading the current
// page before any page was activated is an error the caller must treat as
// fatal: the responder never answers with a made-up page.
func (r *Registry) ActiveName() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.activeIdx < 0 || r.activeIdx >= len(r.order) {
		return "", ErrNoActivePage
	}
	return r.order[r.activeIdx], nil
}

// Len returns the number of registered pages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
