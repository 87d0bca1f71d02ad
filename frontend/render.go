// Copyright © 2026 Tandem contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: frontend/render.go
// Summary: Frame rendering collaborator. The protocol core only asks for
// "draw current frame"; everything visual lives behind the Renderer.

package frontend

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/framegrace/tandem/dispatch"
)

// Frame is what the core hands the renderer once per tick.
type Frame struct {
	PageTitle string
	Phase     dispatch.Phase
}

// Renderer draws one frame per tick. Implementations must not block on the
// message channels.
type Renderer interface {
	Draw(frame Frame) error
	Close()
}

// ScreenRenderer renders onto a tcell.Screen: the active page's title bar
// and the current phase. Pass tcell.NewSimulationScreen for headless runs
// and tests.
type ScreenRenderer struct {
	screen tcell.Screen
}

// NewScreenRenderer initialises the screen and wraps it.
func NewScreenRenderer(screen tcell.Screen) (*ScreenRenderer, error) {
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.SetStyle(tcell.StyleDefault)
	screen.HideCursor()
	return &ScreenRenderer{screen: screen}, nil
}

func (r *ScreenRenderer) Draw(frame Frame) error {
	r.screen.Clear()

	title := frame.PageTitle
	if title == "" {
		title = "(no page)"
	}
	barStyle := tcell.StyleDefault.Reverse(true)
	width, height := r.screen.Size()
	drawText(r.screen, 0, 0, width, title, barStyle)
	if height > 1 {
		drawText(r.screen, 0, height-1, width, frame.Phase.String(), tcell.StyleDefault.Dim(true))
	}

	r.screen.Show()
	return nil
}

func (r *ScreenRenderer) Close() {
	r.screen.Fini()
}

// Underlying exposes the wrapped tcell.Screen for hosts that also poll it
// for input events.
func (r *ScreenRenderer) Underlying() tcell.Screen {
	return r.screen
}

func drawText(screen tcell.Screen, x, y, maxWidth int, text string, style tcell.Style) {
	col := x
	for _, ch := range text {
		w := runewidth.RuneWidth(ch)
		if w == 0 {
			w = 1
		}
		if col+w > x+maxWidth {
			break
		}
		screen.SetContent(col, y, ch, nil, style)
		col += w
	}
}
