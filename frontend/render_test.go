package frontend

import (
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/tandem/dispatch"
)

func TestScreenRendererDrawsTitleBar(t *testing.T) {
	sim := tcell.NewSimulationScreen("UTF-8")
	r, err := NewScreenRenderer(sim)
	if err != nil {
		t.Fatalf("renderer init failed: %v", err)
	}
	defer r.Close()

	if err := r.Draw(Frame{PageTitle: "Enter", Phase: dispatch.PhaseSteadyState}); err != nil {
		t.Fatalf("draw failed: %v", err)
	}

	cells, width, _ := sim.GetContents()
	if width <= 0 || len(cells) == 0 {
		t.Fatalf("simulation screen has no content")
	}
	if len(cells[0].Runes) == 0 || cells[0].Runes[0] != 'E' {
		t.Fatalf("title bar not drawn: %+v", cells[0])
	}
}

func TestScreenRendererPlaceholderWithoutPage(t *testing.T) {
	sim := tcell.NewSimulationScreen("UTF-8")
	r, err := NewScreenRenderer(sim)
	if err != nil {
		t.Fatalf("renderer init failed: %v", err)
	}
	defer r.Close()

	if err := r.Draw(Frame{Phase: dispatch.PhaseAwaitingHandshake}); err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	cells, _, _ := sim.GetContents()
	if len(cells) == 0 || len(cells[0].Runes) == 0 || cells[0].Runes[0] != '(' {
		t.Fatalf("placeholder not drawn: %+v", cells[0])
	}
}
