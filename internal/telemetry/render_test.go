package telemetry

import (
	"testing"

	"github.com/daxcore/dax/pkg/models"
)

func TestDelta_OffModeRendersNothing(t *testing.T) {
	d := NewDelta()
	view := models.ThinkingView{Mode: models.ThinkingOff, Phase: models.PhaseAnalysis}
	if lines := d.Render(view); lines != nil {
		t.Fatalf("expected nil lines in off mode, got %+v", lines)
	}
}

func TestDelta_IsMonotoneAndIdempotent(t *testing.T) {
	d := NewDelta()
	view := models.ThinkingView{
		Mode:  models.ThinkingMinimal,
		Phase: models.PhaseAnalysis,
		Rows: []models.ThinkingRow{
			{Phase: models.PhaseAnalysis, Items: []string{"drafting reply"}},
		},
	}

	first := d.Render(view)
	if len(first) != 2 {
		t.Fatalf("expected header + 1 item on first render, got %+v", first)
	}
	if first[0] != "▣ Analysis" {
		t.Fatalf("expected collapsed minimal header, got %q", first[0])
	}
	if first[1] != "   • drafting reply" {
		t.Fatalf("expected bulleted item, got %q", first[1])
	}

	second := d.Render(view)
	if len(second) != 0 {
		t.Fatalf("expected no new lines on unchanged re-render, got %+v", second)
	}

	view.Rows[0].Items = append(view.Rows[0].Items, "drafting reply", "new item")
	third := d.Render(view)
	if len(third) != 1 || third[0] != "   • new item" {
		t.Fatalf("expected only the genuinely new item emitted, got %+v", third)
	}
}

func TestDelta_VerboseHeaderFormat(t *testing.T) {
	d := NewDelta()
	view := models.ThinkingView{
		Mode:  models.ThinkingVerbose,
		Phase: models.PhaseExecution,
		Rows: []models.ThinkingRow{
			{Phase: models.PhaseExecution, Items: nil},
		},
	}
	lines := d.Render(view)
	if len(lines) != 1 || lines[0] != "▣ Phase: Execution" {
		t.Fatalf("expected verbose phase header, got %+v", lines)
	}
}

func TestDelta_MinimalCompletePhaseIsFixedMarker(t *testing.T) {
	d := NewDelta()
	view := models.ThinkingView{
		Mode:  models.ThinkingMinimal,
		Phase: models.PhaseComplete,
		Rows: []models.ThinkingRow{
			{Phase: models.PhaseComplete, Items: []string{"reply ready"}},
		},
	}
	lines := d.Render(view)
	if len(lines) != 1 || lines[0] != "✓ Complete" {
		t.Fatalf("expected fixed complete marker, got %+v", lines)
	}
	// Re-rendering the same completed view must not repeat the marker.
	if lines := d.Render(view); len(lines) != 0 {
		t.Fatalf("expected complete marker not repeated, got %+v", lines)
	}
}
