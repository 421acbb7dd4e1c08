package telemetry

import (
	"fmt"

	"github.com/daxcore/dax/pkg/models"
)

// completeMarkerKey is the fixed key used for the minimal-mode
// "✓ Complete" line, which never repeats per render.Delta's seen-set.
const completeMarkerKey = "complete:marker"

// Delta is an append-only, idempotent renderer over a ThinkingView. It
// tracks which (header/item) keys it has already emitted and only ever
// returns the lines newly introduced since the last call, the way a
// terminal UI redraws only what changed. A Delta is not safe for
// concurrent use.
type Delta struct {
	seen map[string]bool
}

// NewDelta returns a fresh, empty Delta renderer.
func NewDelta() *Delta {
	return &Delta{seen: make(map[string]bool)}
}

// Reset clears the renderer's seen-set, so the next Render call
// re-emits every line in the view from scratch.
func (d *Delta) Reset() {
	d.seen = make(map[string]bool)
}

// renderLine is one (key, text) pair the caller has not yet been shown.
type renderLine struct {
	Key  string
	Text string
}

// Render returns the lines newly introduced by view since the last call
// (or since construction/Reset), in view order. Calling Render twice in
// a row with an unchanged view yields no lines: the renderer is
// monotone — it never re-emits or retracts a key once shown.
//
// In models.ThinkingOff mode, Render always returns nil.
func (d *Delta) Render(view models.ThinkingView) []string {
	if view.Mode == models.ThinkingOff {
		return nil
	}

	var lines []renderLine
	for _, row := range view.Rows {
		// Minimal mode renders a completed phase solely as a fixed
		// "✓ Complete" marker, never its header/items.
		if view.Mode == models.ThinkingMinimal && row.Phase == models.PhaseComplete {
			if !d.seen[completeMarkerKey] {
				d.seen[completeMarkerKey] = true
				lines = append(lines, renderLine{completeMarkerKey, "✓ Complete"})
			}
			continue
		}

		headerKey := fmt.Sprintf("phase:%s", row.Phase.Key())
		if !d.seen[headerKey] {
			d.seen[headerKey] = true
			lines = append(lines, renderLine{headerKey, headerText(view.Mode, row.Phase)})
		}

		for _, item := range row.Items {
			itemKey := fmt.Sprintf("step:%s:%s", row.Phase.Key(), item)
			if d.seen[itemKey] {
				continue
			}
			d.seen[itemKey] = true
			lines = append(lines, renderLine{itemKey, fmt.Sprintf("   • %s", item)})
		}
	}

	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Text)
	}
	return out
}

// headerText formats a phase header per mode: minimal collapses to the
// bare title, verbose spells out "Phase: <Title>".
func headerText(mode models.ThinkingMode, phase models.ExecutionPhase) string {
	if mode == models.ThinkingMinimal {
		return fmt.Sprintf("▣ %s", phase.String())
	}
	return fmt.Sprintf("▣ Phase: %s", phase.String())
}
