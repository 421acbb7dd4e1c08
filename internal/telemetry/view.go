package telemetry

import (
	"fmt"
	"strings"

	"github.com/daxcore/dax/pkg/models"
)

// modePolicy is the row-shaping policy for one ThinkingMode, matching
// the table in spec.md §4.2.
type modePolicy struct {
	phasesShown    int
	stepsPerPhase  int
	showTools      bool
	showGates      bool
	showTiming     bool
	collapse       bool
	stripVerbs     bool
}

var policies = map[models.ThinkingMode]modePolicy{
	models.ThinkingOff: {
		phasesShown: 0, stepsPerPhase: 0,
	},
	models.ThinkingMinimal: {
		phasesShown: 2, stepsPerPhase: 2,
		showTools: true, showGates: true,
		collapse: true, stripVerbs: true,
	},
	models.ThinkingVerbose: {
		phasesShown: 3, stepsPerPhase: 6,
		showTools: true, showGates: true, showTiming: true,
	},
}

// verbStripRewrites is the exact-match minimal-mode verb-strip table
// from the GLOSSARY.
var verbStripRewrites = map[string]string{
	"interpreting request":            "task parsed",
	"building context":                "context loaded",
	"creating work notes":             "drafting plan",
	"drafting response":               "drafting reply",
	"first token received":            "stream connected",
	"response ready":                  "reply ready",
	"plan draft started":              "drafting plan",
	"processing follow-up request":    "drafting reply",
	"continuing task loop":            "executing steps",
}

const scanningPrefix = "scanning "

// stripVerb applies the minimal-mode verb-strip rewrite table to a
// single (already whitespace-normalized) item string. Unmatched text
// passes through unchanged.
func stripVerb(text string) string {
	if rewrite, ok := verbStripRewrites[text]; ok {
		return rewrite
	}
	if strings.HasPrefix(text, scanningPrefix) {
		return strings.TrimPrefix(text, scanningPrefix)
	}
	return text
}

const maxItemLen = 120

// normalizeText whitespace-normalizes (collapses runs of whitespace to
// single spaces, trims ends) and truncates to maxItemLen chars with an
// ellipsis suffix, per spec.md §4.2.
func normalizeText(text string) string {
	fields := strings.Fields(text)
	normalized := strings.Join(fields, " ")
	if len(normalized) > maxItemLen {
		// Reserve 3 chars for the ellipsis suffix.
		normalized = normalized[:maxItemLen-3] + "..."
	}
	return normalized
}

// classifyPhase maps an event to the ExecutionPhase it belongs to:
// phase.* and timing events carry their own Phase field; tool.* events
// belong to execution; gate.* events belong to verification.
func classifyPhase(e models.TelemetryEvent) models.ExecutionPhase {
	switch e.Kind {
	case models.EventToolStart, models.EventToolOK, models.EventToolFail:
		return models.PhaseExecution
	case models.EventGateWarn, models.EventGateBlocked:
		return models.PhaseVerification
	default:
		return e.Phase
	}
}

// itemText renders the display text for an event, or "" if the event
// kind is suppressed under the given policy (e.g. timing events in
// minimal mode).
func itemText(e models.TelemetryEvent, pol modePolicy) (string, bool) {
	switch e.Kind {
	case models.EventPhaseEnter:
		return "", false
	case models.EventPhaseStep:
		return e.Text, true
	case models.EventToolStart:
		if !pol.showTools {
			return "", false
		}
		return fmt.Sprintf("running %s", e.ToolName), true
	case models.EventToolOK:
		if !pol.showTools {
			return "", false
		}
		return fmt.Sprintf("%s ok", e.ToolName), true
	case models.EventToolFail:
		if !pol.showTools {
			return "", false
		}
		return fmt.Sprintf("%s failed: %s", e.ToolName, e.ToolError), true
	case models.EventGateWarn:
		if !pol.showGates {
			return "", false
		}
		return fmt.Sprintf("%s: %s", e.GateCode, e.GateSubject), true
	case models.EventGateBlocked:
		if !pol.showGates {
			return "", false
		}
		return fmt.Sprintf("blocked: %s %s", e.GateCode, e.GateSubject), true
	case models.EventTiming:
		if !pol.showTiming {
			return "", false
		}
		return fmt.Sprintf("%s (%s)", e.Stage, e.Duration), true
	default:
		return "", false
	}
}

// BuildView is the pure transform build_view(events, mode) -> ThinkingView
// described in spec.md §4.2. It classifies each event into a phase,
// normalizes and deduplicates consecutive step text, applies the mode's
// verb-strip and truncation policy, and returns only the phases that
// accumulated items plus whichever phase was last active.
func BuildView(events []models.TelemetryEvent, mode models.ThinkingMode) models.ThinkingView {
	pol, ok := policies[mode]
	if !ok {
		pol = policies[models.ThinkingOff]
	}

	activePhase := models.PhaseUnderstanding
	seenPhase := make(map[models.ExecutionPhase]bool)
	rawItems := make(map[models.ExecutionPhase][]string)
	lastSeenEvent := make(map[models.ExecutionPhase]models.TelemetryEvent)

	for _, e := range events {
		phase := classifyPhase(e)
		activePhase = phase
		seenPhase[phase] = true
		lastSeenEvent[phase] = e

		text, include := itemText(e, pol)
		if !include {
			continue
		}
		normalized := normalizeText(text)
		items := rawItems[phase]
		if len(items) > 0 && items[len(items)-1] == normalized {
			continue // suppress consecutive duplicate
		}
		rawItems[phase] = append(items, normalized)
	}

	seenPhase[activePhase] = true

	// Phases with items, in total phase order, plus the active phase.
	included := make([]models.ExecutionPhase, 0, 7)
	for p := models.PhaseUnderstanding; p <= models.PhaseComplete; p++ {
		if !seenPhase[p] {
			continue
		}
		if len(rawItems[p]) == 0 && p != activePhase {
			continue
		}
		included = append(included, p)
	}

	if pol.phasesShown > 0 && len(included) > pol.phasesShown {
		included = included[len(included)-pol.phasesShown:]
	} else if pol.phasesShown == 0 {
		included = nil
	}

	rows := make([]models.ThinkingRow, 0, len(included))
	for _, p := range included {
		items := rawItems[p]
		var finalItems []string
		if pol.stepsPerPhase > 0 && len(items) > pol.stepsPerPhase {
			finalItems = append(finalItems, items[:pol.stepsPerPhase]...)
			finalItems = append(finalItems, fmt.Sprintf("... (+%d more)", len(items)-pol.stepsPerPhase))
		} else if pol.stepsPerPhase > 0 {
			finalItems = append(finalItems, items...)
		}
		if pol.stripVerbs {
			for i, it := range finalItems {
				finalItems[i] = stripVerb(it)
			}
		}
		row := models.ThinkingRow{
			Phase: p,
			Items: finalItems,
		}
		if ev, ok := lastSeenEvent[p]; ok {
			row.TS = ev.TS
		}
		rows = append(rows, row)
	}

	return models.ThinkingView{
		Phase: activePhase,
		Mode:  mode,
		Rows:  rows,
	}
}
