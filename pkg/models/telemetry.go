package models

import "time"

// ExecutionPhase is one step of the agent's total phase order. Lower
// values precede higher ones; Before reflects that order.
type ExecutionPhase int

const (
	PhaseUnderstanding ExecutionPhase = iota
	PhaseDiscovery
	PhaseAnalysis
	PhasePlanning
	PhaseExecution
	PhaseVerification
	PhaseComplete
)

// phaseNames holds the display title for each phase, in phase order.
var phaseNames = [...]string{
	PhaseUnderstanding: "Understanding",
	PhaseDiscovery:     "Discovery",
	PhaseAnalysis:      "Analysis",
	PhasePlanning:      "Planning",
	PhaseExecution:     "Execution",
	PhaseVerification:  "Verification",
	PhaseComplete:      "Complete",
}

// phaseKeys holds the wire/key form for each phase (lowercase, stable).
var phaseKeys = [...]string{
	PhaseUnderstanding: "understanding",
	PhaseDiscovery:     "discovery",
	PhaseAnalysis:      "analysis",
	PhasePlanning:      "planning",
	PhaseExecution:     "execution",
	PhaseVerification:  "verification",
	PhaseComplete:      "complete",
}

// String returns the human-readable title of the phase, e.g. "Analysis".
func (p ExecutionPhase) String() string {
	if p < PhaseUnderstanding || p > PhaseComplete {
		return "Unknown"
	}
	return phaseNames[p]
}

// Key returns the stable lowercase identifier for the phase, e.g.
// "analysis", used in telemetry event tags and delta-render keys.
func (p ExecutionPhase) Key() string {
	if p < PhaseUnderstanding || p > PhaseComplete {
		return "unknown"
	}
	return phaseKeys[p]
}

// Before reports whether p strictly precedes other in phase order.
func (p ExecutionPhase) Before(other ExecutionPhase) bool {
	return p < other
}

// PhaseFromKey resolves a phase key back to its ExecutionPhase. ok is
// false for an unrecognized key.
func PhaseFromKey(key string) (ExecutionPhase, bool) {
	for i, k := range phaseKeys {
		if k == key {
			return ExecutionPhase(i), true
		}
	}
	return 0, false
}

// TelemetryEventKind tags the variant of a TelemetryEvent.
type TelemetryEventKind string

const (
	EventPhaseEnter  TelemetryEventKind = "phase.enter"
	EventPhaseStep   TelemetryEventKind = "phase.step"
	EventToolStart   TelemetryEventKind = "tool.start"
	EventToolOK      TelemetryEventKind = "tool.ok"
	EventToolFail    TelemetryEventKind = "tool.fail"
	EventGateWarn    TelemetryEventKind = "gate.warn"
	EventGateBlocked TelemetryEventKind = "gate.blocked"
	EventTiming      TelemetryEventKind = "timing"
)

// TelemetryEvent is a single tagged event appended to the telemetry bus.
// Only the fields relevant to Kind are populated; the rest are zero.
type TelemetryEvent struct {
	Kind TelemetryEventKind `json:"kind"`
	TS   time.Time          `json:"ts"`

	// phase.enter / phase.step / timing
	Phase ExecutionPhase `json:"phase,omitempty"`
	Text  string         `json:"text,omitempty"`

	// tool.*
	ToolName    string   `json:"tool_name,omitempty"`
	ToolTargets []string `json:"tool_targets,omitempty"`
	ToolError   string   `json:"tool_error,omitempty"`

	// gate.*
	GateCode    string `json:"gate_code,omitempty"`
	GateSubject string `json:"gate_subject,omitempty"`

	// timing
	Stage        string        `json:"stage,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	FirstTokenMS *int64        `json:"first_token_ms,omitempty"`
}
