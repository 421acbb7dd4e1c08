package models

import "time"

// ThinkingMode is the presentation policy applied to a ThinkingView.
type ThinkingMode string

const (
	ThinkingOff     ThinkingMode = "off"
	ThinkingMinimal ThinkingMode = "minimal"
	ThinkingVerbose ThinkingMode = "verbose"
)

// ThinkingRow is one phase's worth of rendered items.
type ThinkingRow struct {
	Phase ExecutionPhase `json:"phase"`
	Items []string       `json:"items"`
	TS    time.Time      `json:"ts"`
}

// ThinkingView is the pure, phase-ordered projection of a telemetry
// event list under a given ThinkingMode. Rows are sorted by phase order
// and deduplicated per the mode's policy; see internal/telemetry for the
// transform that produces one.
type ThinkingView struct {
	Phase ExecutionPhase `json:"phase"`
	Mode  ThinkingMode   `json:"mode"`
	Rows  []ThinkingRow  `json:"rows"`
}
