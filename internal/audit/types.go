// Package audit provides a durable, async-buffered audit trail for
// gate decisions, tool dispatch, and PM mutations — the durable
// counterpart PM event-log undo (spec.md §4.6) is not: it records *why*
// (the gate warnings, the actor) alongside *what changed*.
//
// Grounded on the teacher's internal/audit package (types.go, logger.go),
// trimmed to this system's event surface: no channel/gateway/session
// event kinds, since this spec has no multi-channel messaging layer.
package audit

import (
	"time"
)

// EventType categorizes an audit event.
type EventType string

const (
	EventToolInvocation EventType = "tool.invocation"
	EventToolCompletion EventType = "tool.completion"
	EventGateBlocked    EventType = "gate.blocked"
	EventGateApproval   EventType = "gate.needs_approval"
	EventGateApproved   EventType = "gate.approved"
	EventGateDenied     EventType = "gate.denied"
	EventPMMutation     EventType = "pm.mutation"
	EventPMUndo         EventType = "pm.undo"
)

// Level is an audit event's severity.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is one audit log entry.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Level      Level          `json:"level"`
	Timestamp  time.Time      `json:"timestamp"`
	ProjectID  string         `json:"project_id,omitempty"`
	SessionKey string         `json:"session_key,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Config configures the Logger.
type Config struct {
	Enabled      bool   `yaml:"enabled"`
	Format       string `yaml:"format"` // json|text
	Output       string `yaml:"output"` // stdout|stderr|file:/path
	BufferSize   int    `yaml:"buffer_size"`
	IncludeInput bool   `yaml:"include_input"`
}

// DefaultConfig matches the teacher's audit.DefaultConfig posture:
// disabled by default, privacy-conservative when enabled.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		Format:       "json",
		Output:       "stdout",
		BufferSize:   1000,
		IncludeInput: false,
	}
}
