package agent

import (
	"fmt"
	"strings"

	"github.com/daxcore/dax/pkg/models"
)

// Mode selects between unrestricted tool dispatch and read-only
// planning, per spec.md §4.10.
type Mode string

const (
	ModeBuild Mode = "build"
	ModePlan  Mode = "plan"
)

// ScopeSummary is the subset of scope.Limits worth surfacing in the
// system prompt.
type ScopeSummary struct {
	Patterns []string
	MaxFiles int
	MaxLOC   int
}

// PromptConfig composes the system prompt the agent loop prepends to
// every turn, grounded on the teacher's system-prompt assembly in
// runtime.go (agent name + mode + tool inventory framing).
type PromptConfig struct {
	AgentName   string
	Mode        Mode
	Scope       *ScopeSummary
	ContractText string
}

// BuildSystemPrompt composes the system prompt text per spec.md §4.10:
// agent name, mode, optional scope summary, optional contract text.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder

	name := cfg.AgentName
	if name == "" {
		name = "dax"
	}
	fmt.Fprintf(&b, "You are %s, an interactive coding agent operating in %s mode.\n", name, cfg.Mode)

	if cfg.Mode == ModePlan {
		b.WriteString("Plan mode is active: you may read and analyze but must not write, edit, or otherwise mutate files. Any write tool call will be blocked.\n")
	}

	if cfg.Scope != nil {
		b.WriteString("\nScope:\n")
		if len(cfg.Scope.Patterns) > 0 {
			fmt.Fprintf(&b, "- allowed file patterns: %s\n", strings.Join(cfg.Scope.Patterns, ", "))
		}
		if cfg.Scope.MaxFiles > 0 {
			fmt.Fprintf(&b, "- max files touched: %d\n", cfg.Scope.MaxFiles)
		}
		if cfg.Scope.MaxLOC > 0 {
			fmt.Fprintf(&b, "- max lines changed: %d\n", cfg.Scope.MaxLOC)
		}
	}

	if cfg.ContractText != "" {
		b.WriteString("\nContract:\n")
		b.WriteString(cfg.ContractText)
		b.WriteString("\n")
	}

	return b.String()
}

// AssembleMessages builds the message list for one turn: system prompt,
// prior conversation, then the new user turn.
func AssembleMessages(cfg PromptConfig, conversation []models.Message, userText string) []models.Message {
	out := make([]models.Message, 0, len(conversation)+2)
	out = append(out, models.Message{Role: models.RoleSystem, Content: BuildSystemPrompt(cfg)})
	out = append(out, conversation...)
	out = append(out, models.Message{Role: models.RoleUser, Content: userText})
	return out
}
