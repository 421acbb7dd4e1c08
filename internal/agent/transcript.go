package agent

import "github.com/daxcore/dax/pkg/models"

// RepairTranscript synthesizes a canceled tool result for every
// tool_call of the most recent assistant message that has no matching
// tool-role message, so that every call of that message is answered
// after a tool loop is interrupted by context cancellation or a
// process crash mid-dispatch. Unanswered calls of earlier assistant
// messages are left as they are.
//
// Grounded on the teacher's repairTranscript (internal/agent/transcript_repair.go),
// adapted from the teacher's ToolResults-per-message shape to this
// system's one-tool-call-per-message shape.
func RepairTranscript(history []models.Message) []models.Message {
	if len(history) == 0 {
		return history
	}

	repaired := make([]models.Message, 0, len(history))
	pendingIdx := make(map[string]int) // tool call ID -> index of its assistant message in repaired

	for _, msg := range history {
		switch msg.Role {
		case models.RoleAssistant:
			for k := range pendingIdx {
				delete(pendingIdx, k)
			}
			repaired = append(repaired, msg)
			for _, call := range msg.ToolCalls {
				if call.ID != "" {
					pendingIdx[call.ID] = len(repaired) - 1
				}
			}
		case models.RoleTool:
			if msg.ToolCallID != "" {
				delete(pendingIdx, msg.ToolCallID)
			}
			repaired = append(repaired, msg)
		default:
			repaired = append(repaired, msg)
		}
	}

	if len(pendingIdx) == 0 {
		return repaired
	}

	// Synthesize canceled results in tool_call order, inserted right after
	// the requesting assistant message and its existing tool results, so
	// they stay next to the calls they answer even when other messages
	// follow later in the transcript.
	ids := make([]string, 0, len(pendingIdx))
	insertAt := len(repaired)
	for id, idx := range pendingIdx {
		ids = append(ids, id)
		insertAt = idx + 1
	}
	for insertAt < len(repaired) && repaired[insertAt].Role == models.RoleTool {
		insertAt++
	}
	synthesized := make([]models.Message, 0, len(ids))
	for _, id := range orderByAssistantPosition(history, ids) {
		synthesized = append(synthesized, toolResultMessage(id, "canceled: interrupted before completion", true))
	}
	tail := append([]models.Message(nil), repaired[insertAt:]...)
	return append(append(repaired[:insertAt], synthesized...), tail...)
}

// orderByAssistantPosition returns ids in the order their owning
// tool_call first appears across history, so synthesized results come
// out deterministically rather than in Go's randomized map order.
func orderByAssistantPosition(history []models.Message, ids []string) []string {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, msg := range history {
		if msg.Role != models.RoleAssistant {
			continue
		}
		for _, call := range msg.ToolCalls {
			if want[call.ID] {
				out = append(out, call.ID)
				delete(want, call.ID)
			}
		}
	}
	return out
}
