package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/daxcore/dax/pkg/models"
)

func TestConvertMessages_PeelsSystemMessage(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleSystem, Content: "you are a terse assistant"},
		{Role: models.RoleUser, Content: "hello"},
	}

	result, system, err := convertMessages(messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if system != "you are a terse assistant" {
		t.Fatalf("expected system prompt extracted, got %q", system)
	}
	if len(result) != 1 {
		t.Fatalf("expected system message excluded from result, got %d messages", len(result))
	}
}

func TestConvertMessages_ToolCallInvalidInputErrors(t *testing.T) {
	messages := []models.Message{
		{
			Role: models.RoleAssistant,
			ToolCalls: []models.ToolCall{
				{ID: "call_1", Name: "edit_file", Input: json.RawMessage(`not json`)},
			},
		},
	}

	if _, _, err := convertMessages(messages); err == nil {
		t.Fatal("expected error for malformed tool call input")
	}
}

func TestConvertTools_InvalidSchemaErrors(t *testing.T) {
	tools := []models.Tool{
		{Name: "broken", Parameters: json.RawMessage(`not json`)},
	}
	if _, err := convertTools(tools); err == nil {
		t.Fatal("expected error for malformed tool schema")
	}
}
