package models

// Model describes an available LLM model and its capabilities, mirroring
// the metadata an LlmProvider capability advertises.
type Model struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ContextSize    int    `json:"context_size"`
	SupportsVision bool   `json:"supports_vision"`
}

// Usage carries token accounting for a completion, when the provider
// reports it.
type Usage struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// Tool is the LLM-facing projection of a registered tool: the shape the
// provider needs to offer function calling, independent of how the tool
// actually executes.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  []byte `json:"parameters"`
}

// FunctionToolSpec is the `{type: "function", function: {...}}` wire
// shape most chat-completion style providers expect for a tool
// definition.
type FunctionToolSpec struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// FunctionSpec is the inner function descriptor of a FunctionToolSpec.
type FunctionSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  []byte `json:"parameters,omitempty"`
}

// ToFunctionToolSpec projects a Tool into the function-tool wire shape
// used by chat-completion style LlmProvider implementations.
func (t Tool) ToFunctionToolSpec() FunctionToolSpec {
	return FunctionToolSpec{
		Type: "function",
		Function: FunctionSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		},
	}
}

// LlmResponse is a (possibly partial) response chunk from a provider.
// During streaming, Content may be empty for tool-call-only chunks;
// the stream coordinator is responsible for concatenating Content
// across chunks and reconstructing the full ToolCalls batch.
type LlmResponse struct {
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     *Usage     `json:"usage,omitempty"`
	Done      bool       `json:"done,omitempty"`
}
