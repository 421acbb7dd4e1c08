package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/daxcore/dax/pkg/models"
)

// Tool is the capability consumed by the agent loop. Out of scope per
// spec.md §1: the loop invokes tools through this generic interface and
// never imports concrete tool packages, grounded on the teacher's
// provider_types.go Tool interface.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) (*models.ToolResult, error)
}

// ToolRegistry is a thread-safe lookup table of registered tools,
// grounded on the teacher's runtime.go ToolRegistry.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolRegistry constructs an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool by name.
func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get looks up a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every registered tool, in no particular order.
func (r *ToolRegistry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// FunctionTools projects every registered tool into the LLM-facing
// models.Tool shape the stream coordinator forwards to a provider.
func (r *ToolRegistry) FunctionTools() []models.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, models.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return out
}

// writeToolNames marks tools whose execution mutates the filesystem and
// therefore must pass through validateWrite (contract + scope) and are
// forbidden outright in plan mode.
var writeToolNames = map[string]bool{
	"write_file": true,
	"edit_file":  true,
	"apply_diff": true,
	"delete_file": true,
}

func isWriteTool(name string) bool {
	return writeToolNames[name]
}

// Dispatch executes one tool call. A result with IsError=true that the
// tool itself returns is passed through with a nil error. For an
// unknown tool, schema-invalid input, or an error returned by Execute,
// Dispatch returns a nil result and a non-nil *Error the loop treats as
// a §7 ToolExecutionError. A panicking tool is not recovered.
//
// Before Execute runs, call.Input is validated against the tool's own
// Schema() — a contract-adjacent boundary check distinct from the
// contract validator (D), grounded on the teacher's pluginsdk
// ValidateConfig (pkg/pluginsdk/validation.go).
func Dispatch(ctx context.Context, registry *ToolRegistry, call models.ToolCall) (*models.ToolResult, *Error) {
	tool, ok := registry.Get(call.Name)
	if !ok {
		return nil, ToolExecutionError(call.Name, fmt.Sprintf("unknown tool %q", call.Name))
	}

	if err := validateInput(tool, call.Input); err != nil {
		return nil, ToolExecutionError(call.Name, fmt.Sprintf("invalid input: %v", err))
	}

	result, err := tool.Execute(ctx, call.Input)
	if err != nil {
		return nil, ToolExecutionError(call.Name, err.Error())
	}
	return result, nil
}

var schemaCache sync.Map

// validateInput compiles (and caches) tool's JSON Schema and validates
// raw against it. A tool whose schema fails to compile is treated as
// permissive (no schema to validate against) rather than blocking
// every call it ever receives.
func validateInput(tool Tool, raw json.RawMessage) error {
	schema, err := compiledSchema(tool.Name(), tool.Schema())
	if err != nil {
		return nil
	}

	var decoded any
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode tool input: %w", err)
	}
	return schema.Validate(decoded)
}

func compiledSchema(toolName string, raw json.RawMessage) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(toolName); ok {
		return cached.(*jsonschema.Schema), nil
	}
	compiled, err := jsonschema.CompileString(toolName+".schema.json", string(raw))
	if err != nil {
		return nil, err
	}
	schemaCache.Store(toolName, compiled)
	return compiled, nil
}
