// Package example provides illustrative agent.Tool implementations
// (read_file, write_file), registered by cmd/dax, without depending on
// a concrete, production tool
// implementation — which is out of scope per spec.md §1's "Out of
// scope: concrete tool implementations (read_file/write_file/bash/...)".
//
// Schema() generation is grounded on hector's generateSchema
// (pkg/tool/functiontool/schema.go): reflect a Go args struct into a
// JSON Schema via github.com/invopop/jsonschema rather than
// hand-writing schema literals per tool.
package example

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/daxcore/dax/pkg/models"
)

var reflector = &jsonschema.Reflector{
	RequiredFromJSONSchemaTags: true,
	ExpandedStruct:             true,
	DoNotReference:             true,
}

func schemaFor[T any]() json.RawMessage {
	schema := reflector.Reflect(new(T))
	data, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return data
}

// ReadFileArgs is the read_file tool's parameter shape.
type ReadFileArgs struct {
	Path string `json:"path" jsonschema:"required,description=Path to read, relative to the working directory"`
}

// ReadFileTool reads a file's contents. It never mutates the
// filesystem, so it is never a write tool and is always permitted in
// plan mode.
type ReadFileTool struct{ WorkDir string }

func (ReadFileTool) Name() string            { return "read_file" }
func (ReadFileTool) Description() string     { return "Reads the contents of a file." }
func (ReadFileTool) Schema() json.RawMessage { return schemaFor[ReadFileArgs]() }

func (t ReadFileTool) Execute(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
	var args ReadFileArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}
	data, err := os.ReadFile(t.resolve(args.Path))
	if err != nil {
		return &models.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	return &models.ToolResult{Content: string(data)}, nil
}

func (t ReadFileTool) resolve(path string) string {
	if t.WorkDir == "" {
		return path
	}
	return t.WorkDir + "/" + path
}

// WriteFileArgs is the write_file tool's parameter shape.
type WriteFileArgs struct {
	Path    string `json:"path" jsonschema:"required,description=Path to write, relative to the working directory"`
	Content string `json:"content" jsonschema:"required,description=File content to write"`
}

// WriteFileTool writes a file's contents. Named write_file so the
// agent loop's isWriteTool classification routes it through
// validateWrite and blocks it outright in plan mode.
type WriteFileTool struct{ WorkDir string }

func (WriteFileTool) Name() string            { return "write_file" }
func (WriteFileTool) Description() string     { return "Writes content to a file, creating or overwriting it." }
func (WriteFileTool) Schema() json.RawMessage { return schemaFor[WriteFileArgs]() }

func (t WriteFileTool) Execute(ctx context.Context, params json.RawMessage) (*models.ToolResult, error) {
	var args WriteFileArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}
	if err := os.WriteFile(t.resolve(args.Path), []byte(args.Content), 0o644); err != nil {
		return &models.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	return &models.ToolResult{Content: fmt.Sprintf("wrote %d bytes to %s", len(args.Content), args.Path)}, nil
}

func (t WriteFileTool) resolve(path string) string {
	if t.WorkDir == "" {
		return path
	}
	return t.WorkDir + "/" + path
}
