package example

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadFileTool_ReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hi there"), 0o644))

	tool := ReadFileTool{WorkDir: dir}
	params, _ := json.Marshal(ReadFileArgs{Path: "hello.txt"})

	result, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, "hi there", result.Content)
}

func TestReadFileTool_MissingFileReturnsToolError(t *testing.T) {
	tool := ReadFileTool{WorkDir: t.TempDir()}
	params, _ := json.Marshal(ReadFileArgs{Path: "nope.txt"})

	result, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestWriteFileTool_WritesContent(t *testing.T) {
	dir := t.TempDir()
	tool := WriteFileTool{WorkDir: dir}
	params, _ := json.Marshal(WriteFileArgs{Path: "out.txt", Content: "written"})

	result, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)
	require.False(t, result.IsError)

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	require.Equal(t, "written", string(data))
}

func TestSchemaFor_ProducesRequiredFields(t *testing.T) {
	raw := schemaFor[WriteFileArgs]()
	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))

	required, ok := schema["required"].([]any)
	require.True(t, ok)
	require.Contains(t, required, "path")
	require.Contains(t, required, "content")
}
