// Package policy implements the two-tier gate (component G) that
// evaluates candidate tool calls against a project's ProjectMemory:
// never_touch always blocks, require_approval_for gates on approval,
// and always_allow rules can satisfy require_approval_for but never
// override never_touch. Tool-name normalization
// and pattern matching are grounded on the teacher's
// internal/tools/policy package (NormalizeTool, matchToolPattern).
package policy

import (
	"encoding/json"
	"strings"

	"github.com/daxcore/dax/internal/globmatch"
	"github.com/daxcore/dax/pkg/models"
)

// toolAliases maps alternative tool spellings to their canonical name.
var toolAliases = map[string]string{
	"bash":        "exec",
	"shell":       "exec",
	"apply-patch": "edit",
	"apply_patch": "edit",
}

// NormalizeTool lowercases, trims, and resolves known aliases for a
// tool name, the way the teacher's NormalizeTool does for its own
// alias table.
func NormalizeTool(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := toolAliases[normalized]; ok {
		return alias
	}
	return normalized
}

// MatchesToolPattern reports whether pattern matches toolName. "*" is a
// universal wildcard; "mcp:*" matches any mcp:-namespaced tool;
// "mcp:server.*" matches any tool namespaced under a given MCP server;
// anything else is an exact match after normalization.
func MatchesToolPattern(pattern, toolName string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	toolName = NormalizeTool(toolName)

	if pattern == "*" {
		return true
	}
	if pattern == "mcp:*" {
		return strings.HasPrefix(toolName, "mcp:")
	}
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(toolName, prefix)
	}
	return NormalizeTool(pattern) == toolName
}

// MatchesPathPattern reports whether pattern matches a path under the
// "**"/"*" glob semantics shared with the scope tracker.
func MatchesPathPattern(pattern, path string) bool {
	return globmatch.Match(pattern, path)
}

// pathArgKeys are the argument shapes a tool call's Input map is
// searched under for candidate paths, per spec.md §4.7.
var pathArgKeys = []string{"path", "file", "target"}
var pathArgListKeys = []string{"files", "targets"}

// ExtractPaths pulls every candidate path out of a tool call's
// arguments under the common shapes {path|file|target: string} and
// {files|targets: []string}.
func ExtractPaths(call models.ToolCall) []string {
	var paths []string
	if len(call.Input) == 0 {
		return paths
	}
	var args map[string]interface{}
	if err := json.Unmarshal(call.Input, &args); err != nil {
		return paths
	}

	for _, key := range pathArgKeys {
		if v, ok := args[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				paths = append(paths, s)
			}
		}
	}
	for _, key := range pathArgListKeys {
		v, ok := args[key]
		if !ok {
			continue
		}
		if list, ok := v.([]interface{}); ok {
			for _, item := range list {
				if s, ok := item.(string); ok && s != "" {
					paths = append(paths, s)
				}
			}
		}
	}
	return paths
}
