package policy

import (
	"fmt"

	"github.com/daxcore/dax/pkg/models"
)

// ScopeExpansionChecker reports whether dispatching the current batch
// of tool calls would push the session's scope tracker past its
// declared limits. The policy gate only needs the boolean outcome, so
// it depends on this narrow interface rather than internal/scope
// directly.
type ScopeExpansionChecker interface {
	CheckScopeExpansion() models.ScopeExpansionCheck
}

// EvaluateGates implements evaluate_gates(tool_calls, pm) -> GateResult
// from spec.md §4.7. scopeChecker may be nil when no scope expansion
// rule is configured.
func EvaluateGates(calls []models.ToolCall, pm models.ProjectMemory, scopeChecker ScopeExpansionChecker) models.GateResult {
	result := models.GateResult{ToolCalls: calls}

	alwaysAllowTools := make([]string, 0, len(pm.Constraints.AlwaysAllow))
	alwaysAllowPaths := make([]string, 0, len(pm.Constraints.AlwaysAllow))
	for _, rule := range pm.Constraints.AlwaysAllow {
		switch rule.Kind {
		case models.AllowRuleTool:
			alwaysAllowTools = append(alwaysAllowTools, rule.Pattern)
		case models.AllowRulePath:
			alwaysAllowPaths = append(alwaysAllowPaths, rule.Pattern)
		}
	}

	anyRequireApproval := false

	for _, call := range calls {
		paths := ExtractPaths(call)

		// 1. never_touch always wins, unconditionally.
		for _, glob := range pm.Constraints.NeverTouch {
			for _, p := range paths {
				if MatchesPathPattern(glob, p) {
					result.Blocked = true
					result.NeedsApproval = true
					result.Warnings = append(result.Warnings, models.GateWarning{
						Kind:    models.GateWarnNeverTouch,
						Code:    "never_touch.path",
						Subject: p,
						Message: "touches restricted paths",
						Matches: []string{glob},
					})
				}
			}
		}

		// 2. always_allow (tool): satisfies the tool-name approval rule
		// for this call if any rule matches.
		toolAllowed := false
		for _, pattern := range alwaysAllowTools {
			if MatchesToolPattern(pattern, call.Name) {
				toolAllowed = true
				break
			}
		}

		// 3. require_approval_for: tool-name or path-glob patterns.
		for _, pattern := range pm.Constraints.RequireApprovalFor {
			if MatchesToolPattern(pattern, call.Name) {
				if toolAllowed {
					continue
				}
				anyRequireApproval = true
				result.Warnings = append(result.Warnings, models.GateWarning{
					Kind:    models.GateWarnRequireApproval,
					Code:    "require_approval.tool",
					Subject: call.Name,
					Message: "tool requires approval",
					Matches: []string{pattern},
				})
				continue
			}

			// Treat the pattern as a path glob.
			var matched []string
			for _, p := range paths {
				if MatchesPathPattern(pattern, p) {
					matched = append(matched, p)
				}
			}
			if len(matched) == 0 {
				continue
			}
			for _, p := range matched {
				if isPathCovered(p, alwaysAllowPaths) {
					continue
				}
				anyRequireApproval = true
				result.Warnings = append(result.Warnings, models.GateWarning{
					Kind:    models.GateWarnRequireApproval,
					Code:    "require_approval.path",
					Subject: p,
					Message: "path requires approval",
					Matches: []string{pattern},
				})
			}
		}
	}

	if pm.Constraints.RequireApprovalForScopeExpand && scopeChecker != nil {
		check := scopeChecker.CheckScopeExpansion()
		if check.NeedsApproval {
			anyRequireApproval = true
			result.Warnings = append(result.Warnings, models.GateWarning{
				Kind:    models.GateWarnRequireApproval,
				Code:    "require_approval.scope",
				Subject: "scope",
				Message: fmt.Sprintf("scope expansion: %s", check.Reason),
			})
		}
	}

	result.NeedsApproval = result.NeedsApproval || anyRequireApproval || result.Blocked
	return result
}

// isPathCovered reports whether any always_allow {kind: path} rule's
// glob matches p.
func isPathCovered(p string, alwaysAllowPaths []string) bool {
	for _, glob := range alwaysAllowPaths {
		if MatchesPathPattern(glob, p) {
			return true
		}
	}
	return false
}
