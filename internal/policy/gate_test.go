package policy

import (
	"encoding/json"
	"testing"

	"github.com/daxcore/dax/pkg/models"
)

func callWithPath(name, path string) models.ToolCall {
	input, _ := json.Marshal(map[string]interface{}{"path": path})
	return models.ToolCall{Name: name, Input: input}
}

func TestEvaluateGates_NeverTouchBlocksEvenIfAlwaysAllowed(t *testing.T) {
	pm := models.ProjectMemory{
		Constraints: models.Constraints{
			NeverTouch: []string{"secrets/**"},
			AlwaysAllow: []models.AllowRule{
				{Kind: models.AllowRulePath, Pattern: "secrets/**"},
			},
		},
	}
	result := EvaluateGates([]models.ToolCall{callWithPath("write", "secrets/token.env")}, pm, nil)
	if !result.Blocked || !result.NeedsApproval {
		t.Fatalf("expected never_touch to block despite always_allow, got %+v", result)
	}
	if result.Warnings[0].Kind != models.GateWarnNeverTouch {
		t.Fatalf("expected never_touch warning, got %+v", result.Warnings[0])
	}
}

func TestEvaluateGates_RequireApprovalForTool(t *testing.T) {
	pm := models.ProjectMemory{
		Constraints: models.Constraints{
			RequireApprovalFor: []string{"exec"},
		},
	}
	result := EvaluateGates([]models.ToolCall{{Name: "exec"}}, pm, nil)
	if !result.NeedsApproval || result.Blocked {
		t.Fatalf("expected needs_approval without block, got %+v", result)
	}
	if result.Warnings[0].Code != "require_approval.tool" {
		t.Fatalf("expected require_approval.tool code, got %+v", result.Warnings[0])
	}
}

func TestEvaluateGates_AlwaysAllowToolSuppressesApproval(t *testing.T) {
	pm := models.ProjectMemory{
		Constraints: models.Constraints{
			RequireApprovalFor: []string{"exec"},
			AlwaysAllow:        []models.AllowRule{{Kind: models.AllowRuleTool, Pattern: "exec"}},
		},
	}
	result := EvaluateGates([]models.ToolCall{{Name: "exec"}}, pm, nil)
	if result.NeedsApproval {
		t.Fatalf("expected always_allow tool rule to suppress approval, got %+v", result)
	}
}

func TestEvaluateGates_PathRequiresApprovalUnlessCovered(t *testing.T) {
	pm := models.ProjectMemory{
		Constraints: models.Constraints{
			RequireApprovalFor: []string{"src/**"},
			AlwaysAllow:        []models.AllowRule{{Kind: models.AllowRulePath, Pattern: "src/generated/**"}},
		},
	}
	result := EvaluateGates([]models.ToolCall{
		callWithPath("write", "src/generated/schema.go"),
		callWithPath("write", "src/main.go"),
	}, pm, nil)

	if !result.NeedsApproval {
		t.Fatal("expected src/main.go to require approval")
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Subject != "src/main.go" {
		t.Fatalf("expected only the uncovered path to warn, got %+v", result.Warnings)
	}
}

type fakeScopeChecker struct {
	check models.ScopeExpansionCheck
}

func (f fakeScopeChecker) CheckScopeExpansion() models.ScopeExpansionCheck {
	return f.check
}

func TestEvaluateGates_ScopeExpansion(t *testing.T) {
	pm := models.ProjectMemory{
		Constraints: models.Constraints{RequireApprovalForScopeExpand: true},
	}
	checker := fakeScopeChecker{check: models.ScopeExpansionCheck{NeedsApproval: true, Reason: "changed_loc exceeds max_loc"}}
	result := EvaluateGates(nil, pm, checker)
	if !result.NeedsApproval {
		t.Fatal("expected scope expansion to require approval")
	}
	if result.Warnings[0].Code != "require_approval.scope" {
		t.Fatalf("expected require_approval.scope code, got %+v", result.Warnings[0])
	}
}

func TestEvaluateGates_NoWarningsWhenClean(t *testing.T) {
	result := EvaluateGates([]models.ToolCall{{Name: "read"}}, models.ProjectMemory{}, nil)
	if result.Blocked || result.NeedsApproval || len(result.Warnings) != 0 {
		t.Fatalf("expected clean result, got %+v", result)
	}
}
