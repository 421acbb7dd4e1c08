package pm

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/daxcore/dax/pkg/models"
)

func TestDiff_ExpandsNestedConstraintKeys(t *testing.T) {
	before := models.ProjectMemory{
		ProjectID:   "p1",
		Constraints: models.Constraints{NeverTouch: []string{"a"}},
	}
	after := models.ProjectMemory{
		ProjectID:   "p1",
		Charter:     "new charter",
		Constraints: models.Constraints{NeverTouch: []string{"a", "b"}},
	}

	changed := Diff(before, after)
	want := []string{"charter", "constraints.never_touch"}
	if !reflect.DeepEqual(changed, want) {
		t.Fatalf("expected %v, got %v", want, changed)
	}
}

func TestDiff_NoChanges(t *testing.T) {
	pmState := models.ProjectMemory{ProjectID: "p1", Charter: "same"}
	if changed := Diff(pmState, pmState); len(changed) != 0 {
		t.Fatalf("expected no diff for identical snapshots, got %v", changed)
	}
}

func TestRedact_HidesSensitiveKeys(t *testing.T) {
	in, err := RedactJSON([]byte(`{"api_key": "sk-live-123", "note": "fine to show"}`))
	if err != nil {
		t.Fatalf("RedactJSON: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(in, &out); err != nil {
		t.Fatalf("unmarshal redacted output: %v", err)
	}
	if out["api_key"] != redactedPlaceholder {
		t.Fatalf("expected api_key redacted, got %v", out["api_key"])
	}
	if out["note"] != "fine to show" {
		t.Fatalf("expected unrelated key preserved, got %v", out["note"])
	}
}
