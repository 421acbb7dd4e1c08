package pm

import (
	"context"
	"testing"

	"github.com/daxcore/dax/pkg/models"
)

func TestStore_SaveMergesConstraints(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	maxFiles := 10
	_, err = store.Save(ctx, "proj1", models.ProjectMemory{
		Constraints: models.Constraints{
			NeverTouch: []string{"secrets/**"},
			MaxFiles:   &maxFiles,
		},
	}, "tester", "init")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	maxLOC := 500
	next, err := store.Save(ctx, "proj1", models.ProjectMemory{
		Constraints: models.Constraints{MaxLOC: &maxLOC},
	}, "tester", "update loc")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if len(next.Constraints.NeverTouch) != 1 || next.Constraints.NeverTouch[0] != "secrets/**" {
		t.Fatalf("expected never_touch preserved through merge, got %+v", next.Constraints.NeverTouch)
	}
	if next.Constraints.MaxFiles == nil || *next.Constraints.MaxFiles != 10 {
		t.Fatalf("expected max_files preserved, got %+v", next.Constraints.MaxFiles)
	}
	if next.Constraints.MaxLOC == nil || *next.Constraints.MaxLOC != 500 {
		t.Fatalf("expected max_loc applied, got %+v", next.Constraints.MaxLOC)
	}
	if store.WriteCount() != 2 {
		t.Fatalf("expected write_count 2, got %d", store.WriteCount())
	}
}

func TestStore_UndoRestoresPreviousSnapshot(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	_, err = store.Save(ctx, "proj1", models.ProjectMemory{Charter: "first charter"}, "tester", "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	_, err = store.Save(ctx, "proj1", models.ProjectMemory{Charter: "second charter"}, "tester", "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored, err := store.Undo(ctx, "proj1", "tester")
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if restored.Charter != "first charter" {
		t.Fatalf("expected undo to restore first charter, got %q", restored.Charter)
	}

	events, err := store.Events(ctx, "proj1", 10)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if events[0].EventType != models.PMEventUndo {
		t.Fatalf("expected newest event to be an undo, got %+v", events[0])
	}
}

func TestStore_LoadUnknownProjectReturnsZeroValue(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	pmState, err := store.Load(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if pmState.ProjectID != "nonexistent" {
		t.Fatalf("expected ProjectID stamped on zero-value load, got %+v", pmState)
	}
}

func TestNormalizeAlwaysAllow_LegacyStringForm(t *testing.T) {
	rules, err := normalizeAlwaysAllow([]byte(`["read_file", {"kind": "path", "pattern": "src/**"}]`))
	if err != nil {
		t.Fatalf("normalizeAlwaysAllow: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %+v", rules)
	}
	if rules[0].Kind != models.AllowRuleTool || rules[0].Pattern != "read_file" {
		t.Fatalf("expected legacy string rewritten to tool rule, got %+v", rules[0])
	}
	if rules[1].Kind != models.AllowRulePath || rules[1].Pattern != "src/**" {
		t.Fatalf("expected typed rule preserved, got %+v", rules[1])
	}
}
