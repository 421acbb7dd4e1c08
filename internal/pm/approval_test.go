package pm

import (
	"context"
	"testing"
	"time"

	"github.com/daxcore/dax/pkg/models"
)

func TestApprovalStore_CreateAndDecide(t *testing.T) {
	store := NewMemoryApprovalStore()
	ctx := context.Background()

	gate := models.GateResult{
		NeedsApproval: true,
		Warnings:      []models.GateWarning{{Code: "require_approval.tool"}},
	}
	req := NewApprovalRequest("proj1", "sess1", gate, time.Minute)
	if err := store.Create(ctx, req); err != nil {
		t.Fatalf("Create: %v", err)
	}

	pending, err := store.ListPending(ctx, "proj1")
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected 1 pending request, got %+v (err=%v)", pending, err)
	}

	decided, err := store.Decide(ctx, req.ID, ApprovalApproved, "reviewer")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.Decision != ApprovalApproved || decided.DecidedBy != "reviewer" {
		t.Fatalf("unexpected decided request: %+v", decided)
	}

	pending, _ = store.ListPending(ctx, "proj1")
	if len(pending) != 0 {
		t.Fatalf("expected no pending requests after decision, got %+v", pending)
	}
}

func TestApprovalStore_DecideTwiceIsNoop(t *testing.T) {
	store := NewMemoryApprovalStore()
	ctx := context.Background()
	req := NewApprovalRequest("proj1", "", models.GateResult{}, 0)
	_ = store.Create(ctx, req)

	_, err := store.Decide(ctx, req.ID, ApprovalApproved, "a")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	second, err := store.Decide(ctx, req.ID, ApprovalDenied, "b")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if second != nil {
		t.Fatalf("expected nil result from deciding an already-decided request, got %+v", second)
	}
}

func TestApprovalStore_Prune(t *testing.T) {
	store := NewMemoryApprovalStore()
	ctx := context.Background()
	req := NewApprovalRequest("proj1", "", models.GateResult{}, 0)
	req.CreatedAt = now().Add(-time.Hour)
	_ = store.Create(ctx, req)

	pruned, err := store.Prune(ctx, time.Minute)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned request, got %d", pruned)
	}
}
