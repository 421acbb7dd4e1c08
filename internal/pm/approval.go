package pm

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daxcore/dax/pkg/models"
)

// ApprovalDecision is the outcome of a pending ApprovalRequest.
type ApprovalDecision string

const (
	ApprovalPending  ApprovalDecision = "pending"
	ApprovalApproved ApprovalDecision = "approved"
	ApprovalDenied   ApprovalDecision = "denied"
)

// ApprovalRequest is a GateResult surfaced to a human for a decision,
// when evaluate_gates reports needs_approval. Grounded on the
// teacher's agent.ApprovalRequest, trimmed to the single decision this
// system's gate needs rather than a full allow/deny/require-approval
// policy of its own.
type ApprovalRequest struct {
	ID        string              `json:"id"`
	ProjectID string              `json:"project_id"`
	SessionID string              `json:"session_id,omitempty"`
	ToolCalls []models.ToolCall   `json:"tool_calls"`
	Warnings  []models.GateWarning `json:"warnings"`
	Decision  ApprovalDecision    `json:"decision"`
	CreatedAt time.Time           `json:"created_at"`
	ExpiresAt time.Time           `json:"expires_at,omitempty"`
	DecidedAt time.Time           `json:"decided_at,omitempty"`
	DecidedBy string              `json:"decided_by,omitempty"`
}

// ApprovalStore persists pending approval requests across a turn
// boundary, so a human's decision can arrive asynchronously relative
// to the agent loop that raised it.
type ApprovalStore interface {
	Create(ctx context.Context, req *ApprovalRequest) error
	Get(ctx context.Context, id string) (*ApprovalRequest, error)
	Decide(ctx context.Context, id string, decision ApprovalDecision, decidedBy string) (*ApprovalRequest, error)
	ListPending(ctx context.Context, projectID string) ([]*ApprovalRequest, error)
	Prune(ctx context.Context, olderThan time.Duration) (int, error)
}

// MemoryApprovalStore is a thread-safe in-memory ApprovalStore,
// sufficient for a single-process agent session.
type MemoryApprovalStore struct {
	mu       sync.RWMutex
	requests map[string]*ApprovalRequest
}

// NewMemoryApprovalStore returns an empty MemoryApprovalStore.
func NewMemoryApprovalStore() *MemoryApprovalStore {
	return &MemoryApprovalStore{requests: make(map[string]*ApprovalRequest)}
}

// NewApprovalRequest builds a pending request for a gate result with
// needs_approval set, assigning it a fresh ID and CreatedAt.
func NewApprovalRequest(projectID, sessionID string, gate models.GateResult, ttl time.Duration) *ApprovalRequest {
	req := &ApprovalRequest{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		SessionID: sessionID,
		ToolCalls: gate.ToolCalls,
		Warnings:  gate.Warnings,
		Decision:  ApprovalPending,
		CreatedAt: now(),
	}
	if ttl > 0 {
		req.ExpiresAt = req.CreatedAt.Add(ttl)
	}
	return req
}

func (s *MemoryApprovalStore) Create(ctx context.Context, req *ApprovalRequest) error {
	if req == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
	return nil
}

func (s *MemoryApprovalStore) Get(ctx context.Context, id string) (*ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests[id], nil
}

// Decide transitions a pending request to approved or denied,
// recording who decided and when. Deciding an already-decided or
// missing request is a no-op returning nil.
func (s *MemoryApprovalStore) Decide(ctx context.Context, id string, decision ApprovalDecision, decidedBy string) (*ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.Decision != ApprovalPending {
		return nil, nil
	}
	req.Decision = decision
	req.DecidedAt = now()
	req.DecidedBy = decidedBy
	return req, nil
}

// ListPending returns every still-pending, non-expired request for a
// project (all projects if projectID is "").
func (s *MemoryApprovalStore) ListPending(ctx context.Context, projectID string) ([]*ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*ApprovalRequest
	current := now()
	for _, req := range s.requests {
		if req.Decision != ApprovalPending {
			continue
		}
		if !req.ExpiresAt.IsZero() && req.ExpiresAt.Before(current) {
			continue
		}
		if projectID != "" && req.ProjectID != projectID {
			continue
		}
		result = append(result, req)
	}
	return result, nil
}

// Prune removes requests created before now-olderThan, returning the
// count removed.
func (s *MemoryApprovalStore) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now().Add(-olderThan)
	pruned := 0
	for id, req := range s.requests {
		if req.CreatedAt.Before(cutoff) {
			delete(s.requests, id)
			pruned++
		}
	}
	return pruned, nil
}
