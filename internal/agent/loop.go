// Package agent implements the agent loop (component J): per-turn
// message assembly, stream coordinator invocation, tool-call dispatch
// under the policy gate, and project-memory outcome bookkeeping.
//
// Grounded on the teacher's AgenticLoop (internal/agent/loop.go) for
// the overall Run/iterate shape, generalized to this spec's
// single-coordinator, single-registry contract.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/daxcore/dax/internal/contract"
	"github.com/daxcore/dax/internal/pm"
	"github.com/daxcore/dax/internal/policy"
	"github.com/daxcore/dax/internal/scope"
	"github.com/daxcore/dax/internal/stream"
	"github.com/daxcore/dax/internal/telemetry"
	"github.com/daxcore/dax/pkg/models"
)

// Config bounds one agent loop's iteration and history behavior.
type Config struct {
	MaxIterations int
	MaxOutcomes   int
}

// DefaultConfig mirrors the teacher's DefaultLoopConfig defaults,
// adapted to this system's tool-loop safety limit.
func DefaultConfig() Config {
	return Config{MaxIterations: 10, MaxOutcomes: models.MaxRecentOutcomes}
}

func (c Config) sanitized() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultConfig().MaxIterations
	}
	if c.MaxOutcomes <= 0 {
		c.MaxOutcomes = models.MaxRecentOutcomes
	}
	return c
}

// TurnStatus summarizes how a turn ended.
type TurnStatus string

const (
	TurnComplete        TurnStatus = "complete"
	TurnBlocked         TurnStatus = "blocked"
	TurnNeedsApproval   TurnStatus = "needs_approval"
	TurnIterationLimit  TurnStatus = "iteration_limit"
)

// TurnResult is the outcome of RunTurn: the messages appended this
// turn (assistant/tool messages, in order) and how the turn ended.
// PendingCalls carries the tool_calls awaiting approval when
// Status == TurnNeedsApproval; pass them to DispatchApproved once a
// decision is made.
type TurnResult struct {
	Status          TurnStatus
	Messages        []models.Message
	Gate            *models.GateResult
	PendingApproval *pm.ApprovalRequest
	PendingCalls    []models.ToolCall
}

// Loop wires the stream coordinator, tool registry, PM store, scope
// tracker, and contract validator together per spec.md §4.10. Scope
// and Validator may be nil to disable write-time scope/contract
// checks (e.g. a read-only tool inventory).
type Loop struct {
	Coordinator *stream.Coordinator
	Registry    *ToolRegistry
	PMStore     pm.Store
	Scope       *scope.Tracker
	Validator   *contract.Validator
	Bus         *telemetry.Bus
	Config      Config
}

// New constructs a Loop with sanitized defaults.
func New(coord *stream.Coordinator, registry *ToolRegistry, store pm.Store, cfg Config) *Loop {
	return &Loop{
		Coordinator: coord,
		Registry:    registry,
		PMStore:     store,
		Config:      cfg.sanitized(),
	}
}

func (l *Loop) emit(event models.TelemetryEvent) {
	if l.Bus == nil {
		return
	}
	l.Bus.Emit(event)
}

// RunTurn implements spec.md §4.10's per-turn algorithm: assemble
// messages, stream a completion, evaluate the policy gate over any
// tool calls, dispatch permitted tools, and recurse until the model
// stops requesting tools or the iteration safety limit is reached.
func (l *Loop) RunTurn(ctx context.Context, projectID string, promptCfg PromptConfig, conversation []models.Message, userText string, streamOpts stream.Options) (*TurnResult, error) {
	messages := AssembleMessages(promptCfg, conversation, userText)
	var produced []models.Message

	for iteration := 0; iteration < l.Config.MaxIterations; iteration++ {
		result, err := l.Coordinator.ChatStream(ctx, messages, streamOpts)
		if err != nil {
			return nil, err
		}

		assistantMsg := models.Message{
			Role:      models.RoleAssistant,
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		}
		messages = append(messages, assistantMsg)
		produced = append(produced, assistantMsg)

		if len(result.ToolCalls) == 0 {
			return &TurnResult{Status: TurnComplete, Messages: produced}, nil
		}

		if promptCfg.Mode == ModePlan {
			for _, call := range result.ToolCalls {
				if isWriteTool(call.Name) {
					blockMsg := l.blockedMessage("mode.plan_readonly", call.Name)
					messages = append(messages, blockMsg)
					produced = append(produced, blockMsg)
					return &TurnResult{
						Status:   TurnBlocked,
						Messages: produced,
						Gate: &models.GateResult{
							Blocked:       true,
							NeedsApproval: true,
							Warnings: []models.GateWarning{{
								Kind: models.GateWarnNeverTouch, Code: "mode.plan_readonly", Subject: call.Name,
							}},
						},
					}, nil
				}
			}
		}

		pmState, err := l.PMStore.Load(ctx, projectID)
		if err != nil {
			return nil, &Error{Kind: ErrPersistence, Cause: err}
		}

		var scopeChecker policy.ScopeExpansionChecker
		if l.Scope != nil {
			scopeChecker = l.Scope
		}
		gate := policy.EvaluateGates(result.ToolCalls, pmState, scopeChecker)

		for _, w := range gate.Warnings {
			kind := models.EventGateWarn
			if gate.Blocked && w.Kind == models.GateWarnNeverTouch {
				kind = models.EventGateBlocked
			}
			l.emit(models.TelemetryEvent{Kind: kind, GateCode: w.Code, GateSubject: w.Subject})
		}

		if gate.Blocked {
			code, subject := "never_touch.path", ""
			for _, w := range gate.Warnings {
				if w.Kind == models.GateWarnNeverTouch {
					code, subject = w.Code, w.Subject
					break
				}
			}
			blockMsg := l.blockedMessage(code, subject)
			messages = append(messages, blockMsg)
			produced = append(produced, blockMsg)
			return &TurnResult{Status: TurnBlocked, Messages: produced, Gate: &gate}, nil
		}

		if gate.NeedsApproval {
			return &TurnResult{Status: TurnNeedsApproval, Messages: produced, Gate: &gate, PendingCalls: result.ToolCalls}, nil
		}

		toolMessages, dispatchErr := l.dispatchAll(ctx, result.ToolCalls, projectID)
		messages = append(messages, toolMessages...)
		produced = append(produced, toolMessages...)
		if dispatchErr != nil {
			// The failed call's error is already a tool-role message; calls
			// after it never ran, so give each a canceled result and let the
			// model see the whole batch on the next iteration.
			repaired := RepairTranscript(messages)
			produced = append(produced, repaired[len(messages):]...)
			messages = repaired
		}
	}

	return &TurnResult{Status: TurnIterationLimit, Messages: produced}, nil
}

// DispatchApproved dispatches a previously gate-suspended tool-call
// batch after an external approval decision, producing the tool-role
// messages the caller should append to the conversation before
// resuming RunTurn for the next iteration.
func (l *Loop) DispatchApproved(ctx context.Context, projectID string, calls []models.ToolCall) ([]models.Message, error) {
	messages, err := l.dispatchAll(ctx, calls, projectID)
	return messages, err
}

// dispatchAll executes each tool call in order, validating writes
// against the contract and scope, and appends a tool-role message
// result for each. It stops the batch (but returns what succeeded so
// far) on the first tool.fail, per spec.md §4.10 step 3.
func (l *Loop) dispatchAll(ctx context.Context, calls []models.ToolCall, projectID string) ([]models.Message, error) {
	out := make([]models.Message, 0, len(calls))

	for _, call := range calls {
		l.emit(models.TelemetryEvent{Kind: models.EventToolStart, ToolName: call.Name, ToolTargets: policy.ExtractPaths(call)})

		if isWriteTool(call.Name) {
			if verr := l.validateWrite(call); verr != nil {
				l.emit(models.TelemetryEvent{Kind: models.EventToolFail, ToolName: call.Name, ToolError: verr.Error()})
				out = append(out, toolResultMessage(call.ID, verr.Error(), true))
				l.recordOutcome(ctx, projectID, call.Name, false, verr.Error())
				return out, verr
			}
		}

		result, execErr := Dispatch(ctx, l.Registry, call)
		if execErr != nil {
			l.emit(models.TelemetryEvent{Kind: models.EventToolFail, ToolName: call.Name, ToolError: execErr.Message})
			out = append(out, toolResultMessage(call.ID, execErr.Message, true))
			l.recordOutcome(ctx, projectID, call.Name, false, execErr.Message)
			return out, execErr
		}

		l.emit(models.TelemetryEvent{Kind: models.EventToolOK, ToolName: call.Name})
		out = append(out, toolResultMessage(call.ID, result.Content, result.IsError))
		l.recordOutcome(ctx, projectID, call.Name, !result.IsError, summarize(result.Content))
	}

	return out, nil
}

// validateWrite checks a write-style tool call's target paths against
// the contract validator and scope tracker before Dispatch executes
// it, per spec.md §4.10 step 3 ("for writes also invoke validate_write
// (contract + scope) before executing").
func (l *Loop) validateWrite(call models.ToolCall) *Error {
	paths := policy.ExtractPaths(call)
	if l.Validator != nil {
		for _, p := range paths {
			if !l.Validator.IsSourcePath(p) {
				continue
			}
			content := contentArg(call)
			res := l.Validator.Validate(content, p)
			for _, v := range res.Violations {
				if v.Severity == contract.SeverityError {
					return ContractViolation(v.Path, v.Line, string(v.Severity))
				}
			}
		}
	}
	if l.Scope != nil {
		status := l.Scope.GetStatus()
		if !status.WithinLimits {
			if status.Limits.MaxFiles > 0 && status.Metrics.TouchedFilesCount() >= status.Limits.MaxFiles {
				return ScopeExceeded("files", status.Metrics.TouchedFilesCount(), status.Limits.MaxFiles)
			}
			if status.Limits.MaxLOC > 0 && status.Metrics.ChangedLOC() >= status.Limits.MaxLOC {
				return ScopeExceeded("loc", status.Metrics.ChangedLOC(), status.Limits.MaxLOC)
			}
		}
	}
	return nil
}

func (l *Loop) recordOutcome(ctx context.Context, projectID, tool string, success bool, summary string) {
	if l.PMStore == nil {
		return
	}
	current, err := l.PMStore.Load(ctx, projectID)
	if err != nil {
		return
	}
	outcomes := append(current.RecentOutcomes, models.RecentOutcome{
		Tool: tool, Success: success, Summary: summary,
	})
	if len(outcomes) > l.Config.MaxOutcomes {
		outcomes = outcomes[len(outcomes)-l.Config.MaxOutcomes:]
	}
	_, _ = l.PMStore.Save(ctx, projectID, models.ProjectMemory{RecentOutcomes: outcomes}, "agent", "tool_outcome")
}

func (l *Loop) blockedMessage(code, subject string) models.Message {
	return models.Message{
		Role:    models.RoleAssistant,
		Content: fmt.Sprintf("Blocked by policy gate (%s): %s", code, subject),
	}
}

func toolResultMessage(toolCallID, content string, isError bool) models.Message {
	if isError {
		content = "error: " + content
	}
	return models.Message{Role: models.RoleTool, ToolCallID: toolCallID, Content: content}
}

func summarize(content string) string {
	const maxLen = 200
	content = strings.TrimSpace(content)
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + "..."
}

func contentArg(call models.ToolCall) string {
	var args struct {
		Content string `json:"content"`
	}
	_ = json.Unmarshal(call.Input, &args)
	return args.Content
}
