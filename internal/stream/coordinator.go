// Package stream implements the stream coordinator (component I): the
// state machine that drives one chat_stream call against an
// llm.Provider, arming first-token and overall timers, forwarding
// chunks to a caller-supplied callback, and falling back to a
// non-streaming complete() once per call when the stream generator
// fails before any tool-call semantics finish.
//
// Grounded on the teacher's failover/retry control-flow shape
// (internal/agent/failover.go, internal/agent/loop.go) generalized to
// the single-call streaming contract this spec describes.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/daxcore/dax/internal/llm"
	"github.com/daxcore/dax/internal/telemetry"
	"github.com/daxcore/dax/pkg/models"
)

const (
	// DefaultFirstTokenTimeout bounds how long chat_stream waits for the
	// first non-empty chunk before failing with ErrFirstTokenTimeout.
	DefaultFirstTokenTimeout = 15 * time.Second
	// DefaultOverallTimeout bounds the remainder of the stream once the
	// first chunk has arrived.
	DefaultOverallTimeout = 120 * time.Second
)

// TimeoutKind distinguishes which timer fired, passed to Options.OnTimeout.
type TimeoutKind string

const (
	TimeoutFirstToken TimeoutKind = "first_token"
	TimeoutOverall    TimeoutKind = "overall"
)

// Options configures one ChatStream call.
type Options struct {
	FirstTokenTimeout time.Duration
	OverallTimeout    time.Duration

	OnChunk      func(*llm.Chunk)
	OnFirstToken func()
	OnTimeout    func(kind TimeoutKind)
	OnFallback   func()

	Model       string
	MaxTokens   int
	Temperature float64
	Tools       []models.Tool
}

func (o Options) firstTokenTimeout() time.Duration {
	if o.FirstTokenTimeout > 0 {
		return o.FirstTokenTimeout
	}
	return DefaultFirstTokenTimeout
}

func (o Options) overallTimeout() time.Duration {
	if o.OverallTimeout > 0 {
		return o.OverallTimeout
	}
	return DefaultOverallTimeout
}

// Result is the outcome of a successful ChatStream call: the
// concatenated assistant text and any tool calls collected across
// chunks, deduplicated by ToolCall.ID.
type Result struct {
	Content   string
	ToolCalls []models.ToolCall
	Usage     *models.Usage
	FellBack  bool
}

// Coordinator drives chat_stream calls against a single llm.Provider,
// optionally emitting progress onto a telemetry bus.
type Coordinator struct {
	provider llm.Provider
	bus      *telemetry.Bus
}

// New constructs a Coordinator. bus may be nil to disable telemetry
// emission.
func New(provider llm.Provider, bus *telemetry.Bus) *Coordinator {
	return &Coordinator{provider: provider, bus: bus}
}

// ChatStream implements the public contract:
// chat_stream(user_text, on_chunk, options) -> Result<(), StreamError>.
// messages is the full assembled history including the new user turn;
// the caller (agent loop) owns message assembly.
func (c *Coordinator) ChatStream(ctx context.Context, messages []models.Message, opts Options) (*Result, error) {
	req := &llm.CompletionRequest{
		Messages:    messages,
		Tools:       opts.Tools,
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	chunks, err := c.provider.Complete(streamCtx, req)
	if err != nil {
		return c.fallback(ctx, req, providerStreamFailed(err), opts.OnFallback, opts.OnChunk)
	}

	firstTokenTimer := time.NewTimer(opts.firstTokenTimeout())
	defer firstTokenTimer.Stop()

	var overallTimer *time.Timer
	var overallC <-chan time.Time

	var mu sync.Mutex
	done := false
	emit := func(ch *llm.Chunk) {
		mu.Lock()
		if done {
			mu.Unlock()
			return
		}
		mu.Unlock()
		if opts.OnChunk != nil {
			opts.OnChunk(ch)
		}
	}

	result := &Result{}
	toolSeen := make(map[string]bool)
	sawFirstToken := false

	for {
		select {
		case <-firstTokenTimer.C:
			if sawFirstToken {
				continue
			}
			mu.Lock()
			done = true
			mu.Unlock()
			cancelStream()
			if opts.OnTimeout != nil {
				opts.OnTimeout(TimeoutFirstToken)
			}
			c.emitTiming("first_token_timeout")
			return nil, firstTokenTimeout()

		case <-overallC:
			mu.Lock()
			done = true
			mu.Unlock()
			cancelStream()
			if opts.OnTimeout != nil {
				opts.OnTimeout(TimeoutOverall)
			}
			return nil, overallTimeout()

		case chunk, ok := <-chunks:
			if !ok {
				mu.Lock()
				done = true
				mu.Unlock()
				if overallTimer != nil {
					overallTimer.Stop()
				}
				return result, nil
			}

			if chunk.Err != nil {
				mu.Lock()
				done = true
				mu.Unlock()
				cancelStream()
				if overallTimer != nil {
					overallTimer.Stop()
				}
				if len(result.ToolCalls) == 0 {
					return c.fallback(ctx, req, providerStreamFailed(chunk.Err), opts.OnFallback, opts.OnChunk)
				}
				return nil, providerStreamFailed(chunk.Err)
			}

			if !sawFirstToken && (chunk.Delta != "" || chunk.ToolCall != nil) {
				sawFirstToken = true
				firstTokenTimer.Stop()
				if opts.OnFirstToken != nil {
					opts.OnFirstToken()
				}
				overallTimer = time.NewTimer(opts.overallTimeout())
				overallC = overallTimer.C
			}

			if chunk.Delta != "" {
				result.Content += chunk.Delta
			}
			if chunk.ToolCall != nil && !toolSeen[chunk.ToolCall.ID] {
				toolSeen[chunk.ToolCall.ID] = true
				result.ToolCalls = append(result.ToolCalls, *chunk.ToolCall)
			}
			if chunk.Usage != nil {
				result.Usage = chunk.Usage
			}
			emit(chunk)

			if chunk.Done {
				mu.Lock()
				done = true
				mu.Unlock()
				if overallTimer != nil {
					overallTimer.Stop()
				}
				return result, nil
			}

		case <-ctx.Done():
			mu.Lock()
			done = true
			mu.Unlock()
			cancelStream()
			return nil, cancelled()
		}
	}
}

// fallback implements the one-shot complete() fallback: invoked when
// the stream generator fails before any tool call has been received,
// even if text chunks were already streamed. It is not
// invoked on either timeout path. Per spec.md §4.9, the fallback's
// content is synthesized as a chunk sequence through onChunk so a
// caller wired to OnChunk for terminal rendering still sees the
// fallback response stream rather than only the final Result.
func (c *Coordinator) fallback(ctx context.Context, req *llm.CompletionRequest, streamErr *Error, onFallback func(), onChunk func(*llm.Chunk)) (*Result, error) {
	completer, ok := c.provider.(llm.SyncCompleter)
	if !ok {
		return nil, streamErr
	}

	if onFallback != nil {
		onFallback()
	}

	resp, err := completer.CompleteSync(ctx, req)
	if err != nil {
		return nil, streamErr
	}

	if onChunk != nil {
		onChunk(&llm.Chunk{Delta: resp.Content})
		onChunk(&llm.Chunk{Done: true})
	}

	return &Result{
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
		Usage:     resp.Usage,
		FellBack:  true,
	}, nil
}

func (c *Coordinator) emitTiming(stage string) {
	if c.bus == nil {
		return
	}
	c.bus.Emit(models.TelemetryEvent{Kind: models.EventTiming, Stage: stage})
}
