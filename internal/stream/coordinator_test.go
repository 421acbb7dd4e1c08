package stream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/daxcore/dax/internal/llm"
	"github.com/daxcore/dax/pkg/models"
)

type scriptedProvider struct {
	name   string
	chunks []*llm.Chunk
	delay  time.Duration
	err    error
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.Chunk, error) {
	if p.err != nil {
		return nil, p.err
	}
	ch := make(chan *llm.Chunk)
	go func() {
		defer close(ch)
		for _, c := range p.chunks {
			if p.delay > 0 {
				select {
				case <-time.After(p.delay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

type syncFallbackProvider struct {
	scriptedProvider
	syncResp *models.LlmResponse
	syncErr  error
}

func (p *syncFallbackProvider) CompleteSync(ctx context.Context, req *llm.CompletionRequest) (*models.LlmResponse, error) {
	return p.syncResp, p.syncErr
}

func TestChatStream_HappyPath(t *testing.T) {
	p := &scriptedProvider{name: "stub", chunks: []*llm.Chunk{
		{Delta: "hello "},
		{Delta: "world", Done: true},
	}}
	coord := New(p, nil)

	var received []string
	result, err := coord.ChatStream(context.Background(), nil, Options{
		OnChunk: func(c *llm.Chunk) { received = append(received, c.Delta) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "hello world" {
		t.Fatalf("expected concatenated content, got %q", result.Content)
	}
	if len(received) != 2 {
		t.Fatalf("expected 2 chunk callbacks, got %d", len(received))
	}
}

func TestChatStream_DedupsToolCallsByID(t *testing.T) {
	tc := &models.ToolCall{ID: "call_1", Name: "read_file"}
	p := &scriptedProvider{name: "stub", chunks: []*llm.Chunk{
		{ToolCall: tc},
		{ToolCall: tc},
		{Done: true},
	}}
	coord := New(p, nil)

	result, err := coord.ChatStream(context.Background(), nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected tool call deduped to 1, got %d", len(result.ToolCalls))
	}
}

func TestChatStream_FirstTokenTimeout(t *testing.T) {
	p := &scriptedProvider{name: "stub", delay: 50 * time.Millisecond, chunks: []*llm.Chunk{
		{Delta: "too late", Done: true},
	}}
	coord := New(p, nil)

	var timedOut TimeoutKind
	_, err := coord.ChatStream(context.Background(), nil, Options{
		FirstTokenTimeout: 5 * time.Millisecond,
		OnTimeout:         func(kind TimeoutKind) { timedOut = kind },
	})

	var streamErr *Error
	if !errors.As(err, &streamErr) || streamErr.Kind != ErrFirstTokenTimeout {
		t.Fatalf("expected ErrFirstTokenTimeout, got %v", err)
	}
	if timedOut != TimeoutFirstToken {
		t.Fatalf("expected OnTimeout(first_token) invoked, got %q", timedOut)
	}
}

func TestChatStream_OverallTimeout(t *testing.T) {
	p := &blockingAfterFirstProvider{first: &llm.Chunk{Delta: "go"}}
	coord := New(p, nil)

	var timedOut TimeoutKind
	_, err := coord.ChatStream(context.Background(), nil, Options{
		FirstTokenTimeout: time.Second,
		OverallTimeout:    5 * time.Millisecond,
		OnTimeout:         func(kind TimeoutKind) { timedOut = kind },
	})

	var streamErr *Error
	if !errors.As(err, &streamErr) || streamErr.Kind != ErrOverallTimeout {
		t.Fatalf("expected ErrOverallTimeout, got %v", err)
	}
	if timedOut != TimeoutOverall {
		t.Fatalf("expected OnTimeout(overall) invoked, got %q", timedOut)
	}
}

// blockingAfterFirstProvider sends exactly one chunk then blocks forever
// on its channel, simulating a stream that never completes.
type blockingAfterFirstProvider struct {
	first *llm.Chunk
}

func (p *blockingAfterFirstProvider) Name() string { return "blocking" }

func (p *blockingAfterFirstProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.Chunk, error) {
	out := make(chan *llm.Chunk)
	go func() {
		out <- p.first
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

func TestChatStream_FallsBackOnImmediateStreamError(t *testing.T) {
	resp := &models.LlmResponse{Content: "fallback content"}
	p := &syncFallbackProvider{
		scriptedProvider: scriptedProvider{name: "stub", err: errors.New("connection reset")},
		syncResp:         resp,
	}
	coord := New(p, nil)

	var fellBack int32
	var mu sync.Mutex
	var chunked string
	result, err := coord.ChatStream(context.Background(), nil, Options{
		OnFallback: func() { atomic.AddInt32(&fellBack, 1) },
		OnChunk: func(c *llm.Chunk) {
			mu.Lock()
			chunked += c.Delta
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if !result.FellBack {
		t.Fatal("expected FellBack=true")
	}
	if result.Content != "fallback content" {
		t.Fatalf("expected fallback content, got %q", result.Content)
	}
	if atomic.LoadInt32(&fellBack) != 1 {
		t.Fatalf("expected OnFallback invoked once, got %d", fellBack)
	}
	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(chunked, "fallback content") {
		t.Fatalf("expected OnChunk to observe the fallback content, got %q", chunked)
	}
}

func TestChatStream_NoFallbackWithoutSyncCompleter(t *testing.T) {
	p := &scriptedProvider{name: "stub", err: errors.New("boom")}
	coord := New(p, nil)

	_, err := coord.ChatStream(context.Background(), nil, Options{})
	var streamErr *Error
	if !errors.As(err, &streamErr) || streamErr.Kind != ErrProviderStreamFail {
		t.Fatalf("expected ErrProviderStreamFail without a SyncCompleter, got %v", err)
	}
}

func TestChatStream_MidStreamErrorAfterToolCallPropagates(t *testing.T) {
	tc := &models.ToolCall{ID: "call_1", Name: "read_file"}
	p := &syncFallbackProvider{
		scriptedProvider: scriptedProvider{name: "stub", chunks: []*llm.Chunk{
			{ToolCall: tc},
			{Err: errors.New("mid-stream failure")},
		}},
		syncResp: &models.LlmResponse{Content: "should not be used"},
	}
	coord := New(p, nil)

	_, err := coord.ChatStream(context.Background(), nil, Options{})
	var streamErr *Error
	if !errors.As(err, &streamErr) || streamErr.Kind != ErrProviderStreamFail {
		t.Fatalf("expected ErrProviderStreamFail once tool-call semantics completed, got %v", err)
	}
}

func TestChatStream_ContextCancellation(t *testing.T) {
	p := &blockingAfterFirstProvider{first: &llm.Chunk{Delta: "go"}}
	coord := New(p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := coord.ChatStream(ctx, nil, Options{FirstTokenTimeout: time.Second, OverallTimeout: time.Second})
	var streamErr *Error
	if !errors.As(err, &streamErr) || streamErr.Kind != ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}
