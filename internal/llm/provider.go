// Package llm defines the LlmProvider capability the stream coordinator
// (component I) calls, grounded on the teacher's internal/agent
// LLMProvider interface and CompletionRequest/CompletionChunk shapes,
// generalized to this system's streaming chat contract.
package llm

import (
	"context"

	"github.com/daxcore/dax/pkg/models"
)

// CompletionRequest is one turn's worth of input to a provider: the
// full message history, the tool specs the model may call, and
// optional generation parameters.
type CompletionRequest struct {
	Messages    []models.Message
	Tools       []models.Tool
	Model       string
	MaxTokens   int
	Temperature float64
}

// Chunk is one increment of a streamed completion. Exactly one of
// Delta, ToolCall, Usage, or Err is meaningful per chunk; Done marks the
// terminal chunk of the stream. A non-nil Err always carries Done=true:
// the provider has nothing further to send once it surfaces a failure.
type Chunk struct {
	Delta    string
	ToolCall *models.ToolCall
	Usage    *models.Usage
	Err      error
	Done     bool
}

// Provider is the capability the stream coordinator delegates
// streaming completions to. Complete returns a channel of Chunks
// closed when the stream ends; a failure during the stream arrives as
// a Chunk with Err set, while the returned error reports a failure to
// start the stream.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *Chunk, error)
}

// SyncCompleter is the non-streaming `provider.complete` capability the
// coordinator falls back to, once per chat_stream call, when the
// streaming generator fails before any tool-call semantics complete. A
// Provider that does not implement SyncCompleter forces stream-only
// mode: the coordinator surfaces the stream failure directly instead of
// attempting the fallback.
type SyncCompleter interface {
	CompleteSync(ctx context.Context, req *CompletionRequest) (*models.LlmResponse, error)
}
