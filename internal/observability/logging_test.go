package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_RedactsAPIKeyInMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Format: "text", Output: &buf})

	logger.Info(context.Background(), "using api_key=sk-ant-"+strings.Repeat("a", 100))

	require.NotContains(t, buf.String(), "sk-ant-")
	assert.Contains(t, buf.String(), "[REDACTED]")
}

func TestLogger_IncludesRunAndSessionIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Format: "text", Output: &buf})

	ctx := AddRunID(context.Background(), "run-1")
	ctx = AddSessionID(ctx, "sess-1")
	logger.Info(ctx, "hello")

	out := buf.String()
	assert.Contains(t, out, "run_id=run-1")
	assert.Contains(t, out, "session_id=sess-1")
}

func TestRunID_EmptyWhenUnset(t *testing.T) {
	assert.Equal(t, "", RunID(context.Background()))
	assert.Equal(t, "", SessionID(context.Background()))
}
