package audit

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogger_DisabledIsNoOp(t *testing.T) {
	logger, err := NewLogger(Config{Enabled: false})
	require.NoError(t, err)
	logger.Log(&Event{Type: EventGateBlocked, Action: "blocked"})
	require.NoError(t, logger.Close())
}

func TestLogger_WritesEventToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.log")

	logger, err := NewLogger(Config{
		Enabled:    true,
		Format:     "json",
		Output:     "file:" + path,
		BufferSize: 10,
	})
	require.NoError(t, err)

	logger.Log(&Event{Type: EventToolInvocation, Action: "dispatch", ToolName: "echo"})
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "tool.invocation")
	require.Contains(t, string(data), "echo")
}

func TestLogger_RedactsInputByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{
		config:  Config{Enabled: true, IncludeInput: false},
		slogger: slog.New(slog.NewJSONHandler(&buf, nil)),
		buffer:  make(chan *Event, 1),
		done:    make(chan struct{}),
	}

	logger.Log(&Event{
		Type:    EventToolInvocation,
		Action:  "dispatch",
		Details: map[string]any{"input": "sensitive-value"},
	})
	logger.writeEvent(<-logger.buffer)

	require.NotContains(t, buf.String(), "sensitive-value")
}

func TestEvent_AssignsIDAndTimestampWhenUnset(t *testing.T) {
	logger, err := NewLogger(Config{Enabled: true, BufferSize: 10})
	require.NoError(t, err)
	defer logger.Close()

	event := &Event{Type: EventPMMutation, Action: "save"}
	logger.Log(event)

	require.NotEmpty(t, event.ID)
	require.WithinDuration(t, time.Now(), event.Timestamp, time.Second)
}
