package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger writes Events to an async-buffered sink, grounded on the
// teacher's audit.Logger (internal/audit/logger.go): a background
// writeLoop goroutine drains a channel so Log does not wait on I/O
// while the buffer has room. When the buffer is full, Log writes the
// event synchronously.
type Logger struct {
	config  Config
	output  io.WriteCloser
	slogger *slog.Logger
	buffer  chan *Event
	wg      sync.WaitGroup
	done    chan struct{}
}

// NewLogger constructs a Logger. A disabled config returns a no-op
// Logger whose Log calls are free.
func NewLogger(config Config) (*Logger, error) {
	if !config.Enabled {
		return &Logger{config: config}, nil
	}
	if config.BufferSize == 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}

	var output io.WriteCloser
	switch {
	case config.Output == "stdout" || config.Output == "":
		output = os.Stdout
	case config.Output == "stderr":
		output = os.Stderr
	case strings.HasPrefix(config.Output, "file:"):
		path := strings.TrimPrefix(config.Output, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("audit: open output file: %w", err)
		}
		output = f
	default:
		return nil, fmt.Errorf("audit: unsupported output %q", config.Output)
	}

	var handler slog.Handler
	if config.Format == "text" {
		handler = slog.NewTextHandler(output, nil)
	} else {
		handler = slog.NewJSONHandler(output, nil)
	}

	l := &Logger{
		config:  config,
		output:  output,
		slogger: slog.New(handler).With("component", "audit"),
		buffer:  make(chan *Event, config.BufferSize),
		done:    make(chan struct{}),
	}

	l.wg.Add(1)
	go l.writeLoop()

	return l, nil
}

// Close flushes the buffer and releases the output.
func (l *Logger) Close() error {
	if !l.config.Enabled {
		return nil
	}
	close(l.done)
	l.wg.Wait()
	if l.output != os.Stdout && l.output != os.Stderr {
		return l.output.Close()
	}
	return nil
}

// Log records event, assigning an ID/timestamp if unset. Falls back
// to a direct (blocking) write if the buffer is full rather than drop
// the event, since the audit trail's entire purpose is durability.
func (l *Logger) Log(event *Event) {
	if !l.config.Enabled {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if !l.config.IncludeInput {
		redactDetails(event.Details)
	}

	select {
	case l.buffer <- event:
	default:
		l.writeEvent(event)
	}
}

func (l *Logger) writeLoop() {
	defer l.wg.Done()
	for {
		select {
		case event := <-l.buffer:
			l.writeEvent(event)
		case <-l.done:
			for {
				select {
				case event := <-l.buffer:
					l.writeEvent(event)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	attrs := make([]any, 0, 12)
	attrs = append(attrs, "event_id", event.ID, "action", event.Action)
	if event.ProjectID != "" {
		attrs = append(attrs, "project_id", event.ProjectID)
	}
	if event.Actor != "" {
		attrs = append(attrs, "actor", event.Actor)
	}
	if event.ToolName != "" {
		attrs = append(attrs, "tool_name", event.ToolName)
	}
	if event.ToolCallID != "" {
		attrs = append(attrs, "tool_call_id", event.ToolCallID)
	}
	if event.Error != "" {
		attrs = append(attrs, "error", event.Error)
	}
	if event.Details != nil {
		if b, err := json.Marshal(event.Details); err == nil {
			attrs = append(attrs, "details", string(b))
		}
	}

	switch event.Level {
	case LevelWarn:
		l.slogger.Warn(string(event.Type), attrs...)
	case LevelError:
		l.slogger.Error(string(event.Type), attrs...)
	default:
		l.slogger.Info(string(event.Type), attrs...)
	}
}

// redactDetails replaces input-carrying detail keys in place when the
// config opts out of input retention.
func redactDetails(details map[string]any) {
	for _, key := range []string{"input", "content"} {
		if _, ok := details[key]; ok {
			details[key] = "[REDACTED]"
		}
	}
}
