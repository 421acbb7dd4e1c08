// Package telemetry implements the bounded event bus (component A), the
// phase view builder (component B), and the append-only delta renderer
// (component C) described in spec.md §4.1–§4.3.
package telemetry

import (
	"log/slog"
	"sync"

	"github.com/daxcore/dax/pkg/models"
)

// DefaultCapacity is the bus's default ring size (spec.md §4.1: "default 300").
const DefaultCapacity = 300

// Handler receives an emitted event along with a snapshot of the bus's
// current contents taken immediately after the event was appended.
// Handlers must not mutate the snapshot slice.
type Handler func(event models.TelemetryEvent, snapshot []models.TelemetryEvent)

type subscriber struct {
	id      int
	handler Handler
}

// Bus is a bounded FIFO ring of telemetry events with synchronous
// fan-out to subscribers. It is safe for concurrent use; Emit serializes
// appends and subscriber dispatch the way the teacher's event sinks
// serialize fan-out to multiple sinks. Subscribers are kept in an
// ordered slice (not a map) so dispatch order matches subscription
// order.
type Bus struct {
	mu       sync.Mutex
	capacity int
	events   []models.TelemetryEvent
	subs     []subscriber
	nextSub  int
}

// NewBus creates a telemetry bus with the given ring capacity. A
// non-positive capacity falls back to DefaultCapacity.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity: capacity,
	}
}

// Emit appends the event to the ring, dropping the oldest event if the
// ring is at capacity, then synchronously notifies every subscriber in
// emit order with the event and a snapshot of the ring taken right
// after the append. A subscriber handler that panics is recovered and
// logged out-of-band; it never prevents other subscribers from running.
func (b *Bus) Emit(event models.TelemetryEvent) {
	b.mu.Lock()
	b.events = append(b.events, event)
	if len(b.events) > b.capacity {
		overflow := len(b.events) - b.capacity
		b.events = append([]models.TelemetryEvent(nil), b.events[overflow:]...)
	}
	snapshot := make([]models.TelemetryEvent, len(b.events))
	copy(snapshot, b.events)

	handlers := make([]Handler, len(b.subs))
	for i, s := range b.subs {
		handlers[i] = s.handler
	}
	b.mu.Unlock()

	for _, h := range handlers {
		invokeHandler(h, event, snapshot)
	}
}

// invokeHandler calls a subscriber handler, recovering and logging a
// panic so that one broken subscriber can't take down emit() for the
// rest of the bus's subscribers.
func invokeHandler(h Handler, event models.TelemetryEvent, snapshot []models.TelemetryEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("telemetry: subscriber handler panicked", "recover", r, "event_kind", event.Kind)
		}
	}()
	h(event, snapshot)
}

// Subscribe registers a handler that is invoked synchronously on every
// subsequent Emit, in the order subscribers were registered. The
// returned function unsubscribes the handler; calling it more than once
// is a no-op.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	if h == nil {
		return func() {}
	}
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs = append(b.subs, subscriber{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
		})
	}
}

// List returns a snapshot copy of the bus's current contents in emit
// order (oldest first). Mutating the returned slice does not affect
// the bus.
func (b *Bus) List() []models.TelemetryEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.TelemetryEvent, len(b.events))
	copy(out, b.events)
	return out
}

// Clear empties the ring. Subscribers are left intact; Clear does not
// itself emit an event.
func (b *Bus) Clear() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

// Len returns the number of events currently retained.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
