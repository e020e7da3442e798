// Package telemetry provides a fire-and-forget event channel for the
// resilience and repository layers. Publishing never blocks and never
// affects control flow: slow subscribers drop events.
package telemetry

import (
	"sync"
	"time"
)

// EventKind labels what happened.
type EventKind string

const (
	EventRetryAttempt   EventKind = "retry_attempt"
	EventRetryExhausted EventKind = "retry_exhausted"
	EventCommandOutcome EventKind = "command_outcome"
)

// Event is one observability record.
type Event struct {
	Kind      EventKind     `json:"kind"`
	Operation string        `json:"operation"`
	Attempt   int           `json:"attempt,omitempty"`
	Delay     time.Duration `json:"delay,omitempty"`
	Outcome   string        `json:"outcome,omitempty"`
	Err       string        `json:"error,omitempty"`
	At        time.Time     `json:"at"`
}

// Hub fans events out to subscribers. A nil *Hub is valid and discards
// everything, so emitting code never guards against absence.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a buffered subscriber channel. The returned cancel
// func unregisters and closes it.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber that can take it without
// blocking. Subscribers with full buffers miss the event.
func (h *Hub) Publish(e Event) {
	if h == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			// Subscriber is slow, skip this event.
		}
	}
}

// SubscriberCount returns the number of registered subscribers.
func (h *Hub) SubscriberCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
