package services

import (
	"sync"
	"time"

	"alfredoptarigan/ats-scanner/internal/models"
)

type EventType string

const (
	EventTypeStatus    EventType = "status"
	EventTypeMilestone EventType = "milestone"
	EventTypeProgress  EventType = "progress"
	EventTypeResult    EventType = "result"
	EventTypeError     EventType = "error"
	EventTypeNotice    EventType = "notice"
)

// Event is one sequenced update of a session, read incrementally by clients.
type Event struct {
	Seq       int64                `json:"seq"`
	Timestamp time.Time            `json:"timestamp"`
	SessionID string               `json:"sessionId"`
	Type      EventType            `json:"type"`
	Status    models.SessionStatus `json:"status,omitempty"`
	Message   string               `json:"message,omitempty"`
	Progress  float64              `json:"progress,omitempty"`
}

// EventBus keeps a bounded window of recent events.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish assigns the next sequence number and a timestamp when missing.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

func (b *EventBus) LastSeq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}
