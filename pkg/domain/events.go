package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventExtractStart  EventType = "extract_start"
	EventExtractReturn EventType = "extract_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// ExtractEvent describes one outbound extraction call.
type ExtractEvent struct {
	EventBase
	InputSize   int           `json:"input_size"`
	ActionCount int           `json:"action_count,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Outcome     OutcomeKind   `json:"outcome,omitempty"`
	Err         error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnExtractStart  func(context.Context, *ExtractEvent)
	OnExtractReturn func(context.Context, *ExtractEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnExtractStart:  chain(h.OnExtractStart, other.OnExtractStart),
		OnExtractReturn: chain(h.OnExtractReturn, other.OnExtractReturn),
	}
}

func chain(a, b func(context.Context, *ExtractEvent)) func(context.Context, *ExtractEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *ExtractEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
