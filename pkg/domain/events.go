package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurn           EventType = "turn"
	EventIncident       EventType = "incident"
	EventStageChange    EventType = "stage_change"
	EventResponderCall  EventType = "responder_call"
	EventExternalCall   EventType = "external_call"
	EventProposalDenied EventType = "proposal_denied"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Stage     Stage     `json:"stage"`
}

// TurnEvent is emitted once per completed turn.
type TurnEvent struct {
	EventBase
	Tag      Tag           `json:"tag"`
	Duration time.Duration `json:"duration"`
	Degraded bool          `json:"degraded,omitempty"`
}

// IncidentEvent is emitted for every classification other than the normal path.
type IncidentEvent struct {
	EventBase
	Incident Incident `json:"incident"`
	Snapshot Snapshot `json:"snapshot"`
}

// StageEvent is emitted when the current stage changes or a proposal is dropped.
type StageEvent struct {
	EventBase
	From   Stage  `json:"from"`
	To     Stage  `json:"to"`
	Reason string `json:"reason"`
}

// CallEvent describes one responder invocation or one external call attempt.
type CallEvent struct {
	EventBase
	Name     string        `json:"name"`
	Attempt  int           `json:"attempt,omitempty"`
	Duration time.Duration `json:"duration"`
	IsError  bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnTurn          func(context.Context, *TurnEvent)
	OnIncident      func(context.Context, *IncidentEvent)
	OnStageChange   func(context.Context, *StageEvent)
	OnResponderCall func(context.Context, *CallEvent)
	OnExternalCall  func(context.Context, *CallEvent)
}

// Merge combines two hook sets; both callbacks run, h first.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTurn:          chain(h.OnTurn, other.OnTurn),
		OnIncident:      chain(h.OnIncident, other.OnIncident),
		OnStageChange:   chain(h.OnStageChange, other.OnStageChange),
		OnResponderCall: chain(h.OnResponderCall, other.OnResponderCall),
		OnExternalCall:  chain(h.OnExternalCall, other.OnExternalCall),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
