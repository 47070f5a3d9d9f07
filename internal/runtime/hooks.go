package runtime

import (
	"context"
	"time"

	"github.com/aretw0/coach/pkg/domain"
)

func (e *Engine) base(s *domain.Session, typ domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: e.clock(),
		Type:      typ,
		SessionID: s.ID,
		Stage:     s.CurrentStage,
	}
}

func (e *Engine) emitTurn(ctx context.Context, s *domain.Session, tag domain.Tag, d time.Duration, degraded bool) {
	if e.hooks.OnTurn == nil {
		return
	}
	e.hooks.OnTurn(ctx, &domain.TurnEvent{
		EventBase: e.base(s, domain.EventTurn),
		Tag:       tag,
		Duration:  d,
		Degraded:  degraded,
	})
}

func (e *Engine) emitIncident(ctx context.Context, s *domain.Session, inc domain.Incident, snap domain.Snapshot) {
	if e.hooks.OnIncident == nil {
		return
	}
	e.hooks.OnIncident(ctx, &domain.IncidentEvent{
		EventBase: e.base(s, domain.EventIncident),
		Incident:  inc,
		Snapshot:  snap,
	})
}

func (e *Engine) emitStage(ctx context.Context, s *domain.Session, typ domain.EventType, t Transition) {
	if e.hooks.OnStageChange == nil {
		return
	}
	e.hooks.OnStageChange(ctx, &domain.StageEvent{
		EventBase: e.base(s, typ),
		From:      t.From,
		To:        t.To,
		Reason:    t.Reason,
	})
}

func (e *Engine) emitResponderCall(ctx context.Context, s *domain.Session, name string, d time.Duration, isErr bool) {
	if e.hooks.OnResponderCall == nil {
		return
	}
	e.hooks.OnResponderCall(ctx, &domain.CallEvent{
		EventBase: e.base(s, domain.EventResponderCall),
		Name:      name,
		Duration:  d,
		IsError:   isErr,
	})
}

func (e *Engine) emitExternalCall(ctx context.Context, s *domain.Session, attempt int, d time.Duration, isErr bool) {
	if e.hooks.OnExternalCall == nil {
		return
	}
	e.hooks.OnExternalCall(ctx, &domain.CallEvent{
		EventBase: e.base(s, domain.EventExternalCall),
		Name:      "generate",
		Attempt:   attempt,
		Duration:  d,
		IsError:   isErr,
	})
}
