package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/coach/pkg/domain"
)

// LogHooks returns lifecycle hooks that write one record per event.
// Incidents log at warn, external call failures at warn, the rest at debug.
// Transcript text is never logged.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			logger.DebugContext(ctx, "turn",
				"session_id", e.SessionID,
				"stage", e.Stage.String(),
				"tag", e.Tag,
				"duration", e.Duration,
				"degraded", e.Degraded,
			)
		},
		OnIncident: func(ctx context.Context, e *domain.IncidentEvent) {
			logger.WarnContext(ctx, "incident",
				"session_id", e.SessionID,
				"stage", e.Stage.String(),
				"tag", e.Incident.Tag,
				"severity", e.Incident.Severity,
				"detail", e.Incident.Detail,
			)
		},
		OnStageChange: func(ctx context.Context, e *domain.StageEvent) {
			logger.InfoContext(ctx, string(e.Type),
				"session_id", e.SessionID,
				"from", e.From.String(),
				"to", e.To.String(),
				"reason", e.Reason,
			)
		},
		OnResponderCall: func(ctx context.Context, e *domain.CallEvent) {
			logger.DebugContext(ctx, "responder_call",
				"session_id", e.SessionID,
				"responder", e.Name,
				"duration", e.Duration,
				"is_error", e.IsError,
			)
		},
		OnExternalCall: func(ctx context.Context, e *domain.CallEvent) {
			level := slog.LevelDebug
			if e.IsError {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "external_call",
				"session_id", e.SessionID,
				"attempt", e.Attempt,
				"duration", e.Duration,
				"is_error", e.IsError,
			)
		},
	}
}
