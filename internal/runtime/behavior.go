package runtime

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
)

// handleBehavior answers user-caused classifications before any responder
// is routed. None of them fails the turn.
func (e *Engine) handleBehavior(ctx context.Context, s *domain.Session, tag domain.Tag, now time.Time) turnPlan {
	switch tag {
	case domain.TagEmptyInput, domain.TagTooShortInput, domain.TagRepeatedInput, domain.TagOffTopicInput:
		return e.invalidInput(ctx, s, tag)
	case domain.TagSkipRequest:
		return e.skip(ctx, s)
	case domain.TagFrustrationSignal:
		return e.frustration(ctx, s, now)
	case domain.TagOverRelianceSignal:
		return e.overReliance(s)
	case domain.TagStagnation:
		return e.stagnation(s, now)
	case domain.TagNormal, domain.TagExternalCallFailure, domain.TagStateInconsistency, domain.TagUnexpectedFailure:
		// Not produced by the classifier.
	}
	return turnPlan{tag: tag, reply: neutralReply}
}

func (e *Engine) invalidInput(ctx context.Context, s *domain.Session, tag domain.Tag) turnPlan {
	count := s.Counters.ConsecutiveInvalid + 1
	if s.Flags.HelpMode || count >= e.escalateAfter {
		if !s.Flags.HelpMode {
			e.logger.WarnContext(ctx, "help mode triggered",
				"session_id", s.ID,
				"stage", s.CurrentStage.String(),
				"consecutive_invalid", count,
			)
		}
		reply := helpReply(s.CurrentStage)
		return turnPlan{
			tag:    tag,
			reply:  reply,
			output: domain.Succeed(reply, nil, nil).WithMeta(domain.MetaHelpMode, true),
			update: Update{Effects: []Effect{func(s *domain.Session) {
				s.Flags.HelpMode = true
				s.Counters.ConsecutiveInvalid = 0
			}}},
		}
	}

	return turnPlan{
		tag:   tag,
		reply: invalidReply(tag, s.CurrentStage),
		update: Update{Effects: []Effect{func(s *domain.Session) {
			s.Counters.ConsecutiveInvalid = count
		}}},
	}
}

func (e *Engine) skip(ctx context.Context, s *domain.Session) turnPlan {
	stage := s.CurrentStage
	requested := func(s *domain.Session) { s.Flags.SkipRequested = true }

	if stage.IsCritical() {
		return turnPlan{
			tag:   domain.TagSkipRequest,
			reply: skipRefusal(stage),
			update: Update{Effects: []Effect{requested, func(s *domain.Session) {
				s.Counters.SkipRefusals++
			}}},
		}
	}

	next, ok := stage.Next()
	if !ok {
		return turnPlan{
			tag:    domain.TagSkipRequest,
			reply:  skipAtEnd,
			update: Update{Effects: []Effect{requested}},
		}
	}

	e.logger.InfoContext(ctx, "skip accepted",
		"session_id", s.ID,
		"stage", stage.String(),
		"next", next.String(),
	)
	reply := skipAccepted(stage, next)
	return turnPlan{
		tag:    domain.TagSkipRequest,
		reply:  reply,
		output: domain.Succeed(reply, &next, nil),
		update: Update{
			Force:       &next,
			ForceReason: "skip accepted",
			Effects: []Effect{requested, func(s *domain.Session) {
				s.SkippedStages = append(s.SkippedStages, stage)
			}},
		},
	}
}

func (e *Engine) frustration(ctx context.Context, s *domain.Session, now time.Time) turnPlan {
	level := HintLevelFor(s.SkillLevel())
	hint, stats := e.elevatedHint(ctx, s, level)
	_, attempts, degraded := stats.snapshot()

	reply := encouragement(s) + "\n\nHere's a hint: " + hint
	return turnPlan{
		tag:      domain.TagFrustrationSignal,
		reply:    reply,
		degraded: degraded,
		output: domain.Succeed(reply, nil, nil).
			WithMeta(domain.MetaHintLevel, string(level)).
			WithMeta(domain.MetaDegraded, degraded),
		update: Update{Effects: []Effect{func(s *domain.Session) {
			s.Flags.FrustrationDetected = true
			s.Flags.Intervened = true
			s.InterventionAt = now
			s.Counters.ExternalRetries = max(attempts-1, 0)
			if degraded {
				s.Flags.Degraded = true
			}
		}}},
	}
}

// elevatedHint asks the backend for a hint on the engine's behalf and falls
// back to the static ladder.
func (e *Engine) elevatedHint(ctx context.Context, s *domain.Session, level HintLevel) (string, *callStats) {
	stats := &callStats{}
	static := staticHint(s.CurrentStage, level)
	gen := e.supervised(s, stats)

	text, err := gen.Generate(ctx, ports.Prompt{
		Stage: s.CurrentStage,
		Instruction: fmt.Sprintf("The learner is frustrated during %s. Give one %s hint that does not reveal the solution.",
			s.CurrentStage.Title(), level),
		Draft:   static,
		History: recentHistory(s, 6),
	})
	if err != nil {
		e.incident(ctx, s, domain.Incident{
			Tag:      domain.TagExternalCallFailure,
			Severity: domain.SeverityRecoverable,
			Detail:   err.Error(),
		})
		return static, stats
	}
	return text, stats
}

func (e *Engine) overReliance(s *domain.Session) turnPlan {
	return turnPlan{
		tag:   domain.TagOverRelianceSignal,
		reply: overRelianceReply(s.CurrentStage),
		update: Update{Effects: []Effect{func(s *domain.Session) {
			s.Counters.AnswerRequests++
			s.Counters.TotalAnswerRequests++
		}}},
	}
}

func (e *Engine) stagnation(s *domain.Session, now time.Time) turnPlan {
	reply := stagnationReply(s.CurrentStage)
	return turnPlan{
		tag:    domain.TagStagnation,
		reply:  reply,
		output: domain.Succeed(reply, nil, nil).WithMeta(domain.MetaHintLevel, string(HintDetailed)),
		update: Update{Effects: []Effect{func(s *domain.Session) {
			s.Flags.Intervened = true
			s.InterventionAt = now
		}}},
	}
}

func recentHistory(s *domain.Session, n int) []domain.Turn {
	start := max(len(s.Conversation)-n, 0)
	return slices.Clone(s.Conversation[start:])
}
