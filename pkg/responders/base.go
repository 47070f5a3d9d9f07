package responders

import (
	"context"
	"slices"
	"strings"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
)

// historyWindow is how many recent turns accompany a generation request.
const historyWindow = 6

type base struct {
	name   string
	stages []domain.Stage
}

func (b base) Name() string { return b.name }

func (b base) Stages() []domain.Stage { return slices.Clone(b.stages) }

func (b base) ShouldActivate(s *domain.Session) bool {
	return slices.Contains(b.stages, s.CurrentStage)
}

// say asks gen to phrase draft for the learner.
func say(ctx context.Context, gen ports.Generator, s *domain.Session, instruction, draft string) (string, error) {
	start := max(len(s.Conversation)-historyWindow, 0)
	return gen.Generate(ctx, ports.Prompt{
		Stage:       s.CurrentStage,
		Instruction: instruction,
		Draft:       draft,
		History:     slices.Clone(s.Conversation[start:]),
	})
}

// Default returns one responder per stage, in dialogue order.
func Default() []ports.Responder {
	return []ports.Responder{
		NewRecognizer(),
		NewThoughtCoach(),
		NewComplexityCoach(),
		NewCodeReviewer(),
		NewEdgeCaseReviewer(),
		NewFollowUp(),
		NewSummary(),
	}
}

func lower(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
