package ports

import (
	"context"
	"errors"

	"github.com/aretw0/coach/pkg/domain"
)

// ErrGenerationFailed marks a fault of the generation backend: timeout,
// rate limit or malformed response. All of them are retried the same way.
var ErrGenerationFailed = errors.New("generation failed")

// Prompt is the structured request sent to the generation backend.
type Prompt struct {
	Stage domain.Stage `json:"stage"`
	// System carries the persona and ground rules.
	System string `json:"system,omitempty"`
	// Instruction is what the backend should produce for this turn.
	Instruction string `json:"instruction"`
	// Draft is a deterministic reply the backend may rephrase. Offline
	// generators return it unchanged.
	Draft   string        `json:"draft,omitempty"`
	History []domain.Turn `json:"history,omitempty"`
}

// Generator produces human-readable coaching text.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, p Prompt) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, p Prompt) (string, error) {
	return f(ctx, p)
}
