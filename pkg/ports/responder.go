package ports

import (
	"context"

	"github.com/aretw0/coach/pkg/domain"
)

// Responder is a capability that produces the reply for a turn and proposes
// session changes. The engine routes every normal-path turn to exactly one.
type Responder interface {
	// ShouldActivate reports whether this responder handles the session's
	// current stage. At most one registered responder may return true.
	ShouldActivate(s *domain.Session) bool

	// Process handles the latest user turn. The session is a private copy;
	// changes must be proposed through the returned Output.
	// gen is supervised by the engine (timeout and retry are applied there).
	Process(ctx context.Context, s *domain.Session, gen Generator) (domain.Output, error)
}

// ContextValidator is implemented by responders that need to check the
// session before Process runs. Responders without it are always valid.
type ContextValidator interface {
	ValidateContext(s *domain.Session) bool
}

// Describer exposes a human-readable description of a responder.
type Describer interface {
	Name() string
	Stages() []domain.Stage
}

// Requirer declares the derived fields a responder needs before it can run.
// The engine uses it to decide between reconstruction, re-prompt and reset.
type Requirer interface {
	RequiredFields(stage domain.Stage) []string
}
