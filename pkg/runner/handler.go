package runner

import (
	"context"

	"github.com/aretw0/coach/pkg/domain"
)

// Reply is one assistant message shown to the learner.
type Reply struct {
	SessionID string
	Stage     domain.Stage
	Text      string
	// Changed is true when the turn moved the session to Stage.
	Changed bool
}

// IOHandler defines the strategy for interacting with the learner.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents an assistant reply.
	Output(ctx context.Context, r Reply) error

	// Input reads the next learner line. It returns io.EOF when the input is
	// exhausted and ctx.Err() when ctx is done first.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message (stage changes, errors, status).
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms reply text before it is written.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
