package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/coach"
	"github.com/aretw0/coach/internal/logging"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/session"
)

// Service is the part of *coach.Engine the runner drives.
type Service interface {
	Start(ctx context.Context, problem string, opts ...session.StartOption) (*domain.Session, error)
	Turn(ctx context.Context, sessionID, text string) (*session.TurnOutcome, error)
	Load(ctx context.Context, sessionID string) (*domain.Session, error)
}

// ErrNoProblem is returned when a new session is needed but no problem was given.
var ErrNoProblem = errors.New("no problem statement to start a session with")

// Runner handles the interactive loop of one coaching session.
type Runner struct {
	service   Service
	handler   IOHandler
	logger    *slog.Logger
	sessionID string
	problem   string
	startOpts []session.StartOption
}

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithHandler configures the IOHandler. Defaults to a TextHandler on stdio.
func WithHandler(h IOHandler) Option {
	return func(r *Runner) {
		r.handler = h
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithSessionID resumes the session with this id, or starts it under this id
// when it does not exist yet.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.sessionID = id
	}
}

// WithProblem sets the problem statement for a new session.
func WithProblem(problem string) Option {
	return func(r *Runner) {
		r.problem = problem
	}
}

// WithStartOptions passes options to Service.Start for a new session.
func WithStartOptions(opts ...session.StartOption) Option {
	return func(r *Runner) {
		r.startOpts = append(r.startOpts, opts...)
	}
}

// New creates a Runner over svc.
func New(svc Service, opts ...Option) *Runner {
	r := &Runner{
		service: svc,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.handler == nil {
		r.handler = NewTextHandler(nil, nil)
	}
	return r
}

// Run resumes or starts the session and loops until the input is exhausted,
// the learner types "exit" or "quit", or ctx is done. Every completed turn is
// already persisted by the service, so leaving the loop loses nothing.
func (r *Runner) Run(ctx context.Context) error {
	s, resumed, err := r.loadOrStart(ctx)
	if err != nil {
		return err
	}
	if err := r.greet(ctx, s, resumed); err != nil {
		return err
	}

	stage := s.CurrentStage
	for {
		text, err := r.handler.Input(ctx)
		switch {
		case errors.Is(err, io.EOF), ctx.Err() != nil:
			r.logger.Debug("runner stopped", "session_id", s.ID, "err", err)
			return nil
		case errors.Is(err, ErrInputTooLarge), errors.Is(err, ErrInvalidUTF8):
			if err := r.handler.SystemOutput(ctx, "Error: "+err.Error()); err != nil {
				return err
			}
			continue
		case err != nil:
			return fmt.Errorf("input error: %w", err)
		}

		if isExit(text) {
			return r.handler.SystemOutput(ctx, fmt.Sprintf("Session %s saved. Bye!", s.ID))
		}

		out, err := r.service.Turn(ctx, s.ID, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("turn failed", "session_id", s.ID, "err", err)
			if err := r.handler.SystemOutput(ctx, "Error: "+err.Error()); err != nil {
				return err
			}
			continue
		}

		next := out.Session.CurrentStage
		if err := r.handler.Output(ctx, Reply{
			SessionID: s.ID,
			Stage:     next,
			Text:      out.Reply,
			Changed:   next != stage,
		}); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		stage = next
		s = out.Session
	}
}

func (r *Runner) greet(ctx context.Context, s *domain.Session, resumed bool) error {
	text := coach.OpeningPrompt(s)
	if resumed {
		if err := r.handler.SystemOutput(ctx, fmt.Sprintf("Resuming session %s at %s", s.ID, s.CurrentStage.Title())); err != nil {
			return err
		}
		if last := lastAssistantText(s); last != "" {
			text = last
		}
	}
	return r.handler.Output(ctx, Reply{SessionID: s.ID, Stage: s.CurrentStage, Text: text})
}

// loadOrStart returns the session named by WithSessionID when it exists, and
// starts a new one otherwise.
func (r *Runner) loadOrStart(ctx context.Context) (*domain.Session, bool, error) {
	if r.sessionID != "" {
		s, err := r.service.Load(ctx, r.sessionID)
		if err == nil {
			return s, true, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, false, fmt.Errorf("failed to load session %s: %w", r.sessionID, err)
		}
	}

	if strings.TrimSpace(r.problem) == "" {
		return nil, false, ErrNoProblem
	}
	opts := r.startOpts
	if r.sessionID != "" {
		opts = append([]session.StartOption{session.WithID(r.sessionID)}, opts...)
	}
	s, err := r.service.Start(ctx, r.problem, opts...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to start session: %w", err)
	}
	return s, false, nil
}

func lastAssistantText(s *domain.Session) string {
	for i := len(s.Conversation) - 1; i >= 0; i-- {
		if s.Conversation[i].Role == domain.RoleAssistant {
			return s.Conversation[i].Text
		}
	}
	return ""
}

func isExit(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "exit", "quit":
		return true
	}
	return false
}
