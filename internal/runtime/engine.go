package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/coach/internal/logging"
	"github.com/aretw0/coach/pkg/classifier"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
	"github.com/aretw0/coach/pkg/session"
)

// Engine is the session state machine and exception-escalation core.
// It is safe for concurrent use; turns on the same session are serialized.
type Engine struct {
	responders    []ports.Responder
	generator     ports.Generator
	classifier    *classifier.Classifier
	protocol      Protocol
	retry         RetryPolicy
	requirements  map[domain.Stage][]string
	reconstruct   ReconstructFunc
	escalateAfter int
	system        string

	hooks  domain.LifecycleHooks
	logger *slog.Logger
	clock  func() time.Time
	locks  *session.Locks
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger. Incidents are logged here.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithClock replaces time.Now for dwell time and turn timestamps.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithPolicy configures the input classifier.
func WithPolicy(p classifier.Policy) EngineOption {
	return func(e *Engine) {
		e.classifier = classifier.New(p)
	}
}

// WithRetryPolicy configures supervision of external generation calls.
func WithRetryPolicy(p RetryPolicy) EngineOption {
	return func(e *Engine) {
		e.retry = p
	}
}

// WithEdgeCasesComplete replaces the readiness predicate for leaving the
// Edge Case Check stage.
func WithEdgeCasesComplete(fn EdgeCasesFunc) EngineOption {
	return func(e *Engine) {
		e.protocol.Gate.EdgeCasesComplete = fn
	}
}

// WithReconstructor replaces the derivation of missing derivable fields.
func WithReconstructor(fn ReconstructFunc) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.reconstruct = fn
		}
	}
}

// WithRequirements replaces the per-stage required field table used for
// responders that do not implement ports.Requirer.
func WithRequirements(req map[domain.Stage][]string) EngineOption {
	return func(e *Engine) {
		e.requirements = req
	}
}

// WithHelpThreshold sets how many consecutive invalid inputs enter help mode.
func WithHelpThreshold(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.escalateAfter = n
		}
	}
}

// WithSystemPrompt sets the persona sent with every generation request.
func WithSystemPrompt(system string) EngineOption {
	return func(e *Engine) {
		e.system = system
	}
}

// NewEngine creates an engine routing turns to responders. gen may be nil, in
// which case every generation request fails and static replies are used.
func NewEngine(gen ports.Generator, responders []ports.Responder, opts ...EngineOption) *Engine {
	e := &Engine{
		responders:    responders,
		generator:     gen,
		classifier:    classifier.New(classifier.DefaultPolicy()),
		protocol:      Protocol{Gate: Gate{EdgeCasesComplete: ResponderDeclared}},
		retry:         DefaultRetryPolicy(),
		requirements:  DefaultRequirements(),
		reconstruct:   ReconstructFromProblem,
		escalateAfter: 3,
		logger:        logging.NewNop(),
		clock:         time.Now,
		locks:         session.NewLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.generator == nil {
		e.generator = ports.GeneratorFunc(func(context.Context, ports.Prompt) (string, error) {
			return "", fmt.Errorf("%w: no generation backend configured", ports.ErrGenerationFailed)
		})
	}
	return e
}

// TurnResult is the detailed outcome of one turn.
type TurnResult struct {
	Reply string     `json:"reply"`
	Tag   domain.Tag `json:"tag"`
	// Output is the effective output: the responder's, or the one the engine
	// substituted (fallback, behavioral reply, reset).
	Output   domain.Output `json:"output"`
	Stage    domain.Stage  `json:"stage"`
	Changed  bool          `json:"changed"`
	Degraded bool          `json:"degraded,omitempty"`
}

// ProcessUserInput handles one user turn and returns the reply text. It only
// fails for a nil session; every other path produces a coherent reply and
// commits the session atomically.
func (e *Engine) ProcessUserInput(ctx context.Context, s *domain.Session, text string) (string, error) {
	res, err := e.ProcessTurn(ctx, s, text)
	if err != nil {
		return "", err
	}
	return res.Reply, nil
}

// ProcessTurn is ProcessUserInput with the full outcome.
func (e *Engine) ProcessTurn(ctx context.Context, s *domain.Session, text string) (TurnResult, error) {
	if s == nil {
		return TurnResult{}, domain.ErrNilSession
	}
	unlock := e.locks.Lock(s.ID)
	defer unlock()

	start := e.clock()
	p := e.safePlan(ctx, s, text, start)

	u := p.update
	u.UserText = text
	u.Reply = p.reply
	u.At = start
	u.RepliedAt = e.clock()

	next, report := e.protocol.Apply(s, u)
	e.handleReport(ctx, s, report)
	*s = *next

	if p.output.Metadata == nil {
		p.output = domain.Succeed(p.reply, u.Force, nil)
	}
	e.emitTurn(ctx, s, p.tag, e.clock().Sub(start), p.degraded)

	return TurnResult{
		Reply:    p.reply,
		Tag:      p.tag,
		Output:   p.output,
		Stage:    s.CurrentStage,
		Changed:  report.Changed != nil,
		Degraded: p.degraded,
	}, nil
}

// turnPlan is what a turn decided before the update protocol runs.
type turnPlan struct {
	tag      domain.Tag
	reply    string
	output   domain.Output
	update   Update
	degraded bool
}

// safePlan contains any fault raised while planning. The session is not
// reset; the user gets a neutral continuation.
func (e *Engine) safePlan(ctx context.Context, s *domain.Session, text string, now time.Time) (p turnPlan) {
	defer func() {
		if r := recover(); r != nil {
			e.incident(ctx, s, domain.Incident{
				Tag:      domain.TagUnexpectedFailure,
				Severity: domain.SeverityRecoverable,
				Detail:   fmt.Sprintf("panic: %v", r),
			})
			p = turnPlan{tag: domain.TagUnexpectedFailure, reply: neutralReply}
		}
	}()
	return e.plan(ctx, s, text, now)
}

func (e *Engine) plan(ctx context.Context, s *domain.Session, text string, now time.Time) turnPlan {
	if err := s.CheckInvariants(); err != nil {
		var inv *domain.InvariantError
		if errors.As(err, &inv) && inv.Rule == "conversation" {
			e.incident(ctx, s, domain.Incident{Tag: domain.TagStateInconsistency, Severity: domain.SeverityRecoverable, Detail: err.Error()})
		} else {
			return e.reset(ctx, s, err.Error())
		}
	}

	tag := e.classifier.Classify(text, s, now)
	if tag == domain.TagNormal {
		e.logger.DebugContext(ctx, "classification",
			"session_id", s.ID,
			"stage", s.CurrentStage.String(),
			"tag", string(tag),
		)
		return e.supervise(ctx, s, text, now)
	}

	e.incident(ctx, s, domain.Incident{Tag: tag, Severity: domain.SeverityRecoverable, Detail: "user input"})
	return e.handleBehavior(ctx, s, tag, now)
}

// reset forces the session back to the first stage and clears derived fields.
func (e *Engine) reset(ctx context.Context, s *domain.Session, detail string) turnPlan {
	e.incident(ctx, s, domain.Incident{Tag: domain.TagStateInconsistency, Severity: domain.SeverityCritical, Detail: detail})
	first := domain.StageProblemClarification
	reply := resetMessage()
	return turnPlan{
		tag:   domain.TagStateInconsistency,
		reply: reply,
		output: domain.Succeed(reply, &first, nil).
			WithMeta("reset", true),
		update: Update{
			Force:       &first,
			ForceReason: "forced reset",
			ClearFields: true,
			Effects: []Effect{func(s *domain.Session) {
				s.Counters.ConsecutiveInvalid = 0
				s.Counters.AnswerRequests = 0
				s.Flags.HelpMode = false
			}},
		},
	}
}

// incident logs one classification with the state snapshot and fires the hook.
func (e *Engine) incident(ctx context.Context, s *domain.Session, inc domain.Incident) {
	level := slog.LevelInfo
	switch inc.Severity {
	case domain.SeverityCritical:
		level = slog.LevelError
	case domain.SeverityRecoverable:
		level = slog.LevelWarn
	}

	snap := s.Snapshot()
	e.logger.Log(ctx, level, "classification",
		"session_id", s.ID,
		"stage", s.CurrentStage.String(),
		"tag", string(inc.Tag),
		"severity", string(inc.Severity),
		"detail", inc.Detail,
		slog.Group("snapshot",
			"stage", snap.Stage.String(),
			"turns", snap.Turns,
			"has_pseudocode", snap.HasPseudocode,
		),
	)
	e.emitIncident(ctx, s, inc, snap)
}

func (e *Engine) handleReport(ctx context.Context, s *domain.Session, r Report) {
	for _, err := range r.Rejected {
		e.incident(ctx, s, domain.Incident{
			Tag:      domain.TagStateInconsistency,
			Severity: domain.SeverityRecoverable,
			Detail:   "context update rejected: " + err.Error(),
		})
	}
	if r.Denied != nil {
		e.logger.InfoContext(ctx, "stage proposal dropped",
			"session_id", s.ID,
			"stage", r.Denied.From.String(),
			"proposed", r.Denied.To.String(),
			"reason", r.Denied.Reason,
		)
		e.emitStage(ctx, s, domain.EventProposalDenied, *r.Denied)
	}
	if r.Changed != nil {
		e.logger.InfoContext(ctx, "stage changed",
			"session_id", s.ID,
			"from", r.Changed.From.String(),
			"to", r.Changed.To.String(),
			"reason", r.Changed.Reason,
		)
		e.emitStage(ctx, s, domain.EventStageChange, *r.Changed)
	}
}

// ResponderInfo describes a registered responder.
type ResponderInfo struct {
	Name   string         `json:"name"`
	Stages []domain.Stage `json:"stages,omitempty"`
}

// Responders lists the registered responders in routing order.
func (e *Engine) Responders() []ResponderInfo {
	out := make([]ResponderInfo, 0, len(e.responders))
	for _, r := range e.responders {
		info := ResponderInfo{Name: responderName(r)}
		if d, ok := r.(ports.Describer); ok {
			info.Stages = d.Stages()
		}
		out = append(out, info)
	}
	return out
}
