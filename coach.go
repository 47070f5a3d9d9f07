package coach

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/coach/internal/logging"
	"github.com/aretw0/coach/internal/runtime"
	"github.com/aretw0/coach/pkg/adapters/memory"
	"github.com/aretw0/coach/pkg/adapters/offline"
	"github.com/aretw0/coach/pkg/classifier"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
	"github.com/aretw0/coach/pkg/responders"
	"github.com/aretw0/coach/pkg/session"
)

// TurnResult is the detailed outcome of one turn.
type TurnResult = runtime.TurnResult

// ResponderInfo describes a registered responder.
type ResponderInfo = runtime.ResponderInfo

// RetryPolicy configures retries of the generation backend.
type RetryPolicy = runtime.RetryPolicy

// Engine is the high-level entry point of the library. It wraps the runtime
// core and a store-backed session manager.
type Engine struct {
	runtime *runtime.Engine
	manager *session.Manager

	generator   ports.Generator
	responders  []ports.Responder
	store       ports.SessionStore
	locker      ports.DistributedLocker
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	runtimeOpts []runtime.EngineOption
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithGenerator sets the text generation backend. The default is the offline
// generator, which returns each responder's draft unchanged.
func WithGenerator(gen ports.Generator) Option {
	return func(e *Engine) {
		e.generator = gen
	}
}

// WithResponders replaces the reference responder set.
func WithResponders(rs ...ports.Responder) Option {
	return func(e *Engine) {
		e.responders = rs
	}
}

// WithStore sets where sessions are persisted. The default is in memory.
func WithStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker coordinates turns across replicas sharing a store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithClock(clock))
	}
}

// WithPolicy sets the input classifier thresholds and hooks.
func WithPolicy(p classifier.Policy) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithPolicy(p))
	}
}

// WithRetryPolicy configures retries of the generation backend.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithRetryPolicy(p))
	}
}

// WithSystemPrompt sets the persona sent with every generation request.
func WithSystemPrompt(system string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithSystemPrompt(system))
	}
}

// WithEdgeCasesComplete overrides when the Edge Case Check stage may be left.
func WithEdgeCasesComplete(fn func(*domain.Session, domain.Output) bool) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithEdgeCasesComplete(fn))
	}
}

// WithReconstructor replaces how missing derivable fields are rebuilt when a
// responder rejects the session.
func WithReconstructor(fn func(*domain.Session) (domain.DerivedFields, bool)) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithReconstructor(fn))
	}
}

// WithHelpThreshold sets how many invalid inputs in a row enter help mode.
func WithHelpThreshold(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithHelpThreshold(n))
	}
}

// New initializes a coaching Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.generator == nil {
		eng.generator = offline.New()
	}
	if eng.responders == nil {
		eng.responders = responders.Default()
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)
	eng.runtime = runtime.NewEngine(eng.generator, eng.responders, runtimeOpts...)

	managerOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(eng.locker))
	}
	eng.manager = session.NewManager(eng.store, eng.runtime, managerOpts...)
	return eng
}

// ProcessUserInput handles one user turn on an in-memory session and returns
// the reply. It only fails for a nil session.
func (e *Engine) ProcessUserInput(ctx context.Context, s *domain.Session, text string) (string, error) {
	return e.runtime.ProcessUserInput(ctx, s, text)
}

// ProcessTurn is ProcessUserInput with the full outcome.
func (e *Engine) ProcessTurn(ctx context.Context, s *domain.Session, text string) (TurnResult, error) {
	return e.runtime.ProcessTurn(ctx, s, text)
}

// Start creates and persists a new session.
func (e *Engine) Start(ctx context.Context, problem string, opts ...session.StartOption) (*domain.Session, error) {
	return e.manager.Start(ctx, problem, opts...)
}

// Turn runs one turn on a stored session and saves the result.
func (e *Engine) Turn(ctx context.Context, sessionID, text string) (*session.TurnOutcome, error) {
	return e.manager.Turn(ctx, sessionID, text)
}

// Load returns a stored session.
func (e *Engine) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	return e.manager.Load(ctx, sessionID)
}

// Delete removes a stored session.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	return e.manager.Delete(ctx, sessionID)
}

// List returns the ids of stored sessions.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.manager.List(ctx)
}

// Responders lists the registered responders in routing order.
func (e *Engine) Responders() []ResponderInfo {
	return e.runtime.Responders()
}

// Manager returns the session manager backing Start and Turn.
func (e *Engine) Manager() *session.Manager {
	return e.manager
}

// OpeningPrompt is the first assistant message shown for a new session.
func OpeningPrompt(s *domain.Session) string {
	return runtime.OpeningPrompt(s)
}

// DefaultRetryPolicy returns 3 retries with 1s, 2s and 4s delays and a 30s
// per-attempt timeout.
func DefaultRetryPolicy() RetryPolicy {
	return runtime.DefaultRetryPolicy()
}
