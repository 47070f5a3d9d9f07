package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/coach/internal/logging"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
)

// ErrEmptyProblem is returned by Start for a blank problem statement.
var ErrEmptyProblem = errors.New("problem statement is empty")

// ErrSessionExists is returned by Start when the requested id is taken.
var ErrSessionExists = errors.New("session already exists")

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// Processor handles one user turn against a session, committing the result
// into s. *runtime.Engine satisfies it.
type Processor interface {
	ProcessUserInput(ctx context.Context, s *domain.Session, text string) (string, error)
}

// Manager orchestrates store-backed sessions. Every operation on a session id
// runs under a local keyed lock and, when configured, a distributed lock, so
// that load, process and save form one critical section across replicas.
type Manager struct {
	store     ports.SessionStore
	processor Processor

	locks   *Locks
	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager persisting to store and running turns through p.
func NewManager(store ports.SessionStore, p Processor, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		processor: p,
		locks:     NewLocks(),
		lockTTL:   DefaultLockTTL,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartOption customizes a new session.
type StartOption func(*domain.Session)

// WithID uses id instead of a generated one.
func WithID(id string) StartOption {
	return func(s *domain.Session) {
		if id != "" {
			s.ID = id
		}
	}
}

// WithMetadata attaches problem metadata such as difficulty or tags.
func WithMetadata(md map[string]any) StartOption {
	return func(s *domain.Session) {
		for k, v := range md {
			s.ProblemMetadata[k] = v
		}
	}
}

// WithSkillLevel records the learner's estimated skill.
func WithSkillLevel(level domain.SkillLevel) StartOption {
	return func(s *domain.Session) {
		if level != domain.SkillUnknown {
			s.Profile = &domain.Profile{SkillLevel: level}
		}
	}
}

// Start creates and persists a new session for problem.
func (m *Manager) Start(ctx context.Context, problem string, opts ...StartOption) (*domain.Session, error) {
	if strings.TrimSpace(problem) == "" {
		return nil, ErrEmptyProblem
	}
	s := domain.NewSession(problem, nil)
	for _, opt := range opts {
		opt(s)
	}

	err := m.WithLock(ctx, s.ID, func(ctx context.Context) error {
		_, err := m.store.Load(ctx, s.ID)
		if err == nil {
			return fmt.Errorf("%w: %s", ErrSessionExists, s.ID)
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}
		if err := m.store.Save(ctx, s.ID, s); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "session started", "session_id", s.ID)
	return s, nil
}

// TurnOutcome is the result of Manager.Turn.
type TurnOutcome struct {
	Reply   string              `json:"reply"`
	Session *domain.Session     `json:"session"`
	Diff    *domain.SessionDiff `json:"diff"`
}

// Turn loads the session, processes text and saves the result.
// The session is only saved when processing succeeds.
func (m *Manager) Turn(ctx context.Context, sessionID, text string) (*TurnOutcome, error) {
	if m.processor == nil {
		return nil, errors.New("session manager has no processor")
	}
	var out *TurnOutcome
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		s, err := m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		before := s.Clone()

		reply, err := m.processor.ProcessUserInput(ctx, s, text)
		if err != nil {
			return fmt.Errorf("failed to process turn: %w", err)
		}
		if err := m.store.Save(ctx, sessionID, s); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		out = &TurnOutcome{Reply: reply, Session: s, Diff: domain.Diff(before, s)}
		return nil
	})
	return out, err
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, sessionID)
		return err
	})
	return s, err
}

// Save persists the session.
func (m *Manager) Save(ctx context.Context, s *domain.Session) error {
	if s == nil {
		return domain.ErrNilSession
	}
	return m.WithLock(ctx, s.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, s.ID, s)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// WithLock executes fn while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	unlock := m.locks.Lock(sessionID)
	defer unlock()

	if m.locker != nil {
		release, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
