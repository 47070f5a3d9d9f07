package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/coach"
	"github.com/aretw0/coach/internal/logging"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/runner"
	"github.com/aretw0/coach/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service is the session API the handlers drive. *coach.Engine satisfies it.
type Service interface {
	Start(ctx context.Context, problem string, opts ...session.StartOption) (*domain.Session, error)
	Turn(ctx context.Context, sessionID, text string) (*session.TurnOutcome, error)
	Load(ctx context.Context, sessionID string) (*domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
	Responders() []coach.ResponderInfo
}

// Server holds the HTTP handlers.
type Server struct {
	Service Service
	Streams *StreamManager

	logger   *slog.Logger
	validate *validator.Validate
	gatherer prometheus.Gatherer
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics exposes g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates the HTTP handler for svc.
func NewHandler(svc Service, opts ...Option) http.Handler {
	s := &Server{
		Service:  svc,
		logger:   logging.NewNop(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/responders", s.GetResponders)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/turns", s.PostTurn)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Problem    string         `json:"problem" validate:"required,max=8192"`
	SkillLevel string         `json:"skill_level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// CreateSessionResponse is returned by POST /sessions.
type CreateSessionResponse struct {
	Session *domain.Session `json:"session"`
	Opening string          `json:"opening"`
}

// TurnRequest is the body of POST /sessions/{id}/turns.
type TurnRequest struct {
	Text string `json:"text"`
}

// TurnResponse is returned by POST /sessions/{id}/turns.
type TurnResponse struct {
	Reply string              `json:"reply"`
	Stage domain.Stage        `json:"stage"`
	Diff  *domain.SessionDiff `json:"diff"`
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateSessionRequest
	if !s.decode(w, r, &body) {
		return
	}

	problem, err := runner.SanitizeInput(body.Problem)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid problem", err)
		return
	}

	sess, err := s.Service.Start(r.Context(), problem,
		session.WithMetadata(body.Metadata),
		session.WithSkillLevel(domain.SkillLevel(body.SkillLevel)),
	)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrEmptyProblem) {
			status = http.StatusBadRequest
		}
		s.fail(w, r, status, "start failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateSessionResponse{Session: sess, Opening: coach.OpeningPrompt(sess)})
}

// PostTurn handles POST /sessions/{id}/turns.
func (s *Server) PostTurn(w http.ResponseWriter, r *http.Request) {
	var body TurnRequest
	if !s.decode(w, r, &body) {
		return
	}

	// Empty text is a valid turn; the engine answers it.
	text, err := runner.SanitizeInput(body.Text)
	if err != nil {
		s.logger.Warn("turn input rejected", "err", err, "size", len(body.Text))
		s.fail(w, r, http.StatusBadRequest, "invalid input", err)
		return
	}

	id := chi.URLParam(r, "id")
	out, err := s.Service.Turn(r.Context(), id, text)
	if err != nil {
		s.fail(w, r, statusFor(err), "turn failed", err)
		return
	}

	if out.Diff != nil {
		if payload, err := json.Marshal(out.Diff); err == nil {
			s.Streams.Broadcast(id, string(payload))
		}
	}

	writeJSON(w, http.StatusOK, TurnResponse{Reply: out.Reply, Stage: out.Session.CurrentStage, Diff: out.Diff})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Service.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, statusFor(err), "load failed", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, statusFor(err), "delete failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Service.List(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "list failed", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetResponders handles GET /responders.
func (s *Server) GetResponders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Service.Responders())
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "coach-http",
		"version": strings.TrimSpace(coach.Version),
	})
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE). Every committed
// turn is pushed as a session diff.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	s.logger.Info("SSE: subscribed to session updates", "session_id", id)
	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid request", err)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, msg,
		"err", err,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
	)
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%s: %v", msg, err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
