package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/coach"
	"github.com/aretw0/coach/internal/logging"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/runner"
	"github.com/aretw0/coach/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Resource URIs.
const (
	RespondersURI = "coach://responders"
	StagesURI     = "coach://stages"
)

// Service is the session API exposed as tools. *coach.Engine satisfies it.
type Service interface {
	Start(ctx context.Context, problem string, opts ...session.StartOption) (*domain.Session, error)
	Turn(ctx context.Context, sessionID, text string) (*session.TurnOutcome, error)
	Load(ctx context.Context, sessionID string) (*domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
	Responders() []coach.ResponderInfo
}

// SessionResponse is returned by start_session.
type SessionResponse struct {
	SessionID string       `json:"session_id" jsonschema_description:"Identifier to pass to send_turn"`
	Stage     domain.Stage `json:"stage" jsonschema_description:"Current coaching stage"`
	Reply     string       `json:"reply" jsonschema_description:"Message to show the learner"`
}

// TurnResponse is returned by send_turn.
type TurnResponse struct {
	SessionID string              `json:"session_id"`
	Stage     domain.Stage        `json:"stage" jsonschema_description:"Stage after the turn"`
	Reply     string              `json:"reply" jsonschema_description:"Coach reply for the learner"`
	Diff      *domain.SessionDiff `json:"diff,omitempty" jsonschema_description:"Changes made by the turn"`
}

// Server exposes a Service as an MCP server.
type Server struct {
	svc       Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(svc Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		svc:       svc,
		logger:    logger,
		mcpServer: server.NewMCPServer("coach-mcp", strings.TrimSpace(coach.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a coaching session for an interview problem. Returns the opening message."),
		mcp.WithString("problem", mcp.Required(), mcp.Description("The problem statement")),
		mcp.WithString("skill_level", mcp.Description("beginner, intermediate or advanced (optional)")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("send_turn",
		mcp.WithDescription("Send the learner's message to a session and get the coach reply."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("text", mcp.Required(), mcp.Description("The learner's message")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleTurn))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the full record of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
	), mcp.NewStructuredToolHandler(s.handleGet))

	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List stored session identifiers."),
	), mcp.NewStructuredToolHandler(s.handleList))

	s.mcpServer.AddTool(mcp.NewTool("delete_session",
		mcp.WithDescription("Delete a stored session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
	), mcp.NewStructuredToolHandler(s.handleDelete))
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (SessionResponse, error) {
	problem, _ := args["problem"].(string)
	level, _ := args["skill_level"].(string)

	clean, err := runner.SanitizeInput(problem)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("problem rejected: %w", err)
	}
	switch domain.SkillLevel(level) {
	case domain.SkillUnknown, domain.SkillBeginner, domain.SkillIntermediate, domain.SkillAdvanced:
	default:
		return SessionResponse{}, fmt.Errorf("unknown skill level %q", level)
	}

	sess, err := s.svc.Start(ctx, clean, session.WithSkillLevel(domain.SkillLevel(level)))
	if err != nil {
		return SessionResponse{}, fmt.Errorf("start failed: %w", err)
	}
	return SessionResponse{SessionID: sess.ID, Stage: sess.CurrentStage, Reply: coach.OpeningPrompt(sess)}, nil
}

func (s *Server) handleTurn(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TurnResponse, error) {
	id, _ := args["session_id"].(string)
	text, _ := args["text"].(string)

	clean, err := runner.SanitizeInput(text)
	if err != nil {
		s.logger.Warn("MCP send_turn: input rejected", "err", err, "size", len(text))
		return TurnResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	out, err := s.svc.Turn(ctx, id, clean)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("turn failed: %w", err)
	}
	return TurnResponse{SessionID: id, Stage: out.Session.CurrentStage, Reply: out.Reply, Diff: out.Diff}, nil
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (*domain.Session, error) {
	id, _ := args["session_id"].(string)
	sess, err := s.svc.Load(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load failed: %w", err)
	}
	return sess, nil
}

// SessionList is returned by list_sessions.
type SessionList struct {
	Sessions []string `json:"sessions"`
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (SessionList, error) {
	ids, err := s.svc.List(ctx)
	if err != nil {
		return SessionList{}, fmt.Errorf("list failed: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return SessionList{Sessions: ids}, nil
}

// DeleteResponse is returned by delete_session.
type DeleteResponse struct {
	Deleted string `json:"deleted"`
}

func (s *Server) handleDelete(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (DeleteResponse, error) {
	id, _ := args["session_id"].(string)
	if err := s.svc.Delete(ctx, id); err != nil {
		return DeleteResponse{}, fmt.Errorf("delete failed: %w", err)
	}
	return DeleteResponse{Deleted: id}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(RespondersURI, "Registered responders",
		mcp.WithMIMEType("application/json"),
	), s.readResponders)

	s.mcpServer.AddResource(mcp.NewResource(StagesURI, "Coaching stages in order",
		mcp.WithMIMEType("application/json"),
	), s.readStages)
}

func (s *Server) readResponders(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(RespondersURI, s.svc.Responders())
}

type stageInfo struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Critical bool   `json:"critical"`
}

func (s *Server) readStages(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stages := make([]stageInfo, 0, len(domain.AllStages()))
	for _, st := range domain.AllStages() {
		stages = append(stages, stageInfo{Name: st.String(), Title: st.Title(), Critical: st.IsCritical()})
	}
	return jsonResource(StagesURI, stages)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
