// Package openai implements ports.Generator on the OpenAI chat completions API.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/coach/internal/logging"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
	"github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// DefaultPersona is the system prompt used when the prompt carries none.
const DefaultPersona = "You are a patient technical interview coach. " +
	"You guide the learner with questions and hints and never reveal a full solution."

// Generator sends prompts to a chat completion model.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *slog.Logger
}

var _ ports.Generator = (*Generator)(nil)

// Option configures the Generator.
type Option func(*generatorConfig)

type generatorConfig struct {
	baseURL     string
	model       string
	temperature float32
	maxTokens   int
	logger      *slog.Logger
}

// WithModel selects the chat model.
func WithModel(model string) Option {
	return func(c *generatorConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *generatorConfig) {
		c.baseURL = url
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(c *generatorConfig) {
		c.temperature = t
	}
}

// WithMaxTokens bounds the completion length.
func WithMaxTokens(n int) Option {
	return func(c *generatorConfig) {
		c.maxTokens = n
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *generatorConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Generator authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Generator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	cfg := generatorConfig{model: DefaultModel, temperature: 0.4, maxTokens: 400, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.baseURL != "" {
		clientCfg.BaseURL = cfg.baseURL
	}
	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.model,
		temperature: cfg.temperature,
		maxTokens:   cfg.maxTokens,
		logger:      cfg.logger,
	}, nil
}

// Generate implements ports.Generator. Every failure wraps ports.ErrGenerationFailed.
func (g *Generator) Generate(ctx context.Context, p ports.Prompt) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:               g.model,
		Messages:            Messages(p),
		Temperature:         g.temperature,
		MaxCompletionTokens: g.maxTokens,
	}

	g.logger.DebugContext(ctx, "generating reply", "model", g.model, "stage", p.Stage.String())
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: openai: %w", ports.ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", ports.ErrGenerationFailed)
	}

	g.logger.DebugContext(ctx, "received reply", "finish_reason", string(resp.Choices[0].FinishReason))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Messages renders a prompt as a chat transcript: persona, recent history,
// then the instruction with the draft to rephrase.
func Messages(p ports.Prompt) []openai.ChatCompletionMessage {
	system := p.System
	if system == "" {
		system = DefaultPersona
	}
	msgs := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: system}}

	for _, t := range p.History {
		role := openai.ChatMessageRoleUser
		if t.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current stage: %s.\n%s", p.Stage.Title(), p.Instruction)
	if p.Draft != "" {
		b.WriteString("\n\nRephrase this draft reply in your own words. Keep its meaning and do not add the solution:\n")
		b.WriteString(p.Draft)
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: b.String()})
}
