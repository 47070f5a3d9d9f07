package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/coach/pkg/adapters/openai"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Generate(t *testing.T) {
	var got goopenai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(goopenai.ChatCompletionResponse{
			ID:    "chatcmpl-1",
			Model: "test-model",
			Choices: []goopenai.ChatCompletionChoice{{
				Message:      goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleAssistant, Content: "  What are the inputs?  "},
				FinishReason: goopenai.FinishReasonStop,
			}},
		})
	}))
	defer srv.Close()

	gen, err := openai.New("sk-test", openai.WithBaseURL(srv.URL+"/v1"), openai.WithModel("test-model"))
	require.NoError(t, err)

	text, err := gen.Generate(context.Background(), ports.Prompt{
		Stage:       domain.StageProblemClarification,
		Instruction: "Ask about inputs.",
		Draft:       "What are the inputs and outputs?",
		History:     []domain.Turn{{Role: domain.RoleUser, Text: "hi there"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "What are the inputs?", text)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, openai.DefaultPersona, got.Messages[0].Content)
	assert.Equal(t, goopenai.ChatMessageRoleUser, got.Messages[1].Role)
	assert.Contains(t, got.Messages[2].Content, "What are the inputs and outputs?")
}

func TestGenerator_ErrorsWrapSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	gen, err := openai.New("sk-test", openai.WithBaseURL(srv.URL+"/v1"))
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), ports.Prompt{Instruction: "x"})
	assert.ErrorIs(t, err, ports.ErrGenerationFailed)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := openai.New(" ")
	assert.Error(t, err)
}

func TestMessages_UsesPromptSystem(t *testing.T) {
	msgs := openai.Messages(ports.Prompt{System: "Be brief.", Instruction: "Ask."})
	require.Len(t, msgs, 2)
	assert.Equal(t, "Be brief.", msgs[0].Content)
	assert.NotContains(t, msgs[1].Content, "Rephrase")
}
