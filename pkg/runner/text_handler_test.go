package runner

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_Output(t *testing.T) {
	outBuf := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader(""), outBuf, WithTextHandlerRenderer(func(s string) (string, error) {
		return "Rendered: " + s, nil
	}))

	err := handler.Output(context.Background(), Reply{
		Stage:   domain.StageThoughtArticulation,
		Text:    "Hello World\n",
		Changed: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "[Stage: Thought Articulation]\nRendered: Hello World\n", outBuf.String())
}

func TestTextHandler_OutputWithoutBanner(t *testing.T) {
	outBuf := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader(""), outBuf, WithStageBanner(false))

	require.NoError(t, handler.Output(context.Background(), Reply{Stage: domain.StageFollowUp, Text: "hi", Changed: true}))
	assert.Equal(t, "hi\n", outBuf.String())
}

func TestTextHandler_Input(t *testing.T) {
	outBuf := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader("  my user input  \nlast"), outBuf)

	val, err := handler.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "my user input", val)

	val, err = handler.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "last", val, "a final line without newline is still read")

	_, err = handler.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, Prompt+Prompt+Prompt, outBuf.String())
}

func TestTextHandler_InputRejectsOversizedLine(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "8")
	outBuf := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader("far too long for the limit\nok\n"), outBuf)

	val, err := handler.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Contains(t, outBuf.String(), "Please try again.")
}

func TestTextHandler_InputHonorsContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	handler := NewTextHandler(pr, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := handler.Input(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
