package offline_test

import (
	"context"
	"testing"

	"github.com/aretw0/coach/pkg/adapters/offline"
	"github.com/aretw0/coach/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator(t *testing.T) {
	gen := offline.New()

	text, err := gen.Generate(context.Background(), ports.Prompt{Draft: "What are the inputs?"})
	require.NoError(t, err)
	assert.Equal(t, "What are the inputs?", text)

	_, err = gen.Generate(context.Background(), ports.Prompt{Instruction: "no draft"})
	assert.ErrorIs(t, err, ports.ErrGenerationFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gen.Generate(ctx, ports.Prompt{Draft: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
