package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRetryPolicy_Delay(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
}

func TestSupervisedGenerator(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("exhausted", func(t *testing.T) {
		var calls atomic.Int32
		e := newTestEngine(ports.GeneratorFunc(func(context.Context, ports.Prompt) (string, error) {
			calls.Add(1)
			return "", errors.New("503")
		}), nil)
		stats := &callStats{}
		gen := e.supervised(domain.NewSession("p", nil), stats)

		_, err := gen.Generate(context.Background(), ports.Prompt{Instruction: "x"})

		var callErr *ExternalCallError
		require.ErrorAs(t, err, &callErr)
		assert.Equal(t, 4, callErr.Attempts)
		assert.ErrorIs(t, err, ports.ErrGenerationFailed)
		assert.EqualValues(t, 4, calls.Load())

		n, attempts, failed := stats.snapshot()
		assert.Equal(t, 1, n)
		assert.Equal(t, 4, attempts)
		assert.True(t, failed)
	})

	t.Run("empty text is a failure", func(t *testing.T) {
		var calls atomic.Int32
		e := newTestEngine(ports.GeneratorFunc(func(context.Context, ports.Prompt) (string, error) {
			if calls.Add(1) == 1 {
				return "   ", nil
			}
			return "fine", nil
		}), nil)
		gen := e.supervised(domain.NewSession("p", nil), &callStats{})

		text, err := gen.Generate(context.Background(), ports.Prompt{})
		require.NoError(t, err)
		assert.Equal(t, "fine", text)
	})

	t.Run("backend panic is a failure", func(t *testing.T) {
		e := newTestEngine(ports.GeneratorFunc(func(context.Context, ports.Prompt) (string, error) {
			panic("boom")
		}), nil, WithRetryPolicy(RetryPolicy{MaxRetries: 0, CallTimeout: time.Second}))
		gen := e.supervised(domain.NewSession("p", nil), &callStats{})

		_, err := gen.Generate(context.Background(), ports.Prompt{})
		assert.ErrorIs(t, err, ports.ErrGenerationFailed)
	})

	t.Run("cancelled during backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		e := newTestEngine(ports.GeneratorFunc(func(context.Context, ports.Prompt) (string, error) {
			cancel()
			return "", errors.New("503")
		}), nil, WithRetryPolicy(RetryPolicy{MaxRetries: 3, BackoffUnit: time.Hour, CallTimeout: time.Second}))
		gen := e.supervised(domain.NewSession("p", nil), &callStats{})

		_, err := gen.Generate(ctx, ports.Prompt{})
		var callErr *ExternalCallError
		require.ErrorAs(t, err, &callErr)
		assert.Equal(t, 1, callErr.Attempts)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewEngine_NilGeneratorAlwaysFails(t *testing.T) {
	e := newTestEngine(nil, nil, WithRetryPolicy(RetryPolicy{MaxRetries: 0, CallTimeout: time.Second}))
	_, err := e.supervised(domain.NewSession("p", nil), &callStats{}).Generate(context.Background(), ports.Prompt{})
	assert.True(t, isExternalFailure(err))
}
