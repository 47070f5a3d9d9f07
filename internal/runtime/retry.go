package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
)

// RetryPolicy controls how external generation calls are supervised.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `yaml:"max_retries" validate:"gte=0,lte=10"`
	// BackoffUnit is the base delay; retry n waits BackoffUnit * 2^(n-1).
	BackoffUnit time.Duration `yaml:"backoff_unit" validate:"gte=0"`
	// CallTimeout bounds every single attempt.
	CallTimeout time.Duration `yaml:"call_timeout" validate:"gt=0"`
}

// DefaultRetryPolicy waits 1s, 2s and 4s between four attempts of at most 30s each.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  3,
		BackoffUnit: time.Second,
		CallTimeout: 30 * time.Second,
	}
}

// Delay returns the wait before retry number n (1-based).
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	return p.BackoffUnit << (n - 1)
}

// ExternalCallError is returned once every attempt of a generation call failed.
type ExternalCallError struct {
	Attempts int
	Err      error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("external call failed after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap exposes both the generation sentinel and the last cause.
func (e *ExternalCallError) Unwrap() []error {
	return []error{ports.ErrGenerationFailed, e.Err}
}

// callStats accumulates what happened to external calls during one turn.
type callStats struct {
	mu       sync.Mutex
	calls    int
	attempts int // attempts of the most recent call
	failed   bool
}

func (c *callStats) record(attempts int, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.attempts = attempts
	if failed {
		c.failed = true
	}
}

func (c *callStats) snapshot() (calls, attempts int, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls, c.attempts, c.failed
}

// supervisedGenerator applies the retry policy and a per-attempt timeout to
// the configured backend. One instance is created per turn.
type supervisedGenerator struct {
	engine *Engine
	next   ports.Generator
	sess   *domain.Session
	stats  *callStats
}

var _ ports.Generator = (*supervisedGenerator)(nil)

func (g *supervisedGenerator) Generate(ctx context.Context, p ports.Prompt) (string, error) {
	policy := g.engine.retry
	if p.System == "" {
		p.System = g.engine.system
	}
	var lastErr error

	for attempt := 1; attempt <= policy.MaxRetries+1; attempt++ {
		if attempt > 1 {
			delay := policy.Delay(attempt - 1)
			g.engine.logger.WarnContext(ctx, "generation failed, retrying",
				"session_id", g.sess.ID,
				"stage", g.sess.CurrentStage.String(),
				"attempt", attempt,
				"backoff", delay,
				"err", lastErr,
			)
			if err := sleep(ctx, delay); err != nil {
				g.stats.record(attempt-1, true)
				return "", &ExternalCallError{Attempts: attempt - 1, Err: err}
			}
		}

		start := time.Now()
		text, err := g.call(ctx, p)
		g.engine.emitExternalCall(ctx, g.sess, attempt, time.Since(start), err != nil)
		if err == nil {
			g.stats.record(attempt, false)
			return text, nil
		}
		lastErr = err
	}

	attempts := policy.MaxRetries + 1
	g.stats.record(attempts, true)
	return "", &ExternalCallError{Attempts: attempts, Err: lastErr}
}

type callResult struct {
	text string
	err  error
}

// call runs one attempt under CallTimeout. A backend that ignores its context
// is abandoned when the timeout fires.
func (g *supervisedGenerator) call(ctx context.Context, p ports.Prompt) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.engine.retry.CallTimeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		var res callResult
		defer func() {
			if r := recover(); r != nil {
				res = callResult{err: fmt.Errorf("%w: backend panic: %v", ports.ErrGenerationFailed, r)}
			}
			done <- res
		}()
		res.text, res.err = g.next.Generate(callCtx, p)
	}()

	select {
	case <-callCtx.Done():
		return "", fmt.Errorf("%w: %w", ports.ErrGenerationFailed, callCtx.Err())
	case res := <-done:
		if res.err != nil {
			return "", res.err
		}
		if strings.TrimSpace(res.text) == "" {
			return "", fmt.Errorf("%w: empty response", ports.ErrGenerationFailed)
		}
		return res.text, nil
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isExternalFailure reports whether err came from the generation backend.
func isExternalFailure(err error) bool {
	var callErr *ExternalCallError
	return errors.As(err, &callErr) || errors.Is(err, ports.ErrGenerationFailed)
}
