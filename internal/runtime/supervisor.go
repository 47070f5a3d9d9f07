package runtime

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
)

// ErrNoResponder is returned by routing when no responder claims the stage.
var ErrNoResponder = errors.New("no responder activated")

// PanicError wraps a panic raised inside a responder.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("responder panic: %v", e.Value)
}

// supervise runs the normal path: route, recover missing state, validate,
// invoke under fault isolation, and validate the result.
func (e *Engine) supervise(ctx context.Context, s *domain.Session, text string, now time.Time) turnPlan {
	var effects []Effect
	effects = append(effects, func(s *domain.Session) { s.Counters.ConsecutiveInvalid = 0 })
	if s.Flags.HelpMode {
		effects = append(effects, func(s *domain.Session) { s.Flags.HelpMode = false })
	}
	if e.classifier.IsAnswerRequest(text) {
		effects = append(effects, func(s *domain.Session) {
			s.Counters.AnswerRequests++
			s.Counters.TotalAnswerRequests++
		})
	}

	// view is what the responder sees: the session plus the pending user turn.
	view := s.Clone()
	view.Conversation = append(view.Conversation, domain.Turn{
		Role:      domain.RoleUser,
		Text:      text,
		Timestamp: after(now, s.LastTimestamp()),
		Stage:     s.CurrentStage,
	})

	var prefill domain.DerivedFields
	if field := view.AwaitingField; field != "" {
		if patch, errs := DecodeFields(map[string]any{field: strings.TrimSpace(text)}); len(errs) == 0 {
			prefill.Merge(patch)
			view.Fields.Merge(patch)
		}
		view.AwaitingField = ""
		effects = append(effects, func(s *domain.Session) { s.AwaitingField = "" })
	}

	plan := func(tag domain.Tag, reply string) turnPlan {
		return turnPlan{tag: tag, reply: reply, update: Update{Prefill: prefill, Effects: effects}}
	}

	r, err := e.route(view)
	switch {
	case errors.Is(err, ErrNoResponder):
		e.logger.InfoContext(ctx, "no responder for stage",
			"session_id", s.ID,
			"stage", s.CurrentStage.String(),
		)
		return plan(domain.TagNormal, clarificationReply)
	case err != nil:
		e.incident(ctx, s, domain.Incident{Tag: domain.TagStateInconsistency, Severity: domain.SeverityRecoverable, Detail: err.Error()})
		return plan(domain.TagStateInconsistency, neutralReply)
	}
	name := responderName(r)

	// Pre-validation, step one: required fields.
	missing := missingFields(view, e.requiredFields(r, view.CurrentStage))
	if derivable := filter(missing, isDerivable); len(derivable) > 0 {
		patch, ok := e.reconstruct(view.Clone())
		if ok {
			view.Fields.Merge(patch)
		}
		if still := missingFields(view, derivable); !ok || len(still) > 0 {
			return e.reset(ctx, s, fmt.Sprintf("cannot reconstruct %s for %s", strings.Join(derivable, ", "), name))
		}
		prefill.Merge(patch)
		e.incident(ctx, s, domain.Incident{
			Tag:      domain.TagStateInconsistency,
			Severity: domain.SeverityRecoverable,
			Detail:   "reconstructed " + strings.Join(derivable, ", "),
		})
	}
	if userSupplied := filter(missing, isUserSupplied); len(userSupplied) > 0 {
		field := userSupplied[0]
		e.incident(ctx, s, domain.Incident{
			Tag:      domain.TagStateInconsistency,
			Severity: domain.SeverityRecoverable,
			Detail:   "missing " + field + ", re-prompting",
		})
		p := plan(domain.TagStateInconsistency, reprompt(field))
		p.update.Effects = append(p.update.Effects, func(s *domain.Session) { s.AwaitingField = field })
		return p
	}
	if other := filter(missing, func(f string) bool { return !isDerivable(f) && !isUserSupplied(f) }); len(other) > 0 {
		return e.reset(ctx, s, "missing "+strings.Join(other, ", ")+" for "+name)
	}

	// Pre-validation, step two: the responder's own predicate.
	// A rejected context keeps the session; only corrupt records are reset.
	if v, ok := r.(ports.ContextValidator); ok && !v.ValidateContext(view.Clone()) {
		e.incident(ctx, s, domain.Incident{
			Tag:      domain.TagStateInconsistency,
			Severity: domain.SeverityRecoverable,
			Detail:   "context validation failed for " + name,
		})
		return plan(domain.TagStateInconsistency, neutralReply)
	}

	stats := &callStats{}
	out, err := e.invoke(ctx, r, name, view, stats)
	calls, attempts, failed := stats.snapshot()
	if calls > 0 {
		retries := max(attempts-1, 0)
		effects = append(effects, func(s *domain.Session) { s.Counters.ExternalRetries = retries })
	}

	switch {
	case err != nil && isExternalFailure(err):
		e.incident(ctx, s, domain.Incident{Tag: domain.TagExternalCallFailure, Severity: domain.SeverityRecoverable, Detail: err.Error()})
		effects = append(effects, func(s *domain.Session) { s.Flags.Degraded = true })
		reply := FallbackReply(s.CurrentStage)
		p := plan(domain.TagExternalCallFailure, reply)
		p.degraded = true
		p.output = domain.Succeed(reply, nil, nil).
			WithMeta(domain.MetaDegraded, true).
			WithMeta(domain.MetaFallback, true).
			WithMeta(domain.MetaAttempts, attempts).
			WithMeta(domain.MetaResponder, name)
		return p

	case err != nil:
		e.incident(ctx, s, domain.Incident{Tag: domain.TagUnexpectedFailure, Severity: domain.SeverityRecoverable, Detail: err.Error()})
		return plan(domain.TagUnexpectedFailure, neutralReply)
	}

	if err := out.Validate(); err != nil {
		e.incident(ctx, s, domain.Incident{Tag: domain.TagStateInconsistency, Severity: domain.SeverityRecoverable, Detail: name + ": " + err.Error()})
		return plan(domain.TagStateInconsistency, neutralReply)
	}

	if !out.Success {
		e.logger.InfoContext(ctx, "responder reported failure",
			"session_id", s.ID,
			"stage", s.CurrentStage.String(),
			"responder", name,
			"reason", out.Error,
		)
		reply := out.Reply
		if strings.TrimSpace(reply) == "" {
			reply = neutralReply
		}
		p := plan(domain.TagNormal, reply)
		p.output = out
		return p
	}

	if failed {
		effects = append(effects, func(s *domain.Session) { s.Flags.Degraded = true })
	}
	p := plan(domain.TagNormal, out.Reply)
	p.output = out.WithMeta(domain.MetaResponder, name)
	p.degraded = failed || out.Flag(domain.MetaDegraded)
	p.update.Output = &out
	return p
}

// route selects the single responder whose activation predicate holds.
func (e *Engine) route(s *domain.Session) (ports.Responder, error) {
	var matched []ports.Responder
	for _, r := range e.responders {
		if r.ShouldActivate(s) {
			matched = append(matched, r)
		}
	}

	switch len(matched) {
	case 0:
		return nil, ErrNoResponder
	case 1:
		return matched[0], nil
	}
	names := make([]string, len(matched))
	for i, r := range matched {
		names[i] = responderName(r)
	}
	return nil, fmt.Errorf("%w at %s: %s", domain.ErrAmbiguousRoute, s.CurrentStage, strings.Join(names, ", "))
}

// invoke calls the responder with fault isolation. A panic becomes a
// *PanicError.
func (e *Engine) invoke(ctx context.Context, r ports.Responder, name string, view *domain.Session, stats *callStats) (out domain.Output, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
		e.emitResponderCall(ctx, view, name, time.Since(start), err != nil)
	}()

	return r.Process(ctx, view.Clone(), e.supervised(view, stats))
}

// supervised wraps the backend for one turn.
func (e *Engine) supervised(s *domain.Session, stats *callStats) ports.Generator {
	return &supervisedGenerator{engine: e, next: e.generator, sess: s, stats: stats}
}

func responderName(r ports.Responder) string {
	if d, ok := r.(ports.Describer); ok {
		return d.Name()
	}
	return fmt.Sprintf("%T", r)
}

func filter(keys []string, keep func(string) bool) []string {
	var out []string
	for _, k := range keys {
		if keep(k) {
			out = append(out, k)
		}
	}
	return out
}
