package domain

import (
	"fmt"
	"maps"
)

// Metadata keys with meaning to the engine.
const (
	MetaDegraded          = "degraded"
	MetaFallback          = "fallback"
	MetaAttempts          = "attempts"
	MetaEdgeCasesComplete = "edge_cases_complete"
	MetaAdvance           = "advance"
	MetaHintLevel         = "hint_level"
	MetaHelpMode          = "help_mode"
	MetaResponder         = "responder"
)

// Output is what a responder returns for one invocation.
type Output struct {
	Success bool   `json:"success"`
	Reply   string `json:"reply"`
	// NextStage is the responder's proposal; the stage gate decides.
	NextStage *Stage `json:"next_stage,omitempty"`
	// ContextUpdates maps derived field keys to proposed values.
	ContextUpdates map[string]any `json:"context_updates,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Succeed builds a successful output.
func Succeed(reply string, next *Stage, updates map[string]any) Output {
	return Output{
		Success:        true,
		Reply:          reply,
		NextStage:      next,
		ContextUpdates: updates,
		Metadata:       make(map[string]any),
	}
}

// Fail builds a failed output. It never carries a state change.
func Fail(reason string) Output {
	return Output{
		Success:  false,
		Error:    reason,
		Metadata: make(map[string]any),
	}
}

// Validate checks the output contract: a failed invocation proposes no state
// change and explains itself.
func (o Output) Validate() error {
	if o.Success {
		if o.Reply == "" {
			return fmt.Errorf("%w: successful output has no reply", ErrInvalidOutput)
		}
		if o.NextStage != nil && !o.NextStage.IsValid() {
			return fmt.Errorf("%w: proposed %s", ErrInvalidOutput, o.NextStage)
		}
		return nil
	}
	if o.NextStage != nil {
		return fmt.Errorf("%w: failed output proposes next stage %s", ErrInvalidOutput, o.NextStage)
	}
	if len(o.ContextUpdates) > 0 {
		return fmt.Errorf("%w: failed output proposes %d field updates", ErrInvalidOutput, len(o.ContextUpdates))
	}
	if o.Error == "" {
		return fmt.Errorf("%w: failed output has no error text", ErrInvalidOutput)
	}
	return nil
}

// Flag reads a boolean metadata entry.
func (o Output) Flag(key string) bool {
	v, ok := o.Metadata[key].(bool)
	return ok && v
}

// WithMeta returns a copy of o with key set in its metadata.
func (o Output) WithMeta(key string, value any) Output {
	o.Metadata = maps.Clone(o.Metadata)
	if o.Metadata == nil {
		o.Metadata = make(map[string]any)
	}
	o.Metadata[key] = value
	return o
}

// StagePtr returns a pointer to s, for NextStage literals.
func StagePtr(s Stage) *Stage { return &s }
