package runtime

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Effect is engine bookkeeping (counters, flags) applied inside the update
// protocol so that it commits together with the rest of the turn.
type Effect func(s *domain.Session)

// Update is everything one turn wants to change.
type Update struct {
	UserText  string
	Reply     string
	At        time.Time // when the user input was received
	RepliedAt time.Time

	// Prefill holds engine-derived fields (reconstruction, awaited input)
	// applied before the responder's proposal.
	Prefill domain.DerivedFields
	// Output is a successful responder output; nil when no responder result applies.
	Output *domain.Output
	// Force bypasses the gate (accepted skip, forced reset).
	Force       *domain.Stage
	ForceReason string
	// ClearFields drops every derived field; used by the forced reset.
	ClearFields bool
	Effects     []Effect
}

// Transition describes a stage change or a dropped proposal.
type Transition struct {
	From, To domain.Stage
	Reason   string
}

// Report tells the engine what the protocol did, for logging.
type Report struct {
	// Rejected lists the context updates that were not applied.
	Rejected []error
	Changed  *Transition
	Denied   *Transition
}

// Protocol is the session update protocol: the only code path that mutates
// a Session. Apply never touches its input.
type Protocol struct {
	Gate Gate
}

// Apply builds the next version of s. The caller commits it with a single
// assignment, so the whole update is applied or none of it is.
func (p Protocol) Apply(s *domain.Session, u Update) (*domain.Session, Report) {
	var report Report
	next := s.Clone()

	if u.ClearFields {
		next.Fields = domain.DerivedFields{}
		next.AwaitingField = ""
	}
	next.Fields.Merge(u.Prefill)

	if u.Output != nil && u.Output.Success {
		patch, errs := DecodeFields(u.Output.ContextUpdates)
		report.Rejected = errs
		next.Fields.Merge(patch)
	}

	sentIn := s.CurrentStage
	userAt := after(u.At, next.LastTimestamp())
	next.Conversation = append(next.Conversation, domain.Turn{
		Role:      domain.RoleUser,
		Text:      u.UserText,
		Timestamp: userAt,
		Stage:     sentIn,
	})

	target := next.CurrentStage
	reason := ""
	switch {
	case u.Force != nil:
		target, reason = *u.Force, u.ForceReason
	case u.Output != nil && u.Output.Success && u.Output.NextStage != nil:
		decided, ok, why := p.Gate.Decide(next, *u.Output)
		if ok {
			target, reason = decided, "responder proposal"
		} else {
			report.Denied = &Transition{From: next.CurrentStage, To: *u.Output.NextStage, Reason: why}
		}
	}

	for _, effect := range u.Effects {
		effect(next)
	}

	if target != next.CurrentStage {
		report.Changed = &Transition{From: next.CurrentStage, To: target, Reason: reason}
		transition(next, target, userAt)
	}

	next.Conversation = append(next.Conversation, domain.Turn{
		Role:      domain.RoleAssistant,
		Text:      u.Reply,
		Timestamp: after(u.RepliedAt, userAt),
		Stage:     next.CurrentStage,
	})
	return next, report
}

// transition moves s to target. The first transition also records the
// initial stage so that history holds every value current_stage has had.
func transition(s *domain.Session, target domain.Stage, at time.Time) {
	if len(s.StageHistory) == 0 && s.CurrentStage.IsValid() {
		s.StageHistory = append(s.StageHistory, s.CurrentStage)
	}
	s.StageHistory = append(s.StageHistory, target)
	s.CurrentStage = target
	s.StageEnteredAt = at
	s.Counters.AnswerRequests = 0
}

// after returns t, or the instant just after prev when t is not later.
func after(t, prev time.Time) time.Time {
	if prev.IsZero() || t.After(prev) {
		return t
	}
	return prev.Add(time.Nanosecond)
}

// DecodeFields turns proposed context updates into typed fields. Keys outside
// the derived-field set are dropped and reported. If any permitted value has
// the wrong type no field is applied.
func DecodeFields(updates map[string]any) (domain.DerivedFields, []error) {
	var patch domain.DerivedFields
	if len(updates) == 0 {
		return patch, nil
	}

	var errs []error
	accepted := make(map[string]any, len(updates))
	for _, key := range slices.Sorted(maps.Keys(updates)) {
		if !domain.IsDerivedField(key) {
			errs = append(errs, &domain.FieldError{Field: key, Err: domain.ErrUnknownField})
			continue
		}
		if updates[key] == nil {
			continue
		}
		accepted[key] = updates[key]
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &patch,
		TagName:     "mapstructure",
		ErrorUnused: true,
	})
	if err != nil {
		return domain.DerivedFields{}, append(errs, err)
	}
	if err := decoder.Decode(accepted); err != nil {
		return domain.DerivedFields{}, append(errs, fmt.Errorf("decode context updates: %w", err))
	}
	return patch, errs
}
