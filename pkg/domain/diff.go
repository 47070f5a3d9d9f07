package domain

import (
	"reflect"
)

// SessionDiff represents the changes between two versions of a session.
// It is designed to be serialized to JSON for partial updates on the client.
type SessionDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// Stage is set when current_stage changed.
	Stage *Stage `json:"stage,omitempty"`

	// Fields contains only changed, added or cleared derived fields.
	// A cleared field is present with a nil value.
	Fields map[string]any `json:"fields,omitempty"`

	// Turns contains the turns appended since the old version.
	Turns []Turn `json:"turns,omitempty"`

	// Flags is set when any intervention flag changed.
	Flags *Flags `json:"flags,omitempty"`
}

// Diff calculates the difference between oldSession and newSession.
// If oldSession is nil, it returns a diff representing the entire newSession.
func Diff(oldSession, newSession *Session) *SessionDiff {
	if newSession == nil {
		return nil
	}

	diff := &SessionDiff{
		SessionID: newSession.ID,
	}

	if oldSession == nil || oldSession.CurrentStage != newSession.CurrentStage {
		stage := newSession.CurrentStage
		diff.Stage = &stage
	}
	if oldSession == nil || oldSession.Flags != newSession.Flags {
		flags := newSession.Flags
		diff.Flags = &flags
	}

	diff.Fields = diffFields(oldSession, newSession)
	diff.Turns = diffTurns(oldSession, newSession)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffFields(old, new *Session) map[string]any {
	delta := make(map[string]any)
	for _, key := range DerivedFieldKeys() {
		newVal := new.Fields.Value(key)
		if old == nil {
			if newVal != nil {
				delta[key] = newVal
			}
			continue
		}
		if oldVal := old.Fields.Value(key); !reflect.DeepEqual(oldVal, newVal) {
			delta[key] = newVal
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffTurns assumes the conversation is append-only.
func diffTurns(old, new *Session) []Turn {
	if len(new.Conversation) == 0 {
		return nil
	}
	if old == nil {
		return new.Conversation
	}
	if n := len(old.Conversation); len(new.Conversation) > n {
		return new.Conversation[n:]
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.Stage == nil &&
		d.Flags == nil &&
		len(d.Fields) == 0 &&
		len(d.Turns) == 0
}
