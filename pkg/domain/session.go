package domain

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the conversation history.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Stage     Stage     `json:"stage"`
}

// SkillLevel is the estimated proficiency of the learner.
type SkillLevel string

const (
	SkillUnknown      SkillLevel = ""
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// Profile carries what is known about the learner.
type Profile struct {
	SkillLevel SkillLevel `json:"skill_level,omitempty"`
}

// Counters are the transient values the escalation engine relies on.
type Counters struct {
	// ConsecutiveInvalid counts invalid inputs in a row; any normal-path turn resets it.
	ConsecutiveInvalid int `json:"consecutive_invalid"`
	// ExternalRetries is the retry count of the most recent external generation call.
	ExternalRetries int `json:"external_retries"`
	// AnswerRequests counts direct-answer requests in the current stage.
	AnswerRequests int `json:"answer_requests"`
	// TotalAnswerRequests counts direct-answer requests over the whole session.
	TotalAnswerRequests int `json:"total_answer_requests"`
	SkipRefusals        int `json:"skip_refusals"`
}

// Flags record interventions that happened during the session.
type Flags struct {
	SkipRequested       bool `json:"skip_requested"`
	FrustrationDetected bool `json:"frustration_detected"`
	Intervened          bool `json:"intervened"`
	HelpMode            bool `json:"help_mode"`
	Degraded            bool `json:"degraded"`
}

// Session is the state of one coaching conversation.
//
// Responders only ever see a copy (see Clone). The runtime's update protocol is
// the single code path that mutates a Session.
type Session struct {
	ID              string         `json:"id"`
	Problem         string         `json:"problem"`
	ProblemMetadata map[string]any `json:"problem_metadata,omitempty"`
	Profile         *Profile       `json:"profile,omitempty"`

	CurrentStage   Stage     `json:"current_stage"`
	StageHistory   []Stage   `json:"stage_history,omitempty"`
	StageEnteredAt time.Time `json:"stage_entered_at"`
	// InterventionAt is when the engine last intervened for a stuck learner.
	InterventionAt time.Time `json:"intervention_at,omitempty"`
	SkippedStages  []Stage   `json:"skipped_stages,omitempty"`

	Conversation  []Turn        `json:"conversation,omitempty"`
	Fields        DerivedFields `json:"fields"`
	// AwaitingField names a user-supplied field the last reply asked for.
	// The next normal-path input is taken as its value.
	AwaitingField string        `json:"awaiting_field,omitempty"`

	Counters Counters `json:"counters"`
	Flags    Flags    `json:"flags"`

	CreatedAt time.Time `json:"created_at"`
}

// NewSession creates a session at the first stage with a fresh id.
func NewSession(problem string, metadata map[string]any) *Session {
	return NewSessionWithID(uuid.NewString(), problem, metadata)
}

// NewSessionWithID creates a session with a caller-chosen id.
func NewSessionWithID(id, problem string, metadata map[string]any) *Session {
	now := time.Now()
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Session{
		ID:              id,
		Problem:         problem,
		ProblemMetadata: metadata,
		CurrentStage:    StageProblemClarification,
		StageEnteredAt:  now,
		CreatedAt:       now,
	}
}

// Clone returns a deep copy that shares no mutable memory with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.ProblemMetadata = cloneAnyMap(s.ProblemMetadata)
	if s.Profile != nil {
		p := *s.Profile
		c.Profile = &p
	}
	c.StageHistory = slices.Clone(s.StageHistory)
	c.SkippedStages = slices.Clone(s.SkippedStages)
	c.Conversation = slices.Clone(s.Conversation)
	c.Fields = s.Fields.Clone()
	return &c
}

// SkillLevel returns the learner's estimated skill, SkillUnknown when absent.
func (s *Session) SkillLevel() SkillLevel {
	if s.Profile == nil {
		return SkillUnknown
	}
	return s.Profile.SkillLevel
}

// RecentUserTexts returns the text of the last n user turns, oldest first.
func (s *Session) RecentUserTexts(n int) []string {
	var out []string
	for i := len(s.Conversation) - 1; i >= 0 && len(out) < n; i-- {
		if s.Conversation[i].Role == RoleUser {
			out = append(out, s.Conversation[i].Text)
		}
	}
	slices.Reverse(out)
	return out
}

// LatestUserText returns the most recent user turn text, or "".
func (s *Session) LatestUserText() string {
	if texts := s.RecentUserTexts(1); len(texts) == 1 {
		return texts[0]
	}
	return ""
}

// RecentAssistantTextsInStage returns up to n assistant replies sent in the
// current stage, newest first.
func (s *Session) RecentAssistantTextsInStage(n int) []string {
	var out []string
	for i := len(s.Conversation) - 1; i >= 0 && len(out) < n; i-- {
		t := s.Conversation[i]
		if t.Stage != s.CurrentStage {
			break
		}
		if t.Role == RoleAssistant {
			out = append(out, t.Text)
		}
	}
	return out
}

// TimeInStage reports how long the session has been in its current stage.
func (s *Session) TimeInStage(now time.Time) time.Duration {
	if s.StageEnteredAt.IsZero() {
		return 0
	}
	return now.Sub(s.StageEnteredAt)
}

// Dwell reports how long the learner has gone without progress or help: the
// time since the later of entering the stage and the last intervention.
func (s *Session) Dwell(now time.Time) time.Duration {
	since := s.StageEnteredAt
	if s.InterventionAt.After(since) {
		since = s.InterventionAt
	}
	if since.IsZero() {
		return 0
	}
	return now.Sub(since)
}

// LastTimestamp returns the timestamp of the newest turn, zero when empty.
func (s *Session) LastTimestamp() time.Time {
	if len(s.Conversation) == 0 {
		return time.Time{}
	}
	return s.Conversation[len(s.Conversation)-1].Timestamp
}

// CheckInvariants validates the structural invariants of the record.
func (s *Session) CheckInvariants() error {
	if !s.CurrentStage.IsValid() {
		return &InvariantError{Rule: "current_stage", Detail: s.CurrentStage.String() + " is not a stage"}
	}
	if n := len(s.StageHistory); n > 0 && s.StageHistory[n-1] != s.CurrentStage {
		return &InvariantError{Rule: "stage_history", Detail: "last entry differs from current_stage"}
	}
	for i := 1; i < len(s.Conversation); i++ {
		if !s.Conversation[i].Timestamp.After(s.Conversation[i-1].Timestamp) {
			return &InvariantError{Rule: "conversation", Detail: "timestamps are not strictly increasing"}
		}
	}
	return nil
}

// Snapshot is the compact view attached to incident logs.
type Snapshot struct {
	Stage         Stage `json:"stage"`
	Turns         int   `json:"turns"`
	HasPseudocode bool  `json:"has_pseudocode"`
}

// Snapshot captures the state fields recorded with every classification.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Stage:         s.CurrentStage,
		Turns:         len(s.Conversation),
		HasPseudocode: s.Fields.Pseudocode != nil,
	}
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		switch t := v.(type) {
		case map[string]any:
			out[k] = cloneAnyMap(t)
		case []any:
			out[k] = slices.Clone(t)
		case []string:
			out[k] = slices.Clone(t)
		}
	}
	return out
}
