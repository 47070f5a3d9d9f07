package domain

// Tag is the closed set of turn classifications.
type Tag string

const (
	// TagNormal is the normal-path signal: the input is routed to a responder.
	TagNormal Tag = "normal"

	TagEmptyInput          Tag = "empty_input"
	TagTooShortInput       Tag = "too_short_input"
	TagRepeatedInput       Tag = "repeated_input"
	TagOffTopicInput       Tag = "off_topic_input"
	TagSkipRequest         Tag = "skip_request"
	TagFrustrationSignal   Tag = "frustration_signal"
	TagOverRelianceSignal  Tag = "over_reliance_signal"
	TagExternalCallFailure Tag = "external_call_failure"
	TagStateInconsistency  Tag = "state_inconsistency"
	TagStagnation          Tag = "stagnation"
	TagUnexpectedFailure   Tag = "unexpected_failure"
)

// Tags returns every exception classification (TagNormal excluded).
func Tags() []Tag {
	return []Tag{
		TagEmptyInput,
		TagTooShortInput,
		TagRepeatedInput,
		TagOffTopicInput,
		TagSkipRequest,
		TagFrustrationSignal,
		TagOverRelianceSignal,
		TagExternalCallFailure,
		TagStateInconsistency,
		TagStagnation,
		TagUnexpectedFailure,
	}
}

// IsInvalidInput reports whether t counts toward the consecutive-invalid escalation.
func (t Tag) IsInvalidInput() bool {
	switch t {
	case TagEmptyInput, TagTooShortInput, TagRepeatedInput, TagOffTopicInput:
		return true
	default:
		return false
	}
}

// IsBehavioral reports whether t is user-caused and handled before routing.
func (t Tag) IsBehavioral() bool {
	switch t {
	case TagSkipRequest, TagFrustrationSignal, TagOverRelianceSignal, TagStagnation:
		return true
	default:
		return t.IsInvalidInput()
	}
}

// Severity says whether a session survives an incident.
type Severity string

const (
	// SeverityCritical forces the session back to the first stage.
	SeverityCritical Severity = "critical"
	// SeverityRecoverable is answered in-turn and the session continues.
	SeverityRecoverable Severity = "recoverable"
	// SeverityInformational is logged only.
	SeverityInformational Severity = "informational"
)

// Incident is one classified event inside a turn. It is never persisted.
type Incident struct {
	Tag      Tag
	Severity Severity
	Detail   string
}
