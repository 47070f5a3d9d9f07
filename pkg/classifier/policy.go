package classifier

import (
	"time"

	"github.com/aretw0/coach/pkg/domain"
)

// OffTopicFunc decides whether text is unrelated to the session's problem.
type OffTopicFunc func(text string, s *domain.Session) bool

// Policy holds the thresholds and keyword sets used by Classify.
// The zero value is not useful; start from DefaultPolicy.
type Policy struct {
	// MinLength is the trimmed length below which input is too short.
	MinLength int `yaml:"min_input_length" validate:"gte=1"`
	// RepeatWindow is how many previous user turns are compared for repeats.
	RepeatWindow int `yaml:"repeat_window" validate:"gte=1"`
	// DwellLimit is the time in one stage after which the learner is assumed stuck.
	DwellLimit time.Duration `yaml:"dwell_limit" validate:"gt=0"`
	// OffTopicMinLength is the length a text must exceed before the off-topic check runs.
	OffTopicMinLength int `yaml:"off_topic_min_length" validate:"gte=0"`
	// AnswerRequestThreshold is the per-stage count of answer requests tolerated
	// before further requests are treated as over-reliance.
	AnswerRequestThreshold int `yaml:"answer_request_threshold" validate:"gte=1"`
	// StagnationWindow is how many identical assistant replies in one stage
	// count as stagnation.
	StagnationWindow int `yaml:"stagnation_window" validate:"gte=2"`

	SkipKeywords        []string `yaml:"skip_keywords"`
	FrustrationKeywords []string `yaml:"frustration_keywords"`
	AnswerKeywords      []string `yaml:"answer_keywords"`

	// OffTopic overrides the default token-overlap heuristic.
	OffTopic OffTopicFunc `yaml:"-"`
}

// DefaultPolicy returns the stock thresholds and the English and Chinese
// keyword sets.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:              5,
		RepeatWindow:           3,
		DwellLimit:             900 * time.Second,
		OffTopicMinLength:      50,
		AnswerRequestThreshold: 2,
		StagnationWindow:       3,
		SkipKeywords:           []string{"skip", "next", "pass", "move on", "跳过", "下一个"},
		FrustrationKeywords: []string{
			"too hard", "give up", "don't know", "can't",
			"太难", "放弃", "不会", "不懂",
		},
		AnswerKeywords: []string{
			"give me the answer",
			"tell me the answer",
			"what's the solution",
			"just show me",
			"直接告诉我",
			"答案是什么",
		},
		OffTopic: NoOverlap,
	}
}

// withDefaults fills unset fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MinLength == 0 {
		p.MinLength = d.MinLength
	}
	if p.RepeatWindow == 0 {
		p.RepeatWindow = d.RepeatWindow
	}
	if p.DwellLimit == 0 {
		p.DwellLimit = d.DwellLimit
	}
	if p.OffTopicMinLength == 0 {
		p.OffTopicMinLength = d.OffTopicMinLength
	}
	if p.AnswerRequestThreshold == 0 {
		p.AnswerRequestThreshold = d.AnswerRequestThreshold
	}
	if p.StagnationWindow == 0 {
		p.StagnationWindow = d.StagnationWindow
	}
	if p.SkipKeywords == nil {
		p.SkipKeywords = d.SkipKeywords
	}
	if p.FrustrationKeywords == nil {
		p.FrustrationKeywords = d.FrustrationKeywords
	}
	if p.AnswerKeywords == nil {
		p.AnswerKeywords = d.AnswerKeywords
	}
	if p.OffTopic == nil {
		p.OffTopic = d.OffTopic
	}
	return p
}
