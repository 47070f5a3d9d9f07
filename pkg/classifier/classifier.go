package classifier

import (
	"strings"
	"time"
	"unicode"

	"github.com/aretw0/coach/pkg/domain"
)

// Classifier turns raw user text into a domain.Tag. It is pure and safe for
// concurrent use.
type Classifier struct {
	policy Policy
}

// New creates a Classifier. Unset policy fields take their default values.
func New(p Policy) *Classifier {
	return &Classifier{policy: p.withDefaults()}
}

// Policy returns the effective policy.
func (c *Classifier) Policy() Policy {
	return c.policy
}

// Classify returns exactly one tag for text. Rules are applied in order and
// the first match wins. s must be the session before text is appended.
func (c *Classifier) Classify(text string, s *domain.Session, now time.Time) domain.Tag {
	p := c.policy
	trimmed := strings.TrimSpace(text)

	switch {
	case trimmed == "":
		return domain.TagEmptyInput
	case len([]rune(trimmed)) < p.MinLength:
		return domain.TagTooShortInput
	case c.isRepeat(trimmed, s):
		return domain.TagRepeatedInput
	case ContainsAny(trimmed, p.SkipKeywords):
		return domain.TagSkipRequest
	case ContainsAny(trimmed, p.FrustrationKeywords) || s.Dwell(now) > p.DwellLimit:
		return domain.TagFrustrationSignal
	case c.isStagnant(s):
		return domain.TagStagnation
	case c.IsAnswerRequest(trimmed) && s.Counters.AnswerRequests >= p.AnswerRequestThreshold:
		return domain.TagOverRelianceSignal
	case len([]rune(trimmed)) > p.OffTopicMinLength && p.OffTopic(trimmed, s):
		return domain.TagOffTopicInput
	}
	return domain.TagNormal
}

// IsAnswerRequest reports whether text asks for the solution outright.
func (c *Classifier) IsAnswerRequest(text string) bool {
	return ContainsAny(text, c.policy.AnswerKeywords)
}

func (c *Classifier) isRepeat(trimmed string, s *domain.Session) bool {
	for _, prev := range s.RecentUserTexts(c.policy.RepeatWindow) {
		if strings.TrimSpace(prev) == trimmed {
			return true
		}
	}
	return false
}

func (c *Classifier) isStagnant(s *domain.Session) bool {
	replies := s.RecentAssistantTextsInStage(c.policy.StagnationWindow)
	if len(replies) < c.policy.StagnationWindow {
		return false
	}
	for _, r := range replies[1:] {
		if r != replies[0] {
			return false
		}
	}
	return true
}

// ContainsAny reports whether any keyword occurs in text as a whole word or
// phrase, ignoring case. "next" matches "next please" but not "nexted".
// Han, Kana and Hangul runes are single tokens, so "跳过" matches
// "我想跳过这一步".
func ContainsAny(text string, keywords []string) bool {
	haystack := " " + strings.Join(words(text), " ") + " "
	for _, kw := range keywords {
		needle := strings.Join(words(kw), " ")
		if needle == "" {
			continue
		}
		if strings.Contains(haystack, " "+needle+" ") {
			return true
		}
	}
	return false
}

// isUnspaced reports whether r belongs to a script written without spaces
// between words.
func isUnspaced(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

// NoOverlap is the default off-topic rule: the text shares no keyword with
// the problem statement.
func NoOverlap(text string, s *domain.Session) bool {
	problem := Keywords(s.Problem)
	if len(problem) == 0 {
		return false
	}
	for w := range Keywords(text) {
		if _, ok := problem[w]; ok {
			return false
		}
	}
	return true
}

// Keywords returns the lowercase content words of text.
func Keywords(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range words(text) {
		if len(w) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

// words splits text into lowercase tokens. Apostrophes stay inside a word so
// that "don't" survives as one token. Each Han, Kana or Hangul rune is its
// own token.
func words(text string) []string {
	text = strings.ReplaceAll(strings.ToLower(text), "’", "'")
	var b strings.Builder
	for _, r := range text {
		switch {
		case isUnspaced(r):
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {},
	"all": {}, "any": {}, "can": {}, "has": {}, "have": {}, "was": {}, "one": {},
	"our": {}, "out": {}, "use": {}, "that": {}, "this": {}, "with": {}, "from": {},
	"they": {}, "what": {}, "which": {}, "will": {}, "your": {}, "into": {}, "then": {},
	"than": {}, "them": {}, "there": {}, "their": {}, "would": {}, "about": {}, "just": {},
	"like": {}, "some": {}, "think": {}, "should": {}, "could": {}, "how": {}, "its": {},
	"it's": {}, "i'm": {}, "don't": {}, "does": {}, "did": {}, "get": {}, "got": {},
}
