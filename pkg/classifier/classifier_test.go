package classifier_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aretw0/coach/pkg/classifier"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/stretchr/testify/assert"
)

const twoSum = "Given an array of integers nums and an integer target, return indices of the two numbers such that they add up to target."

func newSession(now time.Time) *domain.Session {
	s := domain.NewSessionWithID("s1", twoSum, nil)
	s.StageEnteredAt = now
	return s
}

func withTurns(s *domain.Session, turns ...domain.Turn) *domain.Session {
	s.Conversation = append(s.Conversation, turns...)
	return s
}

func user(text string) domain.Turn {
	return domain.Turn{Role: domain.RoleUser, Text: text, Stage: domain.StageProblemClarification}
}

func assistant(text string) domain.Turn {
	return domain.Turn{Role: domain.RoleAssistant, Text: text, Stage: domain.StageProblemClarification}
}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := classifier.New(classifier.DefaultPolicy())

	tests := []struct {
		name    string
		text    string
		session func() *domain.Session
		want    domain.Tag
	}{
		{
			name:    "Empty",
			text:    "",
			session: func() *domain.Session { return newSession(now) },
			want:    domain.TagEmptyInput,
		},
		{
			name:    "Whitespace Only",
			text:    "  \t\n ",
			session: func() *domain.Session { return newSession(now) },
			want:    domain.TagEmptyInput,
		},
		{
			name:    "Too Short",
			text:    " ok? ",
			session: func() *domain.Session { return newSession(now) },
			want:    domain.TagTooShortInput,
		},
		{
			name: "Repeated Within Window",
			text: "use a hash map",
			session: func() *domain.Session {
				return withTurns(newSession(now), user("use a hash map"), assistant("why?"), user("because lookups"))
			},
			want: domain.TagRepeatedInput,
		},
		{
			name: "Repeat Outside Window Is Normal",
			text: "use a hash map",
			session: func() *domain.Session {
				return withTurns(newSession(now),
					user("use a hash map"), assistant("a"),
					user("second idea here"), assistant("b"),
					user("third idea here"), assistant("c"),
					user("fourth idea here"))
			},
			want: domain.TagNormal,
		},
		{
			name:    "Skip Keyword",
			text:    "Can we skip this part?",
			session: func() *domain.Session { return newSession(now) },
			want:    domain.TagSkipRequest,
		},
		{
			name:    "Skip Phrase",
			text:    "let's move on please",
			session: func() *domain.Session { return newSession(now) },
			want:    domain.TagSkipRequest,
		},
		{
			name:    "Skip Keyword Inside Word Is Ignored",
			text:    "we bypass the duplicates with a set",
			session: func() *domain.Session { return newSession(now) },
			want:    domain.TagNormal,
		},
		{
			name:    "Skip Beats Frustration",
			text:    "too hard, skip",
			session: func() *domain.Session { return newSession(now) },
			want:    domain.TagSkipRequest,
		},
		{
			name:    "Frustration Keyword",
			text:    "I don’t know how to start",
			session: func() *domain.Session { return newSession(now) },
			want:    domain.TagFrustrationSignal,
		},
		{
			name: "Frustration By Dwell Time",
			text: "maybe sort the numbers",
			session: func() *domain.Session {
				s := newSession(now)
				s.StageEnteredAt = now.Add(-901 * time.Second)
				return s
			},
			want: domain.TagFrustrationSignal,
		},
		{
			name: "Dwell At Limit Is Normal",
			text: "maybe sort the numbers",
			session: func() *domain.Session {
				s := newSession(now)
				s.StageEnteredAt = now.Add(-900 * time.Second)
				return s
			},
			want: domain.TagNormal,
		},
		{
			name: "Stagnation",
			text: "maybe sort the numbers",
			session: func() *domain.Session {
				return withTurns(newSession(now),
					user("first try here"), assistant("What is the input?"),
					user("second try here"), assistant("What is the input?"),
					user("third try here"), assistant("What is the input?"))
			},
			want: domain.TagStagnation,
		},
		{
			name:    "Answer Request Below Threshold",
			text:    "just show me the code",
			session: func() *domain.Session { return newSession(now) },
			want:    domain.TagNormal,
		},
		{
			name: "Answer Request At Threshold",
			text: "just show me the code",
			session: func() *domain.Session {
				s := newSession(now)
				s.Counters.AnswerRequests = 2
				return s
			},
			want: domain.TagOverRelianceSignal,
		},
		{
			name:    "Off Topic",
			text:    "What do you think about the weather forecast for tomorrow in Lisbon?",
			session: func() *domain.Session { return newSession(now) },
			want:    domain.TagOffTopicInput,
		},
		{
			name:    "Long But On Topic",
			text:    "I would loop over nums and keep a map from value to index for target",
			session: func() *domain.Session { return newSession(now) },
			want:    domain.TagNormal,
		},
		{
			name:    "Short Unrelated Text Is Not Off Topic",
			text:    "what about lunch",
			session: func() *domain.Session { return newSession(now) },
			want:    domain.TagNormal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text, tt.session(), now))
		})
	}
}

func TestClassify_IsPure(t *testing.T) {
	now := time.Now()
	c := classifier.New(classifier.DefaultPolicy())
	s := withTurns(newSession(now), user("use a hash map"))
	before := s.Clone()

	_ = c.Classify("use a hash map", s, now)
	_ = c.Classify("", s, now)

	assert.Equal(t, before, s)
}

func TestClassify_OffTopicHook(t *testing.T) {
	now := time.Now()
	var called bool
	c := classifier.New(classifier.Policy{
		OffTopicMinLength: 10,
		OffTopic: func(text string, _ *domain.Session) bool {
			called = true
			return strings.Contains(text, "football")
		},
	})

	assert.Equal(t, domain.TagOffTopicInput, c.Classify("did you watch the football", newSession(now), now))
	assert.True(t, called)
	assert.Equal(t, domain.TagNormal, c.Classify("did you watch the array", newSession(now), now))
}

func TestNew_FillsDefaults(t *testing.T) {
	p := classifier.New(classifier.Policy{MinLength: 8}).Policy()
	def := classifier.DefaultPolicy()

	assert.Equal(t, 8, p.MinLength)
	assert.Equal(t, def.RepeatWindow, p.RepeatWindow)
	assert.Equal(t, def.DwellLimit, p.DwellLimit)
	assert.Equal(t, def.SkipKeywords, p.SkipKeywords)
	assert.NotNil(t, p.OffTopic)
}

func TestContainsAny(t *testing.T) {
	assert.True(t, classifier.ContainsAny("OK, Next!", []string{"next"}))
	assert.True(t, classifier.ContainsAny("I can't do it", []string{"can't"}))
	assert.False(t, classifier.ContainsAny("passing values", []string{"pass"}))
	assert.False(t, classifier.ContainsAny("anything", []string{"", "  "}))
}

func TestClassify_ChineseKeywords(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := classifier.New(classifier.DefaultPolicy())

	tests := []struct {
		text string
		want domain.Tag
	}{
		{"我想跳过这一步", domain.TagSkipRequest},
		{"我们去下一个阶段吧", domain.TagSkipRequest},
		{"这道题太难了我做不出来", domain.TagFrustrationSignal},
		{"我真的不懂这个题目", domain.TagFrustrationSignal},
		{"我想用哈希表来存储", domain.TagNormal},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			s := newSession(now)
			s.CurrentStage = domain.StageComplexityAnalysis
			assert.Equal(t, tt.want, c.Classify(tt.text, s, now))
		})
	}

	assert.True(t, c.IsAnswerRequest("你能直接告诉我吗"))
	assert.True(t, c.IsAnswerRequest("答案是什么？"))
	assert.False(t, c.IsAnswerRequest("答案应该是线性的"))
}

func TestContainsAny_UnspacedScripts(t *testing.T) {
	assert.True(t, classifier.ContainsAny("我想跳过这一步", []string{"跳过"}))
	assert.True(t, classifier.ContainsAny("もうスキップしたい", []string{"スキップ"}))
	assert.True(t, classifier.ContainsAny("다음 단계로 넘어가자", []string{"넘어가"}))
	assert.False(t, classifier.ContainsAny("我想继续", []string{"跳过"}))
	// Latin keywords still need a word boundary next to CJK text.
	assert.True(t, classifier.ContainsAny("我要skip", []string{"skip"}))
	assert.False(t, classifier.ContainsAny("skipping ahead", []string{"skip"}))
}

func TestClassify_OverRelianceBeforeOffTopic(t *testing.T) {
	now := time.Now()
	c := classifier.New(classifier.DefaultPolicy())
	text := "just show me what tomorrow's weather forecast looks like in Paris please"

	s := newSession(now)
	assert.Equal(t, domain.TagOffTopicInput, c.Classify(text, s, now))

	s.Counters.AnswerRequests = 2
	assert.Equal(t, domain.TagOverRelianceSignal, c.Classify(text, s, now))
}
