package responders_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
	"github.com/aretw0/coach/pkg/responders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoSum = "Given an array of integers, return indices of the two numbers such that they add up to a target."

var echo = ports.GeneratorFunc(func(_ context.Context, p ports.Prompt) (string, error) {
	return p.Draft, nil
})

func session(stage domain.Stage, fields domain.DerivedFields, userText string) *domain.Session {
	s := domain.NewSessionWithID("s", twoSum, nil)
	s.CurrentStage = stage
	s.Fields = fields
	if userText != "" {
		s.Conversation = append(s.Conversation, domain.Turn{
			Role: domain.RoleUser, Text: userText, Timestamp: time.Now(), Stage: stage,
		})
	}
	return s
}

func TestDefault_OneResponderPerStage(t *testing.T) {
	all := responders.Default()
	for _, stage := range domain.AllStages() {
		s := session(stage, domain.DerivedFields{}, "")
		active := 0
		for _, r := range all {
			if r.ShouldActivate(s) {
				active++
			}
		}
		assert.Equal(t, 1, active, "stage %s", stage)
	}

	for _, r := range all {
		d, ok := r.(ports.Describer)
		require.True(t, ok)
		assert.NotEmpty(t, d.Name())
		assert.Len(t, d.Stages(), 1)
	}
}

func TestRecognizer(t *testing.T) {
	r := responders.NewRecognizer()
	s := session(domain.StageProblemClarification, domain.DerivedFields{}, "I need two indices whose values sum to target")

	require.True(t, r.ValidateContext(s))
	out, err := r.Process(context.Background(), s, echo)
	require.NoError(t, err)
	require.NoError(t, out.Validate())

	assert.Contains(t, out.Reply, "**Hash Table / Two Pointer**")
	require.NotNil(t, out.NextStage)
	assert.Equal(t, domain.StageThoughtArticulation, *out.NextStage)
	assert.Equal(t, "Hash Table / Two Pointer", out.ContextUpdates[domain.FieldIdentifiedPattern])
	assert.NotEmpty(t, out.ContextUpdates[domain.FieldComplexityExpectation])

	s.Problem = "   "
	assert.False(t, r.ValidateContext(s))
}

func TestRecognizer_GeneralProblem(t *testing.T) {
	s := session(domain.StageProblemClarification, domain.DerivedFields{}, "ok")
	s.Problem = "Print hello world."
	out, err := responders.NewRecognizer().Process(context.Background(), s, echo)
	require.NoError(t, err)
	assert.Contains(t, out.Reply, "General Problem Solving")
	assert.Contains(t, out.Reply, "understanding what we need to do")
}

func TestThoughtCoach(t *testing.T) {
	c := responders.NewThoughtCoach()
	pattern := domain.DerivedFields{IdentifiedPattern: domain.Ptr("Hash Table / Two Pointer")}

	t.Run("vague answer stays", func(t *testing.T) {
		out, err := c.Process(context.Background(), session(domain.StageThoughtArticulation, pattern, "not sure"), echo)
		require.NoError(t, err)
		assert.Nil(t, out.NextStage)
		assert.Contains(t, out.Reply, "Hash Table / Two Pointer")
	})

	t.Run("approach is recorded", func(t *testing.T) {
		text := "  I would store each number in a hash map and look up the complement  "
		out, err := c.Process(context.Background(), session(domain.StageThoughtArticulation, pattern, text), echo)
		require.NoError(t, err)
		require.NotNil(t, out.NextStage)
		assert.Equal(t, domain.StageComplexityAnalysis, *out.NextStage)
		assert.Equal(t, "I would store each number in a hash map and look up the complement", out.ContextUpdates[domain.FieldUserApproach])
	})
}

func TestComplexityCoach(t *testing.T) {
	c := responders.NewComplexityCoach()
	fields := domain.DerivedFields{ComplexityExpectation: domain.Ptr("O(n) time")}

	out, err := c.Process(context.Background(), session(domain.StageComplexityAnalysis, fields, "it is fast"), echo)
	require.NoError(t, err)
	assert.Nil(t, out.NextStage)
	assert.Contains(t, out.Reply, "Big-O")

	out, err = c.Process(context.Background(), session(domain.StageComplexityAnalysis, fields, "Linear time, O(n) space"), echo)
	require.NoError(t, err)
	require.NotNil(t, out.NextStage)
	assert.Equal(t, domain.StagePseudocodeDesign, *out.NextStage)
	assert.Contains(t, out.Reply, "O(n) time")
}

func TestCodeReviewer(t *testing.T) {
	c := responders.NewCodeReviewer()

	out, err := c.Process(context.Background(), session(domain.StagePseudocodeDesign, domain.DerivedFields{}, "I think so"), echo)
	require.NoError(t, err)
	assert.Nil(t, out.NextStage)

	code := "seen = {}\nfor i, x in nums:\n  if target - x in seen: return"
	out, err = c.Process(context.Background(), session(domain.StagePseudocodeDesign, domain.DerivedFields{}, code), echo)
	require.NoError(t, err)
	require.NotNil(t, out.NextStage)
	assert.Equal(t, domain.StageEdgeCaseCheck, *out.NextStage)
	assert.Equal(t, code, out.ContextUpdates[domain.FieldPseudocode])
}

func TestEdgeCaseReviewer(t *testing.T) {
	r := responders.NewEdgeCaseReviewer()
	assert.False(t, r.ValidateContext(session(domain.StageEdgeCaseCheck, domain.DerivedFields{}, "")))

	fields := domain.DerivedFields{Pseudocode: domain.Ptr("loop")}
	s := session(domain.StageEdgeCaseCheck, fields, "what about an empty array?")
	require.True(t, r.ValidateContext(s))

	out, err := r.Process(context.Background(), s, echo)
	require.NoError(t, err)
	assert.Nil(t, out.NextStage)
	assert.Equal(t, []string{"empty input"}, out.ContextUpdates[domain.FieldDetectedIssues])
	assert.Contains(t, out.Reply, "exactly one element")

	fields.DetectedIssues = []string{"empty input"}
	out, err = r.Process(context.Background(), session(domain.StageEdgeCaseCheck, fields, "and duplicates in the input"), echo)
	require.NoError(t, err)
	require.NotNil(t, out.NextStage)
	assert.Equal(t, domain.StageFollowUp, *out.NextStage)
	assert.True(t, out.Flag(domain.MetaEdgeCasesComplete))
	assert.Equal(t, []string{"empty input", "duplicates"}, out.ContextUpdates[domain.FieldDetectedIssues])
	assert.Contains(t, out.Reply, "empty input and duplicates")
}

func TestEdgeCaseReviewer_NothingNew(t *testing.T) {
	fields := domain.DerivedFields{Pseudocode: domain.Ptr("loop"), DetectedIssues: []string{"empty input"}}
	out, err := responders.NewEdgeCaseReviewer().Process(context.Background(),
		session(domain.StageEdgeCaseCheck, fields, "hmm"), echo)
	require.NoError(t, err)
	assert.Nil(t, out.ContextUpdates)
	assert.Nil(t, out.NextStage)
}

func TestFollowUp(t *testing.T) {
	f := responders.NewFollowUp()
	fields := domain.DerivedFields{IdentifiedPattern: domain.Ptr("Hash Table / Two Pointer")}

	out, err := f.Process(context.Background(), session(domain.StageFollowUp, fields, "ok"), echo)
	require.NoError(t, err)
	assert.Nil(t, out.NextStage)
	assert.Contains(t, out.Reply, "What if the input were sorted?")

	out, err = f.Process(context.Background(),
		session(domain.StageFollowUp, fields, "Sorting first lets two pointers meet in the middle using constant memory"), echo)
	require.NoError(t, err)
	require.NotNil(t, out.NextStage)
	assert.Equal(t, domain.StagePatternSummary, *out.NextStage)
	assert.True(t, out.Flag(domain.MetaAdvance))
}

func TestSummary(t *testing.T) {
	s := session(domain.StagePatternSummary, domain.DerivedFields{
		IdentifiedPattern: domain.Ptr("Stack"),
		UserApproach:      domain.Ptr("push opens, pop closes"),
		DetectedIssues:    []string{"empty input"},
	}, "thanks")
	s.SkippedStages = []domain.Stage{domain.StageComplexityAnalysis}

	out, err := responders.NewSummary().Process(context.Background(), s, echo)
	require.NoError(t, err)
	assert.Nil(t, out.NextStage)
	assert.Contains(t, out.Reply, "**Pattern:** Stack")
	assert.Contains(t, out.Reply, "push opens, pop closes")
	assert.Contains(t, out.Reply, "empty input")
	assert.Contains(t, out.Reply, domain.StageComplexityAnalysis.Title())
}

func TestResponders_PropagateGenerationErrors(t *testing.T) {
	failing := ports.GeneratorFunc(func(context.Context, ports.Prompt) (string, error) {
		return "", ports.ErrGenerationFailed
	})
	for _, r := range responders.Default() {
		d := r.(ports.Describer)
		s := session(d.Stages()[0], domain.DerivedFields{Pseudocode: domain.Ptr("loop")}, "hello")
		_, err := r.Process(context.Background(), s, failing)
		assert.True(t, errors.Is(err, ports.ErrGenerationFailed), d.Name())
	}
}

func TestSay_SendsRecentHistory(t *testing.T) {
	s := session(domain.StageThoughtArticulation, domain.DerivedFields{}, "")
	for i := 0; i < 10; i++ {
		s.Conversation = append(s.Conversation, domain.Turn{Role: domain.RoleUser, Text: "x", Timestamp: time.Now()})
	}
	var got ports.Prompt
	gen := ports.GeneratorFunc(func(_ context.Context, p ports.Prompt) (string, error) {
		got = p
		return p.Draft, nil
	})
	_, err := responders.NewThoughtCoach().Process(context.Background(), s, gen)
	require.NoError(t, err)
	assert.Len(t, got.History, 6)
	assert.Equal(t, domain.StageThoughtArticulation, got.Stage)
	assert.NotEmpty(t, got.Instruction)
}
