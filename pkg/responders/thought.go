package responders

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
)

// approachTerms mark a turn that describes how to solve the problem.
var approachTerms = []string{
	"loop", "iterate", "for each", "hash", "map", "set", "sort", "pointer", "window",
	"recurs", "brute", "stack", "queue", "heap", "dfs", "bfs", "binary search", "dp",
	"memo", "traverse", "scan", "count",
}

// minApproachLength is the shortest turn accepted as an approach without any
// recognisable technique in it.
const minApproachLength = 60

// ThoughtCoach asks the learner to articulate an approach and records it.
type ThoughtCoach struct {
	base
}

// NewThoughtCoach creates the Thought Articulation responder.
func NewThoughtCoach() *ThoughtCoach {
	return &ThoughtCoach{base{name: "guided_thought_generator", stages: []domain.Stage{domain.StageThoughtArticulation}}}
}

func (c *ThoughtCoach) Process(ctx context.Context, s *domain.Session, gen ports.Generator) (domain.Output, error) {
	text := s.LatestUserText()
	if !describesApproach(text) {
		draft := "Let's think about this step by step. What would be the simplest approach, even if it is not optimal?"
		if p := value(s.Fields.IdentifiedPattern); p != "" {
			draft = fmt.Sprintf("We said this looks like a %s problem. How would you use that idea here, step by step?", p)
		}
		reply, err := say(ctx, gen, s, "Ask the learner to describe an approach in their own words.", draft)
		if err != nil {
			return domain.Output{}, err
		}
		return domain.Succeed(reply, nil, nil), nil
	}

	reply, err := say(ctx, gen, s,
		"Briefly reflect the learner's approach back and ask about its time and space complexity.",
		"That's a reasonable plan. Before we write anything, what is the time and space complexity of this approach?")
	if err != nil {
		return domain.Output{}, err
	}
	return domain.Succeed(reply, domain.StagePtr(domain.StageComplexityAnalysis), map[string]any{
		domain.FieldUserApproach: strings.TrimSpace(text),
	}), nil
}

func describesApproach(text string) bool {
	t := lower(text)
	return len(t) >= minApproachLength || containsAny(t, approachTerms...)
}

var complexityTerms = []string{"o(", "big o", "big-o", "linear", "quadratic", "log n", "logarithmic"}

// ComplexityCoach checks that the learner states a complexity and compares it
// with the expectation recorded for the pattern.
type ComplexityCoach struct {
	base
}

// NewComplexityCoach creates the Complexity Analysis responder.
func NewComplexityCoach() *ComplexityCoach {
	return &ComplexityCoach{base{name: "complexity_coach", stages: []domain.Stage{domain.StageComplexityAnalysis}}}
}

func (c *ComplexityCoach) Process(ctx context.Context, s *domain.Session, gen ports.Generator) (domain.Output, error) {
	t := lower(s.LatestUserText())
	if !containsAny(t, complexityTerms...) {
		reply, err := say(ctx, gen, s,
			"Ask the learner to state the time and space complexity in Big-O terms.",
			"Can you put that in Big-O terms? How does the running time grow with the input size, and how much extra space do you use?")
		if err != nil {
			return domain.Output{}, err
		}
		return domain.Succeed(reply, nil, nil), nil
	}

	draft := "Good analysis. Now let's write out the pseudocode or main logic structure."
	if want := value(s.Fields.ComplexityExpectation); want != "" {
		draft = fmt.Sprintf("Good. A typical target here is %s. Now let's write out the pseudocode or main logic structure.", want)
	}
	reply, err := say(ctx, gen, s,
		"Acknowledge the complexity analysis, mention the usual target, and ask for pseudocode.",
		draft)
	if err != nil {
		return domain.Output{}, err
	}
	return domain.Succeed(reply, domain.StagePtr(domain.StagePseudocodeDesign), nil), nil
}
