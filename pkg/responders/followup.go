package responders

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/coach/pkg/classifier"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
)

var followUps = map[string]string{
	"Hash Table / Two Pointer":    "What if the input were sorted? Could you solve it without the extra memory?",
	"Binary Search / Two Pointer": "What if the array were rotated at an unknown pivot?",
	"Sliding Window":              "What if the window size had to satisfy a condition instead of being fixed?",
	"Dynamic Programming":         "Could you reduce the memory to a constant number of variables?",
	"Graph Search (DFS / BFS)":    "How would your answer change if the graph had millions of nodes?",
	"Heap / Priority Queue":       "What if the data arrived as an endless stream?",
}

const defaultFollowUp = "How would your solution change if the input no longer fit in memory?"

// minFollowUpWords is how many content words an answer needs before the
// discussion moves on.
const minFollowUpWords = 3

// FollowUp plays the interviewer's follow-up question.
type FollowUp struct {
	base
}

// NewFollowUp creates the Follow-Up responder.
func NewFollowUp() *FollowUp {
	return &FollowUp{base{name: "follow_up_generator", stages: []domain.Stage{domain.StageFollowUp}}}
}

func (f *FollowUp) Process(ctx context.Context, s *domain.Session, gen ports.Generator) (domain.Output, error) {
	question, ok := followUps[value(s.Fields.IdentifiedPattern)]
	if !ok {
		question = defaultFollowUp
	}

	if len(classifier.Keywords(s.LatestUserText())) < minFollowUpWords {
		reply, err := say(ctx, gen, s, "Ask the interviewer's follow-up question.",
			fmt.Sprintf("Here's what an interviewer might ask next: %s", question))
		if err != nil {
			return domain.Output{}, err
		}
		return domain.Succeed(reply, nil, nil), nil
	}

	reply, err := say(ctx, gen, s,
		"Acknowledge the learner's answer to the follow-up and ask them to summarize the pattern.",
		"That's the kind of trade-off interviewers want to hear. "+
			"Let's summarize: what pattern did we use here, and when would you use it again?")
	if err != nil {
		return domain.Output{}, err
	}
	out := domain.Succeed(reply, domain.StagePtr(domain.StagePatternSummary), nil)
	return out.WithMeta(domain.MetaAdvance, true), nil
}

// Summary closes the session by recapping what was covered.
type Summary struct {
	base
}

// NewSummary creates the Pattern Summary responder.
func NewSummary() *Summary {
	return &Summary{base{name: "pattern_summary", stages: []domain.Stage{domain.StagePatternSummary}}}
}

func (m *Summary) Process(ctx context.Context, s *domain.Session, gen ports.Generator) (domain.Output, error) {
	var b strings.Builder
	b.WriteString("Here's a recap of this session:\n")
	fmt.Fprintf(&b, "\n- **Pattern:** %s", value(s.Fields.IdentifiedPattern))
	if c := value(s.Fields.ComplexityExpectation); c != "" {
		fmt.Fprintf(&b, "\n- **Target complexity:** %s", c)
	}
	if a := value(s.Fields.UserApproach); a != "" {
		fmt.Fprintf(&b, "\n- **Your approach:** %s", a)
	}
	if len(s.Fields.DetectedIssues) > 0 {
		fmt.Fprintf(&b, "\n- **Edge cases covered:** %s", strings.Join(s.Fields.DetectedIssues, ", "))
	}
	if len(s.SkippedStages) > 0 {
		titles := make([]string, len(s.SkippedStages))
		for i, st := range s.SkippedStages {
			titles[i] = st.Title()
		}
		fmt.Fprintf(&b, "\n- **Skipped:** %s (worth practising next time)", strings.Join(titles, ", "))
	}
	b.WriteString("\n\nWhen you see a similar problem, look for the same clues. Feel free to ask anything else about it.")

	reply, err := say(ctx, gen, s, "Recap the session for the learner in a short list.", b.String())
	if err != nil {
		return domain.Output{}, err
	}
	return domain.Succeed(reply, nil, nil), nil
}
