package responders

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
)

// codeMarkers mark a turn that reads like pseudocode.
var codeMarkers = []string{
	"for ", "while ", "if ", "return", "else", "foreach", ":=", "==", "+=", "def ", "func ", "function",
}

// CodeReviewer collects the learner's pseudocode.
type CodeReviewer struct {
	base
}

// NewCodeReviewer creates the Pseudocode Design responder.
func NewCodeReviewer() *CodeReviewer {
	return &CodeReviewer{base{name: "code_reviewer", stages: []domain.Stage{domain.StagePseudocodeDesign}}}
}

func (c *CodeReviewer) Process(ctx context.Context, s *domain.Session, gen ports.Generator) (domain.Output, error) {
	text := s.LatestUserText()
	if !looksLikeCode(text) {
		reply, err := say(ctx, gen, s,
			"Ask the learner to write the main steps as pseudocode.",
			"Let's make it concrete. Could you write the main loop and the key checks as pseudocode?")
		if err != nil {
			return domain.Output{}, err
		}
		return domain.Succeed(reply, nil, nil), nil
	}

	reply, err := say(ctx, gen, s,
		"Acknowledge the pseudocode without pointing out bugs and ask which edge cases it must handle.",
		"Nice, that's a clear structure. Now walk it through some tricky inputs: what edge cases should we consider?")
	if err != nil {
		return domain.Output{}, err
	}
	return domain.Succeed(reply, domain.StagePtr(domain.StageEdgeCaseCheck), map[string]any{
		domain.FieldPseudocode: strings.TrimSpace(text),
	}), nil
}

func looksLikeCode(text string) bool {
	t := lower(text)
	return strings.Count(t, "\n") >= 2 || containsAny(t, codeMarkers...)
}

type edgeCase struct {
	name     string
	terms    []string
	question string
}

var edgeCases = []edgeCase{
	{"empty input", []string{"empty", "no element", "zero element", "null", "nil", "none"}, "What does your pseudocode do when the input is empty?"},
	{"single element", []string{"single", "one element", "only one", "length 1", "size 1"}, "What happens with exactly one element?"},
	{"duplicates", []string{"duplicate", "repeated", "same value", "same number"}, "What if the same value appears more than once?"},
	{"negative values", []string{"negative", "minus"}, "Does anything change if some values are negative?"},
	{"large input", []string{"large", "overflow", "huge", "max int", "big input"}, "What happens with very large inputs or values?"},
	{"no solution", []string{"no solution", "not found", "no answer", "no pair", "doesn't exist", "does not exist"}, "What should happen when there is no valid answer?"},
}

// EdgeCaseTarget is how many distinct edge-case categories the learner must
// cover before the stage is complete.
const EdgeCaseTarget = 2

// EdgeCaseReviewer asks about edge cases until enough categories are covered,
// recording each one in detected_issues.
type EdgeCaseReviewer struct {
	base
}

// NewEdgeCaseReviewer creates the Edge Case Check responder.
func NewEdgeCaseReviewer() *EdgeCaseReviewer {
	return &EdgeCaseReviewer{base{name: "edge_case_reviewer", stages: []domain.Stage{domain.StageEdgeCaseCheck}}}
}

// ValidateContext requires pseudocode to review.
func (r *EdgeCaseReviewer) ValidateContext(s *domain.Session) bool {
	return s.Fields.Pseudocode != nil
}

func (r *EdgeCaseReviewer) Process(ctx context.Context, s *domain.Session, gen ports.Generator) (domain.Output, error) {
	covered := slices.Clone(s.Fields.DetectedIssues)
	t := lower(s.LatestUserText())
	for _, ec := range edgeCases {
		if !slices.Contains(covered, ec.name) && containsAny(t, ec.terms...) {
			covered = append(covered, ec.name)
		}
	}

	var updates map[string]any
	if len(covered) > len(s.Fields.DetectedIssues) {
		updates = map[string]any{domain.FieldDetectedIssues: covered}
	}

	if len(covered) < EdgeCaseTarget {
		draft := "Good start. " + nextQuestion(covered)
		if len(covered) == 0 {
			draft = "Let's stress-test the pseudocode. " + nextQuestion(covered)
		}
		reply, err := say(ctx, gen, s, "Ask one question about an edge case the learner has not covered yet.", draft)
		if err != nil {
			return domain.Output{}, err
		}
		return domain.Succeed(reply, nil, updates), nil
	}

	draft := fmt.Sprintf("You've covered %s. Great work! Now let's think about: could we optimize this further?",
		strings.Join(covered, " and "))
	reply, err := say(ctx, gen, s,
		"Confirm the edge cases the learner covered and open the follow-up discussion.",
		draft)
	if err != nil {
		return domain.Output{}, err
	}
	out := domain.Succeed(reply, domain.StagePtr(domain.StageFollowUp), updates)
	return out.WithMeta(domain.MetaEdgeCasesComplete, true), nil
}

func nextQuestion(covered []string) string {
	for _, ec := range edgeCases {
		if !slices.Contains(covered, ec.name) {
			return ec.question
		}
	}
	return "Is there any other input that could break it?"
}
