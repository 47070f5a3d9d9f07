package responders

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/patterns"
	"github.com/aretw0/coach/pkg/ports"
)

var patternHints = map[string]string{
	"Hash Table / Two Pointer":             "Think about: if you've seen a number before, how would you remember it?",
	"Binary Search / Two Pointer":          "The array is sorted. How can we take advantage of that?",
	"Sliding Window":                       "What would you keep track of as a window moves across the input?",
	"Linked List / Fast and Slow Pointers": "What could two pointers moving at different speeds tell you?",
	"Tree Traversal (DFS / BFS)":           "What does each node need from its children, or from its parent?",
	"Graph Search (DFS / BFS)":             "How would you make sure you never visit the same cell or node twice?",
	"Heap / Priority Queue":                "Do you need the whole input sorted, or only the best k so far?",
	"Intervals / Sorting":                  "What becomes easier once the intervals are sorted by start?",
	"Dynamic Programming":                  "Can the answer for n be built from answers to smaller inputs?",
	"Stack":                                "What is the most recent unmatched thing you have seen?",
	"Backtracking":                         "How would you build a candidate one choice at a time, and undo a choice?",
}

const generalHint = "Let's start by understanding what we need to do."

// Recognizer identifies the problem's pattern during Problem Clarification
// and records the expected complexity. It gives a clue, never the solution.
type Recognizer struct {
	base
}

// NewRecognizer creates the Problem Clarification responder.
func NewRecognizer() *Recognizer {
	return &Recognizer{base{name: "problem_type_recognizer", stages: []domain.Stage{domain.StageProblemClarification}}}
}

// ValidateContext requires a problem statement.
func (r *Recognizer) ValidateContext(s *domain.Session) bool {
	return strings.TrimSpace(s.Problem) != ""
}

func (r *Recognizer) Process(ctx context.Context, s *domain.Session, gen ports.Generator) (domain.Output, error) {
	m, ok := patterns.Infer(s.Problem)
	if !ok {
		return domain.Fail("problem statement is empty"), nil
	}

	hint, found := patternHints[m.Pattern]
	if !found {
		hint = generalHint
	}
	draft := fmt.Sprintf("I notice this looks like a **%s** problem. %s", m.Pattern, hint)

	reply, err := say(ctx, gen, s,
		"Acknowledge the learner's reading of the problem, name the likely pattern and give one clue. Do not solve it.",
		draft)
	if err != nil {
		return domain.Output{}, err
	}

	return domain.Succeed(reply, domain.StagePtr(domain.StageThoughtArticulation), map[string]any{
		domain.FieldIdentifiedPattern:     m.Pattern,
		domain.FieldComplexityExpectation: m.Complexity,
	}), nil
}
