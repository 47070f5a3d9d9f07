package runtime

import (
	"fmt"
	"regexp"

	"github.com/aretw0/coach/pkg/classifier"
	"github.com/aretw0/coach/pkg/domain"
)

// EdgeCasesFunc decides whether the edge-case discussion is complete.
type EdgeCasesFunc func(s *domain.Session, out domain.Output) bool

// ResponderDeclared is the default EdgeCasesFunc: the responder says so in
// its metadata.
func ResponderDeclared(_ *domain.Session, out domain.Output) bool {
	return out.Flag(domain.MetaEdgeCasesComplete)
}

// complexityTerms mark a user turn that talks about complexity. They match
// as whole words, so "logic" or "sometimes" do not count.
var complexityTerms = []string{
	"complexity", "big o", "linear", "quadratic", "cubic", "exponential",
	"logarithmic", "log n", "constant time", "constant space", "runtime",
}

// bigO matches asymptotic notation such as O(n), o (n^2) or n**2.
var bigO = regexp.MustCompile(`(?i)\bo\s*\(|\bn\s*(\^|\*\*)\s*\d`)

// Gate is the stage transition gate. It is a pure decision function.
type Gate struct {
	EdgeCasesComplete EdgeCasesFunc
}

// Decide returns the stage that takes effect when out proposes a next stage
// for s. s must already contain this turn's field updates and user turn.
// When the proposal is dropped, ok is false and reason says why.
func (g Gate) Decide(s *domain.Session, out domain.Output) (next domain.Stage, ok bool, reason string) {
	current := s.CurrentStage
	if out.NextStage == nil {
		return current, false, ""
	}
	proposed := *out.NextStage
	if proposed == current {
		return current, false, "proposal equals current stage"
	}
	if !proposed.IsValid() {
		return current, false, fmt.Sprintf("%s is not a stage", proposed)
	}
	if ready, why := g.ready(s, out); !ready {
		return current, false, why
	}
	return proposed, true, ""
}

// ready evaluates the readiness predicate for leaving the current stage.
func (g Gate) ready(s *domain.Session, out domain.Output) (bool, string) {
	switch s.CurrentStage {
	case domain.StageProblemClarification:
		return s.Fields.IdentifiedPattern != nil, "identified pattern not set"
	case domain.StageThoughtArticulation:
		return s.Fields.UserApproach != nil, "user approach not set"
	case domain.StageComplexityAnalysis:
		return mentionsComplexity(s.LatestUserText()), "latest user turn does not discuss complexity"
	case domain.StagePseudocodeDesign:
		return s.Fields.Pseudocode != nil, "pseudocode not set"
	case domain.StageEdgeCaseCheck:
		check := g.EdgeCasesComplete
		if check == nil {
			check = ResponderDeclared
		}
		return check(s, out), "edge case discussion not complete"
	case domain.StageFollowUp:
		return out.Flag(domain.MetaAdvance), "responder did not signal advance"
	case domain.StagePatternSummary:
		return false, "pattern summary is terminal"
	}
	return false, "unknown stage"
}

func mentionsComplexity(text string) bool {
	return bigO.MatchString(text) || classifier.ContainsAny(text, complexityTerms)
}
