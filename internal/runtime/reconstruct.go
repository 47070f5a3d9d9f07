package runtime

import (
	"slices"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/patterns"
	"github.com/aretw0/coach/pkg/ports"
)

// ReconstructFunc derives missing derivable fields from durable session data.
// It returns false when nothing could be derived.
type ReconstructFunc func(s *domain.Session) (domain.DerivedFields, bool)

// ReconstructFromProblem re-runs pattern inference on the problem statement.
func ReconstructFromProblem(s *domain.Session) (domain.DerivedFields, bool) {
	m, ok := patterns.Infer(s.Problem)
	if !ok {
		return domain.DerivedFields{}, false
	}
	var patch domain.DerivedFields
	if !s.Fields.Has(domain.FieldIdentifiedPattern) {
		patch.IdentifiedPattern = domain.Ptr(m.Pattern)
	}
	if !s.Fields.Has(domain.FieldComplexityExpectation) {
		patch.ComplexityExpectation = domain.Ptr(m.Complexity)
	}
	return patch, true
}

// DefaultRequirements lists the fields each stage's responder relies on.
func DefaultRequirements() map[domain.Stage][]string {
	return map[domain.Stage][]string{
		domain.StageThoughtArticulation: {domain.FieldIdentifiedPattern},
		domain.StageComplexityAnalysis:  {domain.FieldIdentifiedPattern, domain.FieldUserApproach},
		domain.StagePseudocodeDesign:    {domain.FieldUserApproach},
		domain.StageEdgeCaseCheck:       {domain.FieldPseudocode},
		domain.StageFollowUp:            {domain.FieldIdentifiedPattern},
		domain.StagePatternSummary:      {domain.FieldIdentifiedPattern},
	}
}

func (e *Engine) requiredFields(r ports.Responder, stage domain.Stage) []string {
	if req, ok := r.(ports.Requirer); ok {
		return req.RequiredFields(stage)
	}
	return e.requirements[stage]
}

func missingFields(s *domain.Session, required []string) []string {
	var out []string
	for _, key := range required {
		if !s.Fields.Has(key) && !slices.Contains(out, key) {
			out = append(out, key)
		}
	}
	return out
}

var (
	derivable    = map[string]bool{domain.FieldIdentifiedPattern: true, domain.FieldComplexityExpectation: true}
	userSupplied = map[string]bool{domain.FieldUserApproach: true, domain.FieldPseudocode: true}
)

func isDerivable(key string) bool    { return derivable[key] }
func isUserSupplied(key string) bool { return userSupplied[key] }

