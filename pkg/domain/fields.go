package domain

import "slices"

// Derived field keys. These are the only keys a responder may propose in
// Output.ContextUpdates.
const (
	FieldIdentifiedPattern     = "identified_pattern"
	FieldComplexityExpectation = "complexity_expectation"
	FieldUserApproach          = "user_approach"
	FieldPseudocode            = "pseudocode"
	FieldDetectedIssues        = "detected_issues"
)

// DerivedFieldKeys lists the permitted update keys in declaration order.
func DerivedFieldKeys() []string {
	return []string{
		FieldIdentifiedPattern,
		FieldComplexityExpectation,
		FieldUserApproach,
		FieldPseudocode,
		FieldDetectedIssues,
	}
}

// IsDerivedField reports whether key is a permitted update key.
func IsDerivedField(key string) bool {
	return slices.Contains(DerivedFieldKeys(), key)
}

// DerivedFields holds the per-stage results. A nil value means "not produced yet".
type DerivedFields struct {
	IdentifiedPattern     *string  `json:"identified_pattern,omitempty" mapstructure:"identified_pattern"`
	ComplexityExpectation *string  `json:"complexity_expectation,omitempty" mapstructure:"complexity_expectation"`
	UserApproach          *string  `json:"user_approach,omitempty" mapstructure:"user_approach"`
	Pseudocode            *string  `json:"pseudocode,omitempty" mapstructure:"pseudocode"`
	DetectedIssues        []string `json:"detected_issues,omitempty" mapstructure:"detected_issues"`
}

// Clone returns a copy that shares no pointers with f.
func (f DerivedFields) Clone() DerivedFields {
	return DerivedFields{
		IdentifiedPattern:     clonePtr(f.IdentifiedPattern),
		ComplexityExpectation: clonePtr(f.ComplexityExpectation),
		UserApproach:          clonePtr(f.UserApproach),
		Pseudocode:            clonePtr(f.Pseudocode),
		DetectedIssues:        slices.Clone(f.DetectedIssues),
	}
}

// Has reports whether the field named key has been produced.
func (f DerivedFields) Has(key string) bool {
	switch key {
	case FieldIdentifiedPattern:
		return f.IdentifiedPattern != nil
	case FieldComplexityExpectation:
		return f.ComplexityExpectation != nil
	case FieldUserApproach:
		return f.UserApproach != nil
	case FieldPseudocode:
		return f.Pseudocode != nil
	case FieldDetectedIssues:
		return f.DetectedIssues != nil
	}
	return false
}

// Merge overlays every produced field of patch onto f.
func (f *DerivedFields) Merge(patch DerivedFields) {
	if patch.IdentifiedPattern != nil {
		f.IdentifiedPattern = clonePtr(patch.IdentifiedPattern)
	}
	if patch.ComplexityExpectation != nil {
		f.ComplexityExpectation = clonePtr(patch.ComplexityExpectation)
	}
	if patch.UserApproach != nil {
		f.UserApproach = clonePtr(patch.UserApproach)
	}
	if patch.Pseudocode != nil {
		f.Pseudocode = clonePtr(patch.Pseudocode)
	}
	if patch.DetectedIssues != nil {
		f.DetectedIssues = slices.Clone(patch.DetectedIssues)
	}
}

// Value returns the field as a loosely typed value, nil when unset.
func (f DerivedFields) Value(key string) any {
	switch key {
	case FieldIdentifiedPattern:
		return deref(f.IdentifiedPattern)
	case FieldComplexityExpectation:
		return deref(f.ComplexityExpectation)
	case FieldUserApproach:
		return deref(f.UserApproach)
	case FieldPseudocode:
		return deref(f.Pseudocode)
	case FieldDetectedIssues:
		if f.DetectedIssues == nil {
			return nil
		}
		return slices.Clone(f.DetectedIssues)
	}
	return nil
}

// Ptr is a small helper for building DerivedFields literals.
func Ptr(s string) *string { return &s }

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func deref(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
