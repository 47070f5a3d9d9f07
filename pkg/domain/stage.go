package domain

import (
	"encoding/json"
	"fmt"
)

// Stage is one step of the ordered coaching dialogue.
type Stage int

const (
	StageProblemClarification Stage = iota
	StageThoughtArticulation
	StageComplexityAnalysis
	StagePseudocodeDesign
	StageEdgeCaseCheck
	StageFollowUp
	StagePatternSummary
)

var stageNames = [...]string{
	StageProblemClarification: "problem_clarification",
	StageThoughtArticulation:   "thought_articulation",
	StageComplexityAnalysis:    "complexity_analysis",
	StagePseudocodeDesign:      "pseudocode_design",
	StageEdgeCaseCheck:         "edge_case_check",
	StageFollowUp:              "follow_up",
	StagePatternSummary:        "pattern_summary",
}

var stageTitles = [...]string{
	StageProblemClarification: "Problem Clarification",
	StageThoughtArticulation:   "Thought Articulation",
	StageComplexityAnalysis:    "Complexity Analysis",
	StagePseudocodeDesign:      "Pseudocode Design",
	StageEdgeCaseCheck:         "Edge Case Check",
	StageFollowUp:              "Follow-Up",
	StagePatternSummary:        "Pattern Summary",
}

// AllStages returns the stages in dialogue order.
func AllStages() []Stage {
	return []Stage{
		StageProblemClarification,
		StageThoughtArticulation,
		StageComplexityAnalysis,
		StagePseudocodeDesign,
		StageEdgeCaseCheck,
		StageFollowUp,
		StagePatternSummary,
	}
}

// IsValid reports whether s is a member of the enumeration.
func (s Stage) IsValid() bool {
	return s >= StageProblemClarification && s <= StagePatternSummary
}

// IsTerminal reports whether no further advance is possible from s.
func (s Stage) IsTerminal() bool {
	return s == StagePatternSummary
}

// IsCritical reports whether a skip request against s must be refused.
func (s Stage) IsCritical() bool {
	switch s {
	case StageThoughtArticulation, StagePseudocodeDesign, StageEdgeCaseCheck:
		return true
	default:
		return false
	}
}

// Next returns the canonical successor of s. ok is false for the terminal stage
// and for values outside the enumeration.
func (s Stage) Next() (Stage, bool) {
	if !s.IsValid() || s.IsTerminal() {
		return s, false
	}
	return s + 1, true
}

// String returns the machine name used in logs, metrics and JSON.
func (s Stage) String() string {
	if !s.IsValid() {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Title returns the human-readable stage name.
func (s Stage) Title() string {
	if !s.IsValid() {
		return s.String()
	}
	return stageTitles[s]
}

// ParseStage resolves a machine name back to a Stage.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Stage) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		var n int
		if errNum := json.Unmarshal(data, &n); errNum != nil {
			return fmt.Errorf("stage must be a string or integer: %w", err)
		}
		*s = Stage(n)
		return nil
	}
	parsed, err := ParseStage(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
