package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDiff(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	userTurn := Turn{Role: RoleUser, Text: "hash map?", Timestamp: t0, Stage: StageProblemClarification}
	replyTurn := Turn{Role: RoleAssistant, Text: "Good idea", Timestamp: t0.Add(time.Second), Stage: StageProblemClarification}

	tests := []struct {
		name     string
		old      *Session
		new      *Session
		wantDiff *SessionDiff // nil means we expect no diff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &Session{
				ID:           "sess-1",
				CurrentStage: StageProblemClarification,
				Fields:       DerivedFields{IdentifiedPattern: Ptr("Two Pointer")},
				Conversation: []Turn{userTurn},
			},
			wantDiff: &SessionDiff{
				SessionID: "sess-1",
				Stage:     StagePtr(StageProblemClarification),
				Fields:    map[string]any{FieldIdentifiedPattern: "Two Pointer"},
				Turns:     []Turn{userTurn},
			},
		},
		{
			name: "No Changes",
			old: &Session{
				ID:           "sess-1",
				CurrentStage: StageThoughtArticulation,
				Conversation: []Turn{userTurn},
			},
			new: &Session{
				ID:           "sess-1",
				CurrentStage: StageThoughtArticulation,
				Conversation: []Turn{userTurn},
			},
			wantDiff: nil,
		},
		{
			name: "Stage Change & Turns Appended",
			old: &Session{
				ID:           "sess-1",
				CurrentStage: StageProblemClarification,
				Conversation: []Turn{userTurn},
			},
			new: &Session{
				ID:           "sess-1",
				CurrentStage: StageThoughtArticulation,
				Conversation: []Turn{userTurn, replyTurn},
			},
			wantDiff: &SessionDiff{
				SessionID: "sess-1",
				Stage:     StagePtr(StageThoughtArticulation),
				Turns:     []Turn{replyTurn},
			},
		},
		{
			name: "Fields Added & Cleared",
			old: &Session{
				ID:     "sess-1",
				Fields: DerivedFields{Pseudocode: Ptr("for i in nums")},
			},
			new: &Session{
				ID:     "sess-1",
				Fields: DerivedFields{DetectedIssues: []string{"off by one"}},
			},
			wantDiff: &SessionDiff{
				SessionID: "sess-1",
				Fields: map[string]any{
					FieldPseudocode:     nil,
					FieldDetectedIssues: []string{"off by one"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantDiff == nil {
				if got != nil {
					t.Errorf("Diff() = %+v, want nil", got)
				}
				return
			}

			if got == nil {
				t.Fatalf("Diff() = nil, want %+v", tt.wantDiff)
			}

			if got.SessionID != tt.wantDiff.SessionID {
				t.Errorf("Diff().SessionID = %v, want %v", got.SessionID, tt.wantDiff.SessionID)
			}
			if !reflect.DeepEqual(got.Fields, tt.wantDiff.Fields) {
				t.Errorf("Diff().Fields = %v, want %v", got.Fields, tt.wantDiff.Fields)
			}
			if !reflect.DeepEqual(got.Turns, tt.wantDiff.Turns) {
				t.Errorf("Diff().Turns = %v, want %v", got.Turns, tt.wantDiff.Turns)
			}
			if !equalPtr(got.Stage, tt.wantDiff.Stage) {
				t.Errorf("Diff().Stage = %v, want %v", got.Stage, tt.wantDiff.Stage)
			}
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Empty Fields Omitted", func(t *testing.T) {
		s1 := &Session{ID: "a", CurrentStage: StageFollowUp}
		s2 := &Session{ID: "a", CurrentStage: StagePatternSummary}
		diff := Diff(s1, s2)
		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		if strings.Contains(string(bytes), `"fields"`) {
			t.Errorf("JSON should not contain 'fields' when empty, got: %s", string(bytes))
		}
		if !strings.Contains(string(bytes), `"stage":"pattern_summary"`) {
			t.Errorf("JSON should carry the stage name, got: %s", string(bytes))
		}
	})

	t.Run("Cleared Field as Null", func(t *testing.T) {
		s1 := &Session{ID: "a", Fields: DerivedFields{UserApproach: Ptr("sort first")}}
		s2 := &Session{ID: "a"}
		diff := Diff(s1, s2)
		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		if !strings.Contains(string(bytes), `"user_approach":null`) {
			t.Errorf("JSON should contain 'user_approach':null for a cleared field, got: %s", string(bytes))
		}
	})
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
