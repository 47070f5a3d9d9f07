package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		sess := domain.NewSessionWithID(sessionID, "Find two numbers that add up to target", map[string]any{"difficulty": "easy"})
		sess.CurrentStage = domain.StageThoughtArticulation
		sess.StageHistory = []domain.Stage{domain.StageProblemClarification, domain.StageThoughtArticulation}
		sess.Fields.IdentifiedPattern = domain.Ptr("Hash Table")
		sess.Fields.DetectedIssues = []string{"empty array"}
		sess.Counters.TotalAnswerRequests = 2
		sess.Flags.SkipRequested = true
		sess.Conversation = []domain.Turn{
			{Role: domain.RoleUser, Text: "use a map", Timestamp: time.Now().UTC(), Stage: domain.StageProblemClarification},
		}

		err := store.Save(ctx, sessionID, sess)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sess.ID, loaded.ID)
		assert.Equal(t, sess.Problem, loaded.Problem)
		assert.Equal(t, sess.CurrentStage, loaded.CurrentStage)
		assert.Equal(t, sess.StageHistory, loaded.StageHistory)
		require.NotNil(t, loaded.Fields.IdentifiedPattern)
		assert.Equal(t, "Hash Table", *loaded.Fields.IdentifiedPattern)
		assert.Equal(t, []string{"empty array"}, loaded.Fields.DetectedIssues)
		assert.Equal(t, 2, loaded.Counters.TotalAnswerRequests)
		assert.True(t, loaded.Flags.SkipRequested)
		require.Len(t, loaded.Conversation, 1)
		assert.Equal(t, "use a map", loaded.Conversation[0].Text)
		assert.Equal(t, "easy", loaded.ProblemMetadata["difficulty"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSessionWithID(sessionID, "p", nil))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSessionWithID(id1, "p", nil))
		_ = store.Save(ctx, id2, domain.NewSessionWithID(id2, "p", nil))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
