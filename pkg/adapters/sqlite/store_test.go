package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/coach/pkg/adapters/sqlite"
	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "data", "coach.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, openStore(t))
}

func TestSQLiteStore_Upsert(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	sess := domain.NewSessionWithID("u1", "Two sum", nil)
	require.NoError(t, store.Save(ctx, "u1", sess))

	sess.CurrentStage = domain.StageThoughtArticulation
	sess.StageHistory = []domain.Stage{domain.StageProblemClarification, domain.StageThoughtArticulation}
	require.NoError(t, store.Save(ctx, "u1", sess))

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageThoughtArticulation, loaded.CurrentStage)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coach.db")
	ctx := context.Background()

	store, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "persisted", domain.NewSessionWithID("persisted", "Two sum", nil)))
	require.NoError(t, store.Close())

	reopened, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, "Two sum", loaded.Problem)
}
