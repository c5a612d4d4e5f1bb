package badgerdb

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniversariantes/api/internal/models"
	"github.com/aniversariantes/api/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestCreateAssignsIDAndPersists(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.Create(ctx, models.Birthday{
		RealName:    "Ana Silva",
		DisplayName: "Ana",
		ChatHandle:  "@ana",
		BirthDate:   "2000-07-04",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, created.ID, all[0].ID)
	assert.Equal(t, "Ana Silva", all[0].RealName)
	assert.Equal(t, "@ana", all[0].ChatHandle)
	assert.Equal(t, "2000-07-04", all[0].BirthDate)
}

func TestListAllPreservesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	const n = 25
	for i := 0; i < n; i++ {
		_, err := store.Create(ctx, models.Birthday{
			RealName:    fmt.Sprintf("Pessoa %d", i),
			DisplayName: fmt.Sprintf("P%d", i),
			ChatHandle:  fmt.Sprintf("@p%d", i),
			BirthDate:   "1990-01-01",
		})
		require.NoError(t, err)
	}

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, fmt.Sprintf("Pessoa %d", i), all[i].RealName)
	}
}

func TestFindByHandleFirstMatchAndMiss(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first, err := store.Create(ctx, models.Birthday{
		RealName: "Ana Silva", DisplayName: "Ana", ChatHandle: "@shared", BirthDate: "2000-07-04",
	})
	require.NoError(t, err)
	_, err = store.Create(ctx, models.Birthday{
		RealName: "Bruno Costa", DisplayName: "Bruno", ChatHandle: "@shared", BirthDate: "1995-12-25",
	})
	require.NoError(t, err)

	found, err := store.FindByHandle(ctx, "@shared")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = store.FindByHandle(ctx, "@missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMarkNotifiedOncePerDay(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.Create(ctx, models.Birthday{
		RealName: "Ana Silva", DisplayName: "Ana", ChatHandle: "@ana", BirthDate: "2000-07-04",
	})
	require.NoError(t, err)

	claimed, err := store.MarkNotified(ctx, created.ID, "2024-07-04")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.MarkNotified(ctx, created.ID, "2024-07-04")
	require.NoError(t, err)
	assert.False(t, claimed)

	claimed, err = store.MarkNotified(ctx, created.ID, "2025-07-04")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.MarkNotified(ctx, "no-such-id", "2024-07-04")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestMarkerSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewBirthdayStore(dir)
	require.NoError(t, err)

	created, err := store.Create(ctx, models.Birthday{
		RealName: "Ana Silva", DisplayName: "Ana", ChatHandle: "@ana", BirthDate: "2000-07-04",
	})
	require.NoError(t, err)

	claimed, err := store.MarkNotified(ctx, created.ID, "2024-07-04")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, store.Close())

	reopened, err := NewBirthdayStore(dir)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, reopened.Close())
	}()

	claimed, err = reopened.MarkNotified(ctx, created.ID, "2024-07-04")
	require.NoError(t, err)
	assert.False(t, claimed, "a restart must not reset the day's marker")

	all, err := reopened.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "2024-07-04", all[0].LastNotifiedOn)
}

func TestMarkerSurvivesInListAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.Create(ctx, models.Birthday{
		RealName: "Ana Silva", DisplayName: "Ana", ChatHandle: "@ana", BirthDate: "2000-07-04",
	})
	require.NoError(t, err)

	_, err = store.MarkNotified(ctx, created.ID, "2024-07-04")
	require.NoError(t, err)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "2024-07-04", all[0].LastNotifiedOn)
}
