package task

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferryhq/ferrytask/internal/db"
	"github.com/ferryhq/ferrytask/internal/model"
	"github.com/ferryhq/ferrytask/internal/queue"
)

func newTestRepo(t *testing.T) (*db.DB, *Repository) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	return database, NewRepository(database)
}

func TestCreateRecordsIntent(t *testing.T) {
	database, repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "Buy groceries", "milk, eggs")
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Buy groceries", created.Title)
	assert.Equal(t, "milk, eggs", created.Description)
	assert.False(t, created.Completed)
	assert.False(t, created.IsDeleted)
	assert.Equal(t, model.SyncPending, created.SyncStatus)
	assert.Equal(t, model.ServerIDUnassigned, created.ServerID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	// The intent must be durable before Create returns
	items, err := queue.New(database).DrainChronological(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].TaskID)
	assert.Equal(t, model.OpCreate, items[0].Operation)
	assert.Zero(t, items[0].RetryCount)

	snapshot, err := items[0].Snapshot()
	require.NoError(t, err)
	assert.Equal(t, created.Title, snapshot.Title)
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	_, repo := newTestRepo(t)

	_, err := repo.Create(context.Background(), "", "whatever")
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestUpdatePatchesAndEnqueues(t *testing.T) {
	database, repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "Write report", "")
	require.NoError(t, err)

	// Pretend a sync already acknowledged the create
	require.NoError(t, repo.SetSyncStatus(ctx, created.ID, model.SyncSynced))

	title := "Write quarterly report"
	completed := true
	updated, err := repo.Update(ctx, created.ID, Patch{Title: &title, Completed: &completed})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, title, updated.Title)
	assert.True(t, updated.Completed)
	assert.Equal(t, model.SyncPending, updated.SyncStatus)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	items, err := queue.New(database).DrainChronological(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.OpCreate, items[0].Operation)
	assert.Equal(t, model.OpUpdate, items[1].Operation)
}

func TestUpdateMissingTask(t *testing.T) {
	_, repo := newTestRepo(t)

	title := "ghost"
	_, err := repo.Update(context.Background(), "no-such-id", Patch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSoftDeletes(t *testing.T) {
	database, repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "Doomed task", "")
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// Invisible to reads
	_, err = repo.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// A second delete reports false
	deleted, err = repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	// The delete intent carries the final snapshot
	items, err := queue.New(database).DrainChronological(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.OpDelete, items[1].Operation)

	snapshot, err := items[1].Snapshot()
	require.NoError(t, err)
	assert.True(t, snapshot.IsDeleted)
}

func TestUpdateDeletedTask(t *testing.T) {
	_, repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "Short-lived", "")
	require.NoError(t, err)
	_, err = repo.Delete(ctx, created.ID)
	require.NoError(t, err)

	title := "resurrected"
	_, err = repo.Update(ctx, created.ID, Patch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNeedingSync(t *testing.T) {
	_, repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	repo.SetClock(func() time.Time { return clock })

	first, err := repo.Create(ctx, "first", "")
	require.NoError(t, err)

	clock = base.Add(time.Minute)
	second, err := repo.Create(ctx, "second", "")
	require.NoError(t, err)

	clock = base.Add(2 * time.Minute)
	third, err := repo.Create(ctx, "third", "")
	require.NoError(t, err)

	clock = base.Add(3 * time.Minute)
	gone, err := repo.Create(ctx, "deleted", "")
	require.NoError(t, err)

	require.NoError(t, repo.SetSyncStatus(ctx, first.ID, model.SyncSynced))
	require.NoError(t, repo.SetSyncStatus(ctx, second.ID, model.SyncError))
	_, err = repo.Delete(ctx, gone.ID)
	require.NoError(t, err)

	// Soft-deleted rows stay out even while pending; error counts as
	// pending with history. Oldest updated first.
	needing, err := repo.ListNeedingSync(ctx)
	require.NoError(t, err)
	require.Len(t, needing, 2)
	assert.Equal(t, second.ID, needing[0].ID)
	assert.Equal(t, third.ID, needing[1].ID)
}

func TestProjectionRoundTrip(t *testing.T) {
	_, repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "Round trip", "desc")
	require.NoError(t, err)

	// Before first sync the stored server_id is NULL and projects back
	// as unassigned
	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ServerIDUnassigned, got.ServerID)
	assert.Nil(t, got.LastSyncedAt)

	syncedAt := time.Date(2026, 3, 2, 8, 30, 15, 123456789, time.UTC)
	require.NoError(t, repo.MarkSynced(ctx, created.ID, "srv-42", syncedAt))

	got, err = repo.Get(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Round trip", got.Title)
	assert.Equal(t, "desc", got.Description)
	assert.Equal(t, model.SyncSynced, got.SyncStatus)
	assert.Equal(t, "srv-42", got.ServerID)
	require.NotNil(t, got.LastSyncedAt)
	assert.True(t, got.LastSyncedAt.Equal(syncedAt))
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, got.UpdatedAt.Equal(created.UpdatedAt))
}

func TestResetInFlight(t *testing.T) {
	_, repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, "In flight", "")
	require.NoError(t, err)
	synced, err := repo.Create(ctx, "Done already", "")
	require.NoError(t, err)

	require.NoError(t, repo.MarkInProgress(ctx, []string{created.ID}))
	require.NoError(t, repo.SetSyncStatus(ctx, synced.ID, model.SyncSynced))

	n, err := repo.ResetInFlight(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncPending, got.SyncStatus)

	got, err = repo.Get(ctx, synced.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncSynced, got.SyncStatus)
}
