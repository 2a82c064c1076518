package sync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferryhq/ferrytask/internal/db"
	"github.com/ferryhq/ferrytask/internal/model"
	"github.com/ferryhq/ferrytask/internal/queue"
	"github.com/ferryhq/ferrytask/internal/task"
)

// fakeRemote scripts the server side of a cycle
type fakeRemote struct {
	online   bool
	err      error
	handler  func(model.BatchRequest) *model.BatchResponse
	requests []model.BatchRequest
}

func (f *fakeRemote) CheckConnectivity(ctx context.Context) bool {
	return f.online
}

func (f *fakeRemote) PostBatch(ctx context.Context, req model.BatchRequest) (*model.BatchResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.handler(req), nil
}

// allSuccess acknowledges every intent, optionally assigning server ids
func allSuccess(serverID string) func(model.BatchRequest) *model.BatchResponse {
	return func(req model.BatchRequest) *model.BatchResponse {
		resp := &model.BatchResponse{
			ServerTimestamp:  time.Now().UTC(),
			ChecksumVerified: true,
		}
		for _, it := range req.Items {
			resp.ProcessedItems = append(resp.ProcessedItems, model.ProcessedItem{
				ClientID: it.ID,
				ServerID: serverID,
				Status:   model.ItemSuccess,
			})
		}
		return resp
	}
}

func allError(msg string) func(model.BatchRequest) *model.BatchResponse {
	return func(req model.BatchRequest) *model.BatchResponse {
		resp := &model.BatchResponse{
			ServerTimestamp:  time.Now().UTC(),
			ChecksumVerified: true,
		}
		for _, it := range req.Items {
			resp.ProcessedItems = append(resp.ProcessedItems, model.ProcessedItem{
				ClientID: it.ID,
				Status:   model.ItemError,
				Error:    msg,
			})
		}
		return resp
	}
}

func newTestEngine(t *testing.T, remote Remote, opts Options) (*db.DB, *task.Repository, *Engine) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	repo := task.NewRepository(database)
	return database, repo, NewEngine(database, repo, remote, opts)
}

func TestCycleCreateThenSyncOnline(t *testing.T) {
	remote := &fakeRemote{online: true, handler: allSuccess("s1")}
	database, repo, engine := newTestEngine(t, remote, Options{})
	ctx := context.Background()

	created, err := repo.Create(ctx, "Pack bags", "")
	require.NoError(t, err)

	result := engine.RunCycle(ctx)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SyncedItems)
	assert.Zero(t, result.FailedItems)
	assert.Empty(t, result.Errors)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncSynced, got.SyncStatus)
	assert.Equal(t, "s1", got.ServerID)
	assert.NotNil(t, got.LastSyncedAt)

	n, err := queue.New(database).CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCycleOfflineLeavesQueueUntouched(t *testing.T) {
	remote := &fakeRemote{online: false}
	database, repo, engine := newTestEngine(t, remote, Options{})
	ctx := context.Background()

	created, err := repo.Create(ctx, "Stranded", "")
	require.NoError(t, err)

	result := engine.RunCycle(ctx)

	assert.False(t, result.Success)
	assert.Zero(t, result.SyncedItems)
	assert.Zero(t, result.FailedItems)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, model.ErrSourceConnection, result.Errors[0].TaskID)

	// P5: a disconnect must not advance any retry counter
	items, err := queue.New(database).DrainChronological(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Zero(t, items[0].RetryCount)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncPending, got.SyncStatus)
	assert.Empty(t, remote.requests)
}

func TestCycleEmptyQueueSucceeds(t *testing.T) {
	remote := &fakeRemote{online: true, handler: allSuccess("")}
	_, _, engine := newTestEngine(t, remote, Options{})

	result := engine.RunCycle(context.Background())

	assert.True(t, result.Success)
	assert.Zero(t, result.SyncedItems)
	assert.Empty(t, remote.requests)
}

func conflictWith(server model.Task) func(model.BatchRequest) *model.BatchResponse {
	return func(req model.BatchRequest) *model.BatchResponse {
		resp := &model.BatchResponse{
			ServerTimestamp:  time.Now().UTC(),
			ChecksumVerified: true,
		}
		for _, it := range req.Items {
			s := server
			resp.ProcessedItems = append(resp.ProcessedItems, model.ProcessedItem{
				ClientID:     it.ID,
				ServerID:     "s9",
				Status:       model.ItemConflict,
				ResolvedData: &s,
			})
		}
		return resp
	}
}

func TestConflictLocalNewerKeepsLocal(t *testing.T) {
	remote := &fakeRemote{online: true}
	database, repo, engine := newTestEngine(t, remote, Options{})
	ctx := context.Background()

	created, err := repo.Create(ctx, "local title", "")
	require.NoError(t, err)

	server := created
	server.Title = "server title"
	server.UpdatedAt = created.UpdatedAt.Add(-time.Hour)
	remote.handler = conflictWith(server)

	result := engine.RunCycle(ctx)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SyncedItems)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "local title", got.Title)
	assert.Equal(t, model.SyncSynced, got.SyncStatus)
	assert.Equal(t, "s9", got.ServerID)

	n, err := queue.New(database).CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConflictEqualTimestampsTakesServer(t *testing.T) {
	remote := &fakeRemote{online: true}
	_, repo, engine := newTestEngine(t, remote, Options{})
	ctx := context.Background()

	created, err := repo.Create(ctx, "local title", "")
	require.NoError(t, err)

	server := created
	server.Title = "server title"
	remote.handler = conflictWith(server)

	result := engine.RunCycle(ctx)
	assert.True(t, result.Success)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "server title", got.Title)
	assert.Equal(t, model.SyncSynced, got.SyncStatus)
}

func TestConflictServerNewerTakesServer(t *testing.T) {
	remote := &fakeRemote{online: true}
	_, repo, engine := newTestEngine(t, remote, Options{})
	ctx := context.Background()

	created, err := repo.Create(ctx, "local title", "")
	require.NoError(t, err)

	server := created
	server.Title = "server title"
	server.Completed = true
	server.UpdatedAt = created.UpdatedAt.Add(time.Hour)
	remote.handler = conflictWith(server)

	result := engine.RunCycle(ctx)
	assert.True(t, result.Success)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "server title", got.Title)
	assert.True(t, got.Completed)
}

func TestRetryExhaustionDeadLetters(t *testing.T) {
	remote := &fakeRemote{online: true, handler: allError("boom 1")}
	database, repo, engine := newTestEngine(t, remote, Options{MaxRetries: 3})
	ctx := context.Background()

	created, err := repo.Create(ctx, "Cursed task", "")
	require.NoError(t, err)

	// First failure: retry budget left, intent stays queued
	result := engine.RunCycle(ctx)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.FailedItems)

	items, err := queue.New(database).DrainChronological(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].RetryCount)
	assert.Equal(t, "boom 1", items[0].ErrorMessage)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncError, got.SyncStatus)

	// Second failure
	remote.handler = allError("boom 2")
	engine.RunCycle(ctx)

	items, err = queue.New(database).DrainChronological(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].RetryCount)

	// Third failure exhausts the budget: atomic move to quarantine
	remote.handler = allError("boom 3")
	result = engine.RunCycle(ctx)
	assert.False(t, result.Success)

	n, err := queue.New(database).CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	letters, err := queue.NewDeadLetters(database).List(ctx)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, created.ID, letters[0].TaskID)
	assert.Equal(t, "boom 3", letters[0].FinalErrorMessage)
	assert.Equal(t, 3, letters[0].RetryCount)

	got, err = repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncFailed, got.SyncStatus)
}

func TestChronologicalBatching(t *testing.T) {
	remote := &fakeRemote{online: true, handler: allSuccess("s1")}
	_, repo, engine := newTestEngine(t, remote, Options{BatchSize: 2})
	ctx := context.Background()

	created, err := repo.Create(ctx, "Task T", "")
	require.NoError(t, err)
	title := "Task T v2"
	_, err = repo.Update(ctx, created.ID, task.Patch{Title: &title})
	require.NoError(t, err)
	_, err = repo.Delete(ctx, created.ID)
	require.NoError(t, err)

	result := engine.RunCycle(ctx)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.SyncedItems)

	// Two batches: [create, update] then [delete], in mutation order
	require.Len(t, remote.requests, 2)
	require.Len(t, remote.requests[0].Items, 2)
	require.Len(t, remote.requests[1].Items, 1)
	assert.Equal(t, model.OpCreate, remote.requests[0].Items[0].Operation)
	assert.Equal(t, model.OpUpdate, remote.requests[0].Items[1].Operation)
	assert.Equal(t, model.OpDelete, remote.requests[1].Items[0].Operation)

	// Checksum covers each batch in submission order
	assert.Equal(t, BatchChecksum(remote.requests[0].Items), remote.requests[0].Checksum)
	assert.Equal(t, BatchChecksum(remote.requests[1].Items), remote.requests[1].Checksum)
}

func TestTransportFailureRunsFailureHandlerPerBatch(t *testing.T) {
	remote := &fakeRemote{online: true, err: errors.New("connection reset")}
	database, repo, engine := newTestEngine(t, remote, Options{BatchSize: 1, MaxRetries: 3})
	ctx := context.Background()

	first, err := repo.Create(ctx, "one", "")
	require.NoError(t, err)
	second, err := repo.Create(ctx, "two", "")
	require.NoError(t, err)

	result := engine.RunCycle(ctx)

	// One failed batch does not abort the cycle; both batches were tried
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.FailedItems)
	assert.Len(t, remote.requests, 2)

	items, err := queue.New(database).DrainChronological(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, 1, it.RetryCount)
		assert.Equal(t, "connection reset", it.ErrorMessage)
	}

	for _, id := range []string{first.ID, second.ID} {
		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.SyncError, got.SyncStatus)
	}
}

func TestMissingResponseItemHandledAsFailure(t *testing.T) {
	remote := &fakeRemote{online: true, handler: func(req model.BatchRequest) *model.BatchResponse {
		return &model.BatchResponse{ServerTimestamp: time.Now().UTC(), ChecksumVerified: true}
	}}
	database, _, engine := newTestEngine(t, remote, Options{MaxRetries: 3})
	ctx := context.Background()

	repo := task.NewRepository(database)
	_, err := repo.Create(ctx, "Ignored by server", "")
	require.NoError(t, err)

	result := engine.RunCycle(ctx)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.FailedItems)

	items, err := queue.New(database).DrainChronological(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].RetryCount)
}

func TestStatusSurface(t *testing.T) {
	remote := &fakeRemote{online: true, handler: allSuccess("s1")}
	_, repo, engine := newTestEngine(t, remote, Options{})
	ctx := context.Background()

	_, err := repo.Create(ctx, "Counted", "")
	require.NoError(t, err)

	n, err := engine.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	last, err := engine.LastSyncedAt(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	engine.RunCycle(ctx)

	n, err = engine.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	last, err = engine.LastSyncedAt(ctx)
	require.NoError(t, err)
	assert.NotNil(t, last)

	letters, err := engine.DeadLetterContents(ctx)
	require.NoError(t, err)
	assert.Empty(t, letters)

	assert.True(t, engine.CheckConnectivity(ctx))
}
