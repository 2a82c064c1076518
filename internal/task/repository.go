// Package task provides durable CRUD over the local task replica. Every
// mutation records a sync intent in the same transaction as the row
// write, so an acknowledged change can never be lost before upload.
package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ferryhq/ferrytask/internal/db"
	"github.com/ferryhq/ferrytask/internal/logger"
	"github.com/ferryhq/ferrytask/internal/model"
	"github.com/ferryhq/ferrytask/internal/queue"
)

var (
	// ErrNotFound is returned when a task is missing or soft-deleted
	ErrNotFound = errors.New("task not found")
	// ErrEmptyTitle is returned when a task is created without a title
	ErrEmptyTitle = errors.New("task title must not be empty")
)

// Patch carries the mutable fields of an update. Nil fields are left
// untouched; the task id is never patchable.
type Patch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// Repository is the durable task store
type Repository struct {
	db  *db.DB
	now func() time.Time
}

// NewRepository creates a repository over the open database
func NewRepository(d *db.DB) *Repository {
	return &Repository{db: d, now: time.Now}
}

// SetClock overrides the repository clock, for tests
func (r *Repository) SetClock(now func() time.Time) {
	r.now = now
}

// Create allocates a fresh task and appends its create intent atomically
func (r *Repository) Create(ctx context.Context, title, description string) (model.Task, error) {
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}

	t := model.NewTask(uuid.New().String(), title, description, r.now().UTC())

	err := r.db.WithTx(ctx, func(s db.Store) error {
		if err := insertTask(ctx, s, t); err != nil {
			return err
		}
		_, err := queue.New(s).Enqueue(ctx, t.ID, model.OpCreate, t)
		return err
	})
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to create task: %w", err)
	}

	logger.Debug("Task created", logger.F("id", t.ID), logger.F("title", t.Title))
	return t, nil
}

// Update overwrites the mutable fields of a live task and appends an
// update intent atomically. Returns ErrNotFound if the task is missing
// or soft-deleted.
func (r *Repository) Update(ctx context.Context, id string, patch Patch) (model.Task, error) {
	var updated model.Task

	err := r.db.WithTx(ctx, func(s db.Store) error {
		t, err := getLive(ctx, s, id)
		if err != nil {
			return err
		}

		if patch.Title != nil {
			t.Title = *patch.Title
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Completed != nil {
			t.Completed = *patch.Completed
		}
		t.UpdatedAt = r.now().UTC()
		t.SyncStatus = model.SyncPending

		if err := writeTask(ctx, s, t); err != nil {
			return err
		}
		if _, err := queue.New(s).Enqueue(ctx, t.ID, model.OpUpdate, t); err != nil {
			return err
		}

		updated = t
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, fmt.Errorf("failed to update task: %w", err)
	}

	logger.Debug("Task updated", logger.F("id", id))
	return updated, nil
}

// Delete soft-deletes a live task and appends a delete intent carrying
// the final snapshot. Returns false if the task is missing or already
// deleted.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	err := r.db.WithTx(ctx, func(s db.Store) error {
		t, err := getLive(ctx, s, id)
		if err != nil {
			return err
		}

		t.IsDeleted = true
		t.UpdatedAt = r.now().UTC()
		t.SyncStatus = model.SyncPending

		if err := writeTask(ctx, s, t); err != nil {
			return err
		}
		_, err = queue.New(s).Enqueue(ctx, t.ID, model.OpDelete, t)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}

	logger.Debug("Task deleted", logger.F("id", id))
	return true, nil
}

// Get returns a live task by id. Soft-deleted rows are invisible here.
func (r *Repository) Get(ctx context.Context, id string) (model.Task, error) {
	return getLive(ctx, r.db, id)
}

// ListAll returns every live task, newest-updated first
func (r *Repository) ListAll(ctx context.Context) ([]model.Task, error) {
	return listTasks(ctx, r.db, `
		SELECT `+taskColumns+` FROM tasks
		WHERE is_deleted = 0
		ORDER BY updated_at DESC`)
}

// ListNeedingSync returns every live task whose status is pending or
// error, oldest-updated first so retries go out before fresh work.
func (r *Repository) ListNeedingSync(ctx context.Context) ([]model.Task, error) {
	return listTasks(ctx, r.db, `
		SELECT `+taskColumns+` FROM tasks
		WHERE is_deleted = 0 AND sync_status IN ('pending', 'error')
		ORDER BY updated_at ASC`)
}

// MarkInProgress flags the given tasks as having intents in flight
func (r *Repository) MarkInProgress(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := r.db.Run(ctx, `
			UPDATE tasks SET sync_status = ? WHERE id = ?`,
			string(model.SyncInProgress), id,
		); err != nil {
			return fmt.Errorf("failed to mark task in-progress: %w", err)
		}
	}
	return nil
}

// SetSyncStatus records a sync outcome on a task
func (r *Repository) SetSyncStatus(ctx context.Context, id string, status model.SyncStatus) error {
	if _, err := r.db.Run(ctx, `
		UPDATE tasks SET sync_status = ? WHERE id = ?`,
		string(status), id,
	); err != nil {
		return fmt.Errorf("failed to set sync status: %w", err)
	}
	return nil
}

// MarkSynced records a successful acknowledgement. The server id is only
// written when the server assigned one.
func (r *Repository) MarkSynced(ctx context.Context, id, serverID string, at time.Time) error {
	return MarkSynced(ctx, r.db, id, serverID, at)
}

// MarkSynced is the store-scoped form of Repository.MarkSynced, so the
// sync engine can commit it together with the queue cleanup that must
// land in the same transaction.
func MarkSynced(ctx context.Context, s db.Store, id, serverID string, at time.Time) error {
	var err error
	if serverID != "" && serverID != model.ServerIDUnassigned {
		_, err = s.Run(ctx, `
			UPDATE tasks SET sync_status = ?, last_synced_at = ?, server_id = ? WHERE id = ?`,
			string(model.SyncSynced), model.FormatTime(at), serverID, id)
	} else {
		_, err = s.Run(ctx, `
			UPDATE tasks SET sync_status = ?, last_synced_at = ? WHERE id = ?`,
			string(model.SyncSynced), model.FormatTime(at), id)
	}
	if err != nil {
		return fmt.Errorf("failed to mark task synced: %w", err)
	}
	return nil
}

// ApplyResolved persists the winning snapshot of a conflict as synced.
// The whole row is overwritten; conflicts resolve at entity granularity.
func (r *Repository) ApplyResolved(ctx context.Context, winner model.Task, serverID string, at time.Time) error {
	err := r.db.WithTx(ctx, func(s db.Store) error {
		return ApplyResolved(ctx, s, winner, serverID, at)
	})
	if err != nil {
		return fmt.Errorf("failed to apply resolved snapshot: %w", err)
	}
	return nil
}

// ApplyResolved is the store-scoped form of Repository.ApplyResolved,
// composable into a caller's transaction.
func ApplyResolved(ctx context.Context, s db.Store, winner model.Task, serverID string, at time.Time) error {
	winner.SyncStatus = model.SyncSynced
	winner.LastSyncedAt = &at
	if serverID != "" {
		winner.ServerID = serverID
	}

	if err := deleteRow(ctx, s, winner.ID); err != nil {
		return err
	}
	return insertTask(ctx, s, winner)
}

// ResetInFlight returns dangling in-progress tasks to pending. Called on
// startup; a crash mid-cycle leaves the advisory marker behind.
func (r *Repository) ResetInFlight(ctx context.Context) (int, error) {
	res, err := r.db.Run(ctx, `
		UPDATE tasks SET sync_status = ? WHERE sync_status = ?`,
		string(model.SyncPending), string(model.SyncInProgress),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset in-flight tasks: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logger.Warn("Reset dangling in-progress tasks", logger.F("count", n))
	}
	return int(n), nil
}

// LastSyncedAt returns the most recent acknowledgement instant, or nil
// if nothing has synced yet
func (r *Repository) LastSyncedAt(ctx context.Context) (*time.Time, error) {
	var raw sql.NullString
	err := r.db.Get(ctx, `SELECT MAX(last_synced_at) FROM tasks`).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read last synced time: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	ts, err := model.ParseTime(raw.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last synced time: %w", err)
	}
	return &ts, nil
}
