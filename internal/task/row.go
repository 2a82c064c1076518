package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ferryhq/ferrytask/internal/db"
	"github.com/ferryhq/ferrytask/internal/model"
)

const taskColumns = `id, title, description, completed, created_at, updated_at,
	is_deleted, sync_status, server_id, last_synced_at`

// taskRow mirrors the storage shape: booleans as 0/1 integers,
// timestamps as text, server fields nullable until first sync.
type taskRow struct {
	ID           string
	Title        string
	Description  string
	Completed    int
	CreatedAt    string
	UpdatedAt    string
	IsDeleted    int
	SyncStatus   string
	ServerID     sql.NullString
	LastSyncedAt sql.NullString
}

func (row taskRow) toTask() (model.Task, error) {
	t := model.Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Completed:   row.Completed != 0,
		IsDeleted:   row.IsDeleted != 0,
		SyncStatus:  model.SyncStatus(row.SyncStatus),
		ServerID:    model.ServerIDUnassigned,
	}
	if row.ServerID.Valid && row.ServerID.String != "" {
		t.ServerID = row.ServerID.String
	}

	var err error
	if t.CreatedAt, err = model.ParseTime(row.CreatedAt); err != nil {
		return model.Task{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if t.UpdatedAt, err = model.ParseTime(row.UpdatedAt); err != nil {
		return model.Task{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if row.LastSyncedAt.Valid && row.LastSyncedAt.String != "" {
		ts, err := model.ParseTime(row.LastSyncedAt.String)
		if err != nil {
			return model.Task{}, fmt.Errorf("failed to parse last_synced_at: %w", err)
		}
		t.LastSyncedAt = &ts
	}

	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func insertTask(ctx context.Context, s db.Store, t model.Task) error {
	var lastSynced any
	if t.LastSyncedAt != nil {
		lastSynced = model.FormatTime(*t.LastSyncedAt)
	}
	// An unassigned server id is stored as NULL, never as the sentinel
	var serverID any
	if t.ServerID != "" && t.ServerID != model.ServerIDUnassigned {
		serverID = t.ServerID
	}

	_, err := s.Run(ctx, `
		INSERT INTO tasks (id, title, description, completed, created_at, updated_at,
			is_deleted, sync_status, server_id, last_synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, boolToInt(t.Completed),
		model.FormatTime(t.CreatedAt), model.FormatTime(t.UpdatedAt),
		boolToInt(t.IsDeleted), string(t.SyncStatus), serverID, lastSynced,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task row: %w", err)
	}
	return nil
}

func writeTask(ctx context.Context, s db.Store, t model.Task) error {
	_, err := s.Run(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, completed = ?, updated_at = ?,
			is_deleted = ?, sync_status = ?
		WHERE id = ?`,
		t.Title, t.Description, boolToInt(t.Completed), model.FormatTime(t.UpdatedAt),
		boolToInt(t.IsDeleted), string(t.SyncStatus), t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task row: %w", err)
	}
	return nil
}

func deleteRow(ctx context.Context, s db.Store, id string) error {
	if _, err := s.Run(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete task row: %w", err)
	}
	return nil
}

func getLive(ctx context.Context, s db.Store, id string) (model.Task, error) {
	var row taskRow
	err := s.Get(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = ? AND is_deleted = 0`, id,
	).Scan(&row.ID, &row.Title, &row.Description, &row.Completed,
		&row.CreatedAt, &row.UpdatedAt, &row.IsDeleted, &row.SyncStatus,
		&row.ServerID, &row.LastSyncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to read task: %w", err)
	}
	return row.toTask()
}

func listTasks(ctx context.Context, s db.Store, query string, args ...any) ([]model.Task, error) {
	rows, err := s.All(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var row taskRow
		if err := rows.Scan(&row.ID, &row.Title, &row.Description, &row.Completed,
			&row.CreatedAt, &row.UpdatedAt, &row.IsDeleted, &row.SyncStatus,
			&row.ServerID, &row.LastSyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		t, err := row.toTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
