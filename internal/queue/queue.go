// Package queue holds the durable sync-intent log and the dead-letter
// quarantine. The queue is a passive append-only collection; it never
// schedules work itself.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ferryhq/ferrytask/internal/db"
	"github.com/ferryhq/ferrytask/internal/model"
)

// Queue is the sync-intent log. Construct it over the live database for
// standalone operations, or over the Store of an open transaction when
// an intent must commit together with the mutation that caused it.
type Queue struct {
	s db.Store
}

// New creates a queue over the given store
func New(s db.Store) *Queue {
	return &Queue{s: s}
}

// Enqueue appends a new intent with a zero retry count. The snapshot is
// captured as JSON so the intent stays self-describing.
func (q *Queue) Enqueue(ctx context.Context, taskID string, op model.Operation, snapshot model.Task) (model.QueueItem, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return model.QueueItem{}, fmt.Errorf("failed to encode task snapshot: %w", err)
	}

	item := model.QueueItem{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		Operation: op,
		Data:      string(data),
		CreatedAt: snapshot.UpdatedAt,
	}

	_, err = q.s.Run(ctx, `
		INSERT INTO sync_queue (id, task_id, operation, data, created_at, retry_count)
		VALUES (?, ?, ?, ?, ?, 0)`,
		item.ID, item.TaskID, string(item.Operation), item.Data, model.FormatTime(item.CreatedAt),
	)
	if err != nil {
		return model.QueueItem{}, fmt.Errorf("failed to enqueue sync intent: %w", err)
	}

	return item, nil
}

// DrainChronological returns every queued intent ordered by task, then
// by insertion order within the task. The seq tiebreak keeps two
// same-instant mutations of one task in mutation order.
func (q *Queue) DrainChronological(ctx context.Context) ([]model.QueueItem, error) {
	rows, err := q.s.All(ctx, `
		SELECT id, task_id, operation, data, created_at, retry_count, error_message
		FROM sync_queue
		ORDER BY task_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync queue: %w", err)
	}
	defer rows.Close()

	var items []model.QueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// BumpRetry records a failed attempt on an intent
func (q *Queue) BumpRetry(ctx context.Context, itemID string, newCount int, errMsg string) error {
	_, err := q.s.Run(ctx, `
		UPDATE sync_queue SET retry_count = ?, error_message = ? WHERE id = ?`,
		newCount, errMsg, itemID,
	)
	if err != nil {
		return fmt.Errorf("failed to update retry count: %w", err)
	}
	return nil
}

// Remove deletes a single intent
func (q *Queue) Remove(ctx context.Context, itemID string) error {
	if _, err := q.s.Run(ctx, `DELETE FROM sync_queue WHERE id = ?`, itemID); err != nil {
		return fmt.Errorf("failed to remove queue item: %w", err)
	}
	return nil
}

// RemoveForTask deletes every intent recorded for a task
func (q *Queue) RemoveForTask(ctx context.Context, taskID string) error {
	if _, err := q.s.Run(ctx, `DELETE FROM sync_queue WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("failed to remove queue items for task: %w", err)
	}
	return nil
}

// CountPending returns the number of queued intents
func (q *Queue) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := q.s.Get(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue items: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (model.QueueItem, error) {
	var (
		item      model.QueueItem
		op        string
		createdAt string
		errMsg    sql.NullString
	)
	if err := r.Scan(&item.ID, &item.TaskID, &op, &item.Data, &createdAt, &item.RetryCount, &errMsg); err != nil {
		return model.QueueItem{}, fmt.Errorf("failed to scan queue item: %w", err)
	}

	item.Operation = model.Operation(op)
	item.ErrorMessage = errMsg.String

	ts, err := model.ParseTime(createdAt)
	if err != nil {
		return model.QueueItem{}, fmt.Errorf("failed to parse queue timestamp: %w", err)
	}
	item.CreatedAt = ts

	return item, nil
}
