package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ferryhq/ferrytask/internal/db"
	"github.com/ferryhq/ferrytask/internal/model"
)

// DeadLetters is the terminal quarantine for intents whose retries are
// exhausted. Entries are never updated or resurrected into the queue;
// they leave only when Clear empties the whole quarantine.
type DeadLetters struct {
	s db.Store
}

// NewDeadLetters creates the quarantine over the given store
func NewDeadLetters(s db.Store) *DeadLetters {
	return &DeadLetters{s: s}
}

// Insert records the original intent verbatim plus the failure that
// exhausted it. Run inside the same transaction as the queue removal so
// the move is atomic.
func (d *DeadLetters) Insert(ctx context.Context, item model.QueueItem, failedAt time.Time, finalErr string) error {
	_, err := d.s.Run(ctx, `
		INSERT INTO dead_letter_queue
			(id, task_id, operation, data, created_at, retry_count, error_message, failed_at, final_error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.TaskID, string(item.Operation), item.Data,
		model.FormatTime(item.CreatedAt), item.RetryCount, item.ErrorMessage,
		model.FormatTime(failedAt), finalErr,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dead letter: %w", err)
	}
	return nil
}

// List returns quarantined intents newest-first for operator diagnostics
func (d *DeadLetters) List(ctx context.Context) ([]model.DeadLetter, error) {
	rows, err := d.s.All(ctx, `
		SELECT id, task_id, operation, data, created_at, retry_count, error_message,
		       failed_at, final_error_message
		FROM dead_letter_queue
		ORDER BY failed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to read dead letter queue: %w", err)
	}
	defer rows.Close()

	var letters []model.DeadLetter
	for rows.Next() {
		var (
			dl        model.DeadLetter
			op        string
			createdAt string
			failedAt  string
			errMsg    sql.NullString
		)
		if err := rows.Scan(&dl.ID, &dl.TaskID, &op, &dl.Data, &createdAt,
			&dl.RetryCount, &errMsg, &failedAt, &dl.FinalErrorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan dead letter: %w", err)
		}

		dl.Operation = model.Operation(op)
		dl.ErrorMessage = errMsg.String

		if dl.CreatedAt, err = model.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse dead letter timestamp: %w", err)
		}
		if dl.FailedAt, err = model.ParseTime(failedAt); err != nil {
			return nil, fmt.Errorf("failed to parse dead letter timestamp: %w", err)
		}

		letters = append(letters, dl)
	}
	return letters, rows.Err()
}

// Count returns the number of quarantined intents
func (d *DeadLetters) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.s.Get(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count dead letters: %w", err)
	}
	return n, nil
}

// Clear empties the quarantine
func (d *DeadLetters) Clear(ctx context.Context) error {
	if _, err := d.s.Run(ctx, `DELETE FROM dead_letter_queue`); err != nil {
		return fmt.Errorf("failed to clear dead letter queue: %w", err)
	}
	return nil
}
