package model

import (
	"encoding/json"
	"time"
)

// Operation is the kind of mutation a sync intent carries.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// QueueItem is one durable sync intent: a task mutation waiting for upload.
// Data holds the full JSON snapshot of the task at the moment of the
// mutation, so the intent stays self-describing even after later edits.
type QueueItem struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"task_id"`
	Operation    Operation `json:"operation"`
	Data         string    `json:"data"`
	CreatedAt    time.Time `json:"created_at"`
	RetryCount   int       `json:"retry_count"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Snapshot decodes the task snapshot captured when the intent was recorded.
func (i QueueItem) Snapshot() (Task, error) {
	var t Task
	err := json.Unmarshal([]byte(i.Data), &t)
	return t, err
}

// DeadLetter is a queue item whose retries were exhausted, moved verbatim
// into the quarantine with the failure recorded.
type DeadLetter struct {
	QueueItem
	FailedAt          time.Time `json:"failed_at"`
	FinalErrorMessage string    `json:"final_error_message"`
}
