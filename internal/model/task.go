package model

import "time"

// SyncStatus tracks where a task sits in the upload lifecycle.
type SyncStatus string

const (
	SyncPending    SyncStatus = "pending"
	SyncInProgress SyncStatus = "in-progress"
	SyncSynced     SyncStatus = "synced"
	SyncError      SyncStatus = "error"
	SyncFailed     SyncStatus = "failed"
)

// NeedsSync reports whether a task in this status still has work queued.
func (s SyncStatus) NeedsSync() bool {
	return s == SyncPending || s == SyncError
}

// ServerIDUnassigned is the ServerID of a task the server has not
// acknowledged yet; the stored column stays NULL until first sync.
const ServerIDUnassigned = "unassigned"

// Task represents a single todo item owned by the local replica.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Completed    bool       `json:"completed"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	IsDeleted    bool       `json:"is_deleted"`
	SyncStatus   SyncStatus `json:"sync_status"`
	ServerID     string     `json:"server_id,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// NewTask creates a task with defaults applied
func NewTask(id, title, description string, now time.Time) Task {
	return Task{
		ID:          id,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		SyncStatus:  SyncPending,
		ServerID:    ServerIDUnassigned,
	}
}
