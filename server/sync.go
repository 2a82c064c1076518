package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ferryhq/ferrytask/internal/logger"
	"github.com/ferryhq/ferrytask/internal/model"
	syncengine "github.com/ferryhq/ferrytask/internal/sync"
)

// handleBatch accepts a batch of sync intents and reports a per-item
// outcome for each. Checksum mismatches are logged and the batch is
// still processed; checksum_verified in the response tells the client.
func (s *Server) handleBatch(c echo.Context) error {
	var req model.BatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	verified := syncengine.BatchChecksum(req.Items) == req.Checksum
	if !verified {
		logger.Warn("Batch checksum mismatch",
			logger.F("claimed", req.Checksum),
			logger.F("items", len(req.Items)))
	}

	processed := make([]model.ProcessedItem, 0, len(req.Items))
	for _, intent := range req.Items {
		processed = append(processed, s.applyIntent(intent))
	}

	logger.Info("Batch processed",
		logger.F("items", len(req.Items)),
		logger.F("checksumVerified", verified))

	return c.JSON(http.StatusOK, model.BatchResponse{
		ProcessedItems:   processed,
		ServerTimestamp:  time.Now().UTC(),
		ChecksumVerified: verified,
	})
}

// applyIntent settles one intent against the authoritative replica
func (s *Server) applyIntent(intent model.SyncIntent) model.ProcessedItem {
	item := model.ProcessedItem{ClientID: intent.ID}

	// Replayed intents settle to their recorded outcome
	var replayedServerID sql.NullString
	err := s.db.QueryRow(`
		SELECT server_id FROM sync_intents WHERE id = $1`, intent.ID,
	).Scan(&replayedServerID)
	if err == nil {
		item.Status = model.ItemSuccess
		item.ServerID = replayedServerID.String
		return item
	}
	if !errors.Is(err, sql.ErrNoRows) {
		item.Status = model.ItemError
		item.Error = "failed to check intent replay: " + err.Error()
		return item
	}

	var snapshot model.Task
	if err := json.Unmarshal(intent.Data, &snapshot); err != nil {
		item.Status = model.ItemError
		item.Error = "undecodable task snapshot: " + err.Error()
		return item
	}

	// Conflict: the authoritative copy moved past this snapshot. Hand the
	// server copy back and let the client resolve.
	var (
		serverID string
		server   model.Task
	)
	err = s.db.QueryRow(`
		SELECT id, title, description, completed, is_deleted, created_at, updated_at
		FROM tasks WHERE client_id = $1`, intent.TaskID,
	).Scan(&serverID, &server.Title, &server.Description, &server.Completed,
		&server.IsDeleted, &server.CreatedAt, &server.UpdatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		item.Status = model.ItemError
		item.Error = "failed to read task: " + err.Error()
		return item
	}
	if err == nil && server.UpdatedAt.After(snapshot.UpdatedAt) {
		server.ID = intent.TaskID
		server.ServerID = serverID
		item.Status = model.ItemConflict
		item.ServerID = serverID
		item.ResolvedData = &server
		logger.Info("Conflict reported",
			logger.F("clientID", intent.TaskID),
			logger.F("serverUpdated", server.UpdatedAt),
			logger.F("clientUpdated", snapshot.UpdatedAt))
		return item
	}

	// Apply the snapshot, last writer wins
	err = s.db.QueryRow(`
		INSERT INTO tasks (client_id, title, description, completed, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (client_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			completed = EXCLUDED.completed,
			is_deleted = EXCLUDED.is_deleted,
			updated_at = EXCLUDED.updated_at
		RETURNING id`,
		intent.TaskID, snapshot.Title, snapshot.Description, snapshot.Completed,
		snapshot.IsDeleted, snapshot.CreatedAt, snapshot.UpdatedAt,
	).Scan(&serverID)
	if err != nil {
		item.Status = model.ItemError
		item.Error = "failed to apply intent: " + err.Error()
		return item
	}

	if _, err := s.db.Exec(`
		INSERT INTO sync_intents (id, task_client_id, server_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`,
		intent.ID, intent.TaskID, serverID,
	); err != nil {
		logger.Warn("Failed to record processed intent", logger.F("error", err))
	}

	item.Status = model.ItemSuccess
	item.ServerID = serverID
	return item
}
