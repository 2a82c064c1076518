// Package sync drives the offline-first upload protocol: drain the
// durable intent queue, batch it, ship it, and settle every outcome into
// task sync-status, retry counters, or the dead-letter quarantine.
package sync

import (
	"context"
	"encoding/json"
	stdsync "sync"
	"time"

	"github.com/ferryhq/ferrytask/internal/db"
	"github.com/ferryhq/ferrytask/internal/logger"
	"github.com/ferryhq/ferrytask/internal/model"
	"github.com/ferryhq/ferrytask/internal/queue"
	"github.com/ferryhq/ferrytask/internal/task"
)

// Options tunes a sync engine
type Options struct {
	BatchSize  int // max items per outbound batch
	MaxRetries int // attempts before dead-lettering
}

// Engine orchestrates sync cycles. Cycles are serialized by an internal
// mutex; the cycle itself is single-threaded with network I/O as the
// only suspension point.
type Engine struct {
	mu     stdsync.Mutex
	store  *db.DB
	tasks  *task.Repository
	queue  *queue.Queue
	dead   *queue.DeadLetters
	remote Remote

	batchSize  int
	maxRetries int
	now        func() time.Time
}

// NewEngine wires an engine over the open database and a remote
func NewEngine(store *db.DB, tasks *task.Repository, remote Remote, opts Options) *Engine {
	if opts.BatchSize < 1 {
		opts.BatchSize = 10
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}

	return &Engine{
		store:      store,
		tasks:      tasks,
		queue:      queue.New(store),
		dead:       queue.NewDeadLetters(store),
		remote:     remote,
		batchSize:  opts.BatchSize,
		maxRetries: opts.MaxRetries,
		now:        time.Now,
	}
}

// SetClock overrides the engine clock, for tests
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// fatalStore marks the cycle as failed on a local store error the engine
// cannot work around
func fatalStore(result *model.SyncResult, err error) model.SyncResult {
	logger.Error("Sync cycle aborted on local store failure", logger.F("error", err))
	result.Errors = append(result.Errors, model.SyncErrorRecord{
		TaskID: model.ErrSourceSyncService,
		Error:  err.Error(),
	})
	result.Success = false
	return *result
}

// RunCycle performs one end-to-end sync cycle: probe, drain, group,
// batch, transmit, settle. Per-item failures never short-circuit the
// cycle; only a local store failure aborts it.
func (e *Engine) RunCycle(ctx context.Context) model.SyncResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := model.SyncResult{}

	// Probe. An unreachable server defers the whole cycle and must not
	// advance any retry counter.
	if !e.remote.CheckConnectivity(ctx) {
		logger.Info("Sync skipped, server unreachable")
		result.Errors = append(result.Errors, model.SyncErrorRecord{
			TaskID: model.ErrSourceConnection,
			Error:  "sync server unreachable",
		})
		return result
	}

	items, err := e.queue.DrainChronological(ctx)
	if err != nil {
		return fatalStore(&result, err)
	}

	if len(items) == 0 {
		result.Success = true
		return result
	}

	batches := PackBatches(GroupByTask(items), e.batchSize)
	logger.Info("Sync cycle started",
		logger.F("queued", len(items)),
		logger.F("batches", len(batches)))

	for _, batch := range batches {
		if err := e.transmitBatch(ctx, batch, &result); err != nil {
			return fatalStore(&result, err)
		}
	}

	result.Success = len(result.Errors) == 0
	logger.Info("Sync cycle finished",
		logger.F("synced", result.SyncedItems),
		logger.F("failed", result.FailedItems),
		logger.F("errors", len(result.Errors)))
	return result
}

// transmitBatch ships one batch and settles every item outcome. The
// returned error is reserved for local store failures.
func (e *Engine) transmitBatch(ctx context.Context, batch []model.QueueItem, result *model.SyncResult) error {
	ids := distinctTaskIDs(batch)
	if err := e.tasks.MarkInProgress(ctx, ids); err != nil {
		return err
	}

	intents := make([]model.SyncIntent, len(batch))
	for i, item := range batch {
		intents[i] = model.SyncIntent{
			ID:         item.ID,
			TaskID:     item.TaskID,
			Operation:  item.Operation,
			Data:       json.RawMessage(item.Data),
			CreatedAt:  item.CreatedAt,
			RetryCount: item.RetryCount,
		}
	}

	req := model.BatchRequest{
		Items:           intents,
		ClientTimestamp: e.now().UTC(),
		Checksum:        BatchChecksum(intents),
	}

	resp, err := e.remote.PostBatch(ctx, req)
	if err != nil {
		// Transport failure: every item in the batch runs the failure
		// handler; the cycle moves on to the next batch.
		logger.Warn("Batch transport failed",
			logger.F("items", len(batch)),
			logger.F("error", err))
		for _, item := range batch {
			if hErr := e.handleFailure(ctx, item, err.Error(), result); hErr != nil {
				return hErr
			}
		}
		return nil
	}

	if !resp.ChecksumVerified {
		logger.Warn("Server did not verify batch checksum",
			logger.F("checksum", req.Checksum))
	}

	byID := make(map[string]model.ProcessedItem, len(resp.ProcessedItems))
	for _, p := range resp.ProcessedItems {
		byID[p.ClientID] = p
	}

	for _, item := range batch {
		p, ok := byID[item.ID]
		if !ok {
			if err := e.handleFailure(ctx, item, "item missing from server response", result); err != nil {
				return err
			}
			continue
		}

		switch p.Status {
		case model.ItemSuccess:
			if err := e.handleSuccess(ctx, item, p, result); err != nil {
				return err
			}
		case model.ItemConflict:
			if err := e.handleConflict(ctx, item, p, result); err != nil {
				return err
			}
		case model.ItemError:
			if err := e.handleFailure(ctx, item, p.Error, result); err != nil {
				return err
			}
		default:
			if err := e.handleFailure(ctx, item, "unknown item status: "+p.Status, result); err != nil {
				return err
			}
		}
	}

	return nil
}

func (e *Engine) handleSuccess(ctx context.Context, item model.QueueItem, p model.ProcessedItem, result *model.SyncResult) error {
	// Synced status and queue cleanup must land together: a synced task
	// with intents still queued is never observable.
	err := e.store.WithTx(ctx, func(s db.Store) error {
		if err := task.MarkSynced(ctx, s, item.TaskID, p.ServerID, e.now().UTC()); err != nil {
			return err
		}
		return queue.New(s).RemoveForTask(ctx, item.TaskID)
	})
	if err != nil {
		return err
	}

	result.SyncedItems++
	logger.Debug("Intent acknowledged",
		logger.F("task", item.TaskID),
		logger.F("operation", item.Operation))
	return nil
}

// handleConflict resolves a server-reported conflict inline. The local
// side of the comparison is the snapshot carried by the intent.
func (e *Engine) handleConflict(ctx context.Context, item model.QueueItem, p model.ProcessedItem, result *model.SyncResult) error {
	if p.ResolvedData == nil {
		return e.handleFailure(ctx, item, "conflict response without server snapshot", result)
	}

	local, err := item.Snapshot()
	if err != nil {
		return e.handleFailure(ctx, item, "undecodable local snapshot: "+err.Error(), result)
	}

	winner, side := ResolveConflict(local, *p.ResolvedData)
	logger.Info("Conflict resolved",
		logger.F("task", item.TaskID),
		logger.F("winner", side),
		logger.F("localUpdated", local.UpdatedAt),
		logger.F("serverUpdated", p.ResolvedData.UpdatedAt))

	err = e.store.WithTx(ctx, func(s db.Store) error {
		if err := task.ApplyResolved(ctx, s, winner, p.ServerID, e.now().UTC()); err != nil {
			return err
		}
		return queue.New(s).Remove(ctx, item.ID)
	})
	if err != nil {
		return err
	}

	result.SyncedItems++
	return nil
}

// handleFailure runs the retry/dead-letter accounting for one failing
// item. Below the retry bound the intent stays queued with its counter
// bumped; at the bound it moves to the quarantine atomically.
func (e *Engine) handleFailure(ctx context.Context, item model.QueueItem, errMsg string, result *model.SyncResult) error {
	attempts := item.RetryCount + 1

	if attempts < e.maxRetries {
		if err := e.queue.BumpRetry(ctx, item.ID, attempts, errMsg); err != nil {
			return err
		}
		if err := e.tasks.SetSyncStatus(ctx, item.TaskID, model.SyncError); err != nil {
			return err
		}
		logger.Warn("Intent failed, will retry",
			logger.F("task", item.TaskID),
			logger.F("attempt", attempts),
			logger.F("error", errMsg))
	} else {
		item.RetryCount = attempts
		item.ErrorMessage = errMsg

		err := e.store.WithTx(ctx, func(s db.Store) error {
			if err := queue.NewDeadLetters(s).Insert(ctx, item, e.now().UTC(), errMsg); err != nil {
				return err
			}
			return queue.New(s).Remove(ctx, item.ID)
		})
		if err != nil {
			return err
		}
		if err := e.tasks.SetSyncStatus(ctx, item.TaskID, model.SyncFailed); err != nil {
			return err
		}
		logger.Error("Intent dead-lettered",
			logger.F("task", item.TaskID),
			logger.F("attempts", attempts),
			logger.F("error", errMsg))
	}

	result.FailedItems++
	result.Errors = append(result.Errors, model.SyncErrorRecord{TaskID: item.TaskID, Error: errMsg})
	return nil
}

func distinctTaskIDs(items []model.QueueItem) []string {
	seen := make(map[string]bool, len(items))
	var ids []string
	for _, item := range items {
		if !seen[item.TaskID] {
			seen[item.TaskID] = true
			ids = append(ids, item.TaskID)
		}
	}
	return ids
}

// Status surface

// CountPending returns the number of queued intents
func (e *Engine) CountPending(ctx context.Context) (int, error) {
	return e.queue.CountPending(ctx)
}

// LastSyncedAt returns the most recent acknowledgement instant
func (e *Engine) LastSyncedAt(ctx context.Context) (*time.Time, error) {
	return e.tasks.LastSyncedAt(ctx)
}

// DeadLetterContents returns quarantined intents newest-first
func (e *Engine) DeadLetterContents(ctx context.Context) ([]model.DeadLetter, error) {
	return e.dead.List(ctx)
}

// ClearDeadLetters empties the quarantine
func (e *Engine) ClearDeadLetters(ctx context.Context) error {
	return e.dead.Clear(ctx)
}

// CheckConnectivity probes the server
func (e *Engine) CheckConnectivity(ctx context.Context) bool {
	return e.remote.CheckConnectivity(ctx)
}
