package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/ferryhq/ferrytask/internal/config"
	"github.com/ferryhq/ferrytask/internal/db"
	"github.com/ferryhq/ferrytask/internal/model"
	"github.com/ferryhq/ferrytask/internal/sync"
	"github.com/ferryhq/ferrytask/internal/task"
)

// Env bundles the open database and the components every command needs
type Env struct {
	DB     *db.DB
	Cfg    *config.Config
	Repo   *task.Repository
	Engine *sync.Engine
}

// openEnv opens the default database and wires the sync engine from
// config. Dangling in-progress markers from a crashed cycle are reset
// before anything else runs.
func openEnv() (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}

	database, err := db.OpenDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := task.NewRepository(database)
	if _, err := repo.ResetInFlight(context.Background()); err != nil {
		database.Close()
		return nil, err
	}

	engine := sync.NewEngine(database, repo, sync.NewClient(cfg.APIBaseURL), sync.Options{
		BatchSize:  cfg.BatchSize,
		MaxRetries: cfg.MaxRetries,
	})

	return &Env{DB: database, Cfg: cfg, Repo: repo, Engine: engine}, nil
}

// Close releases the environment
func (e *Env) Close() {
	_ = e.DB.Close()
}

// resolveTaskID expands a short id prefix to the full task id
func (e *Env) resolveTaskID(ctx context.Context, prefix string) (model.Task, error) {
	t, err := e.Repo.Get(ctx, prefix)
	if err == nil {
		return t, nil
	}

	tasks, err := e.Repo.ListAll(ctx)
	if err != nil {
		return model.Task{}, err
	}

	var matches []model.Task
	for _, t := range tasks {
		if strings.HasPrefix(t.ID, prefix) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return model.Task{}, fmt.Errorf("task not found: %s", prefix)
	default:
		return model.Task{}, fmt.Errorf("ambiguous task id: %s matches %d tasks", prefix, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func statusIcon(s model.SyncStatus) string {
	switch s {
	case model.SyncSynced:
		return "✓"
	case model.SyncInProgress:
		return "…"
	case model.SyncError:
		return "!"
	case model.SyncFailed:
		return "✗"
	default:
		return "○"
	}
}
