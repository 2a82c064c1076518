package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/ferryhq/ferrytask/internal/logger"
	"github.com/ferryhq/ferrytask/internal/model"
	"github.com/ferryhq/ferrytask/internal/sync"
	"github.com/ferryhq/ferrytask/internal/task"
)

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddTask
	ModeDeadLetters
)

// Model is the sync dashboard model
type Model struct {
	repo   *task.Repository
	engine *sync.Engine

	tasks      []model.Task
	letters    []model.DeadLetter
	pending    int
	lastSynced *time.Time
	online     bool

	// UI state
	width   int
	height  int
	mode    Mode
	cursor  int
	syncing bool
	message string

	input   textinput.Model
	spinner spinner.Model
}

// NewModel creates the dashboard model
func NewModel(repo *task.Repository, engine *sync.Engine) Model {
	logger.Info("Initializing dashboard model")

	ti := textinput.New()
	ti.Placeholder = "Task title..."
	ti.CharLimit = 256
	ti.Width = 50

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Primary)

	m := Model{
		repo:    repo,
		engine:  engine,
		input:   ti,
		spinner: sp,
	}
	m.loadData()

	return m
}

func (m *Model) loadData() {
	ctx := context.Background()

	m.tasks, _ = m.repo.ListAll(ctx)
	m.letters, _ = m.engine.DeadLetterContents(ctx)
	m.pending, _ = m.engine.CountPending(ctx)
	m.lastSynced, _ = m.engine.LastSyncedAt(ctx)

	if m.cursor >= len(m.tasks) {
		m.cursor = 0
	}
}

func (m *Model) currentTask() *model.Task {
	if m.cursor < len(m.tasks) {
		return &m.tasks[m.cursor]
	}
	return nil
}
