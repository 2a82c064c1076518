package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ferryhq/ferrytask/internal/model"
	"github.com/ferryhq/ferrytask/internal/task"
)

type syncDoneMsg struct {
	result model.SyncResult
}

type connectivityMsg struct {
	online bool
}

// Init starts the spinner and the initial connectivity probe
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.probeCmd())
}

func (m Model) probeCmd() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		return connectivityMsg{online: engine.CheckConnectivity(context.Background())}
	}
}

func (m Model) syncCmd() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		return syncDoneMsg{result: engine.RunCycle(context.Background())}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case connectivityMsg:
		m.online = msg.online
		return m, nil

	case syncDoneMsg:
		m.syncing = false
		m.online = !hasConnectionError(msg.result)
		if msg.result.Success {
			m.message = fmt.Sprintf("Synced %d item(s)", msg.result.SyncedItems)
		} else {
			m.message = fmt.Sprintf("Sync finished: %d ok, %d failed",
				msg.result.SyncedItems, msg.result.FailedItems)
		}
		m.loadData()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == ModeAddTask {
		switch {
		case key.Matches(msg, keys.Escape):
			m.mode = ModeNormal
			m.input.Reset()
			return m, nil
		case msg.Type == tea.KeyEnter:
			title := m.input.Value()
			m.mode = ModeNormal
			m.input.Reset()
			if title != "" {
				if _, err := m.repo.Create(context.Background(), title, ""); err != nil {
					m.message = err.Error()
				} else {
					m.message = "Task added"
				}
				m.loadData()
			}
			return m, nil
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		return m, nil

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, keys.Add):
		m.mode = ModeAddTask
		m.input.Focus()
		return m, nil

	case key.Matches(msg, keys.Done):
		if t := m.currentTask(); t != nil {
			completed := !t.Completed
			if _, err := m.repo.Update(context.Background(), t.ID, task.Patch{Completed: &completed}); err != nil {
				m.message = err.Error()
			}
			m.loadData()
		}
		return m, nil

	case key.Matches(msg, keys.Delete):
		if t := m.currentTask(); t != nil {
			if _, err := m.repo.Delete(context.Background(), t.ID); err != nil {
				m.message = err.Error()
			} else {
				m.message = "Task deleted"
			}
			m.loadData()
		}
		return m, nil

	case key.Matches(msg, keys.Sync):
		if !m.syncing {
			m.syncing = true
			m.message = ""
			return m, m.syncCmd()
		}
		return m, nil

	case key.Matches(msg, keys.Dead):
		if m.mode == ModeDeadLetters {
			m.mode = ModeNormal
		} else {
			m.mode = ModeDeadLetters
		}
		return m, nil
	}

	return m, nil
}

func hasConnectionError(r model.SyncResult) bool {
	for _, e := range r.Errors {
		if e.TaskID == model.ErrSourceConnection {
			return true
		}
	}
	return false
}
