package tui

import (
	"fmt"
	"strings"
)

// View renders the dashboard
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("FerryTask — sync dashboard"))
	b.WriteString("\n")

	b.WriteString(CounterStyle.Render(m.counters()))
	b.WriteString("\n\n")

	switch m.mode {
	case ModeDeadLetters:
		b.WriteString(m.viewDeadLetters())
	case ModeAddTask:
		b.WriteString(m.viewTasks())
		b.WriteString("\n")
		b.WriteString(ModalStyle.Render("New task\n\n" + m.input.View()))
		b.WriteString("\n")
	default:
		b.WriteString(m.viewTasks())
	}

	b.WriteString("\n")
	b.WriteString(m.statusBar())

	return b.String()
}

func (m Model) counters() string {
	conn := OfflineStyle.Render("offline")
	if m.online {
		conn = SyncedStyle.Render("online")
	}

	last := "never"
	if m.lastSynced != nil {
		last = m.lastSynced.Local().Format("15:04:05")
	}

	return fmt.Sprintf("%s · %d pending · %d dead · last sync %s",
		conn, m.pending, len(m.letters), last)
}

func (m Model) viewTasks() string {
	if len(m.tasks) == 0 {
		return HelpStyle.Render("  No tasks. Press 'a' to add one.")
	}

	var b strings.Builder
	for i, t := range m.tasks {
		check := "[ ]"
		if t.Completed {
			check = "[x]"
		}

		title := t.Title
		if len(title) > 42 {
			title = title[:39] + "..."
		}

		status := StatusStyle(string(t.SyncStatus)).Render(string(t.SyncStatus))
		line := fmt.Sprintf("%s %-42s %s", check, title, status)

		style := TaskItemStyle
		if i == m.cursor {
			style = TaskItemSelectedStyle
		} else if t.Completed {
			style = TaskDoneStyle
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewDeadLetters() string {
	if len(m.letters) == 0 {
		return HelpStyle.Render("  Dead-letter quarantine is empty.")
	}

	var b strings.Builder
	b.WriteString(ErrorStyle.Render("  Dead letters (newest first)"))
	b.WriteString("\n\n")
	for _, dl := range m.letters {
		b.WriteString(TaskItemStyle.Render(fmt.Sprintf("%s  %-6s  task %.8s",
			dl.FailedAt.Local().Format("Jan 2 15:04"), dl.Operation, dl.TaskID)))
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render(fmt.Sprintf("    %d attempts: %s",
			dl.RetryCount, dl.FinalErrorMessage)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) statusBar() string {
	if m.syncing {
		return StatusBarStyle.Render(m.spinner.View() + " syncing...")
	}

	help := "a add · x done · d delete · s sync · L dead letters · q quit"
	if m.message != "" {
		return StatusBarStyle.Render(m.message + "  |  " + help)
	}
	return StatusBarStyle.Render(help)
}
