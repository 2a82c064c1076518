package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	// Sync status colors
	SyncOK      = lipgloss.Color("#95E1A3") // Green
	SyncWaiting = lipgloss.Color("#FFE66D") // Yellow
	SyncBad     = lipgloss.Color("#FF6B6B") // Red
	Offline     = lipgloss.Color("#6C757D") // Gray

	// UI colors
	Primary   = lipgloss.Color("#4ECDC4")
	Surface   = lipgloss.Color("#16213e")
	TextMuted = lipgloss.Color("#888888")
	Border    = lipgloss.Color("#333333")
)

// Styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Padding(0, 1)

	CounterStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1)

	TaskItemStyle = lipgloss.NewStyle().
			Padding(0, 1)

	TaskItemSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(Surface).
				Bold(true)

	TaskDoneStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Strikethrough(true).
			Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Border)

	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)

	SyncedStyle  = lipgloss.NewStyle().Foreground(SyncOK)
	PendingStyle = lipgloss.NewStyle().Foreground(SyncWaiting)
	ErrorStyle   = lipgloss.NewStyle().Foreground(SyncBad).Bold(true)
	OfflineStyle = lipgloss.NewStyle().Foreground(Offline)
)

// StatusStyle returns the style for a sync status label
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "synced":
		return SyncedStyle
	case "error", "failed":
		return ErrorStyle
	case "in-progress":
		return OfflineStyle
	default:
		return PendingStyle
	}
}
