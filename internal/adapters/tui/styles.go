package tui

import "github.com/charmbracelet/lipgloss"

var (
	Primary     = lipgloss.Color("#101F38")
	Accent      = lipgloss.Color("#8BC34A")
	Muted       = lipgloss.Color("#8a94a6")
	Destructive = lipgloss.Color("#e53935")
	Warning     = lipgloss.Color("#FFC107")
)

// Styles groups the lipgloss styles used by the experiment screens.
type Styles struct {
	Title    lipgloss.Style
	Prompt   lipgloss.Style
	Option   lipgloss.Style
	Selected lipgloss.Style
	Help     lipgloss.Style
	Error    lipgloss.Style
	Notice   lipgloss.Style
	Frame    lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(Accent),
		Prompt:   lipgloss.NewStyle().Bold(true),
		Option:   lipgloss.NewStyle().Padding(0, 2),
		Selected: lipgloss.NewStyle().Padding(0, 2).Bold(true).Foreground(Primary).Background(Accent),
		Help:     lipgloss.NewStyle().Foreground(Muted).Italic(true),
		Error:    lipgloss.NewStyle().Foreground(Destructive).Bold(true),
		Notice:   lipgloss.NewStyle().Foreground(Warning).Bold(true),
		Frame:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Muted).Padding(1, 2),
	}
}
