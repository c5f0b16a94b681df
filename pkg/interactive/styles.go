package interactive

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	PromptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	DefaultStyle = lipgloss.NewStyle().Faint(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	HelpStyle    = lipgloss.NewStyle().Faint(true).Padding(1, 0, 0, 0)
)
