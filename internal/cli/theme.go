package cli

import "github.com/charmbracelet/lipgloss"

var (
	cPrimary = lipgloss.Color("94")  // bronze
	cAccent  = lipgloss.Color("124") // imperial red
	cGood    = lipgloss.Color("42")
	cBad     = lipgloss.Color("196")
	cMuted   = lipgloss.Color("244")
	cGold    = lipgloss.Color("220")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	mutedStyle  = lipgloss.NewStyle().Foreground(cMuted)
	goodStyle   = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	badStyle    = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	goldStyle   = lipgloss.NewStyle().Bold(true).Foreground(cGold)
	panelStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
)
