package console

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	panelStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	focusedStyle   = panelStyle.BorderForeground(lipgloss.Color("212"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	agentStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	toolStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	clientStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	serverStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	recordStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	inputBarStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	outputBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)
