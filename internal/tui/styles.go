package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorBorder   = lipgloss.Color("240")
	colorAccent   = lipgloss.Color("6")
	colorMuted    = lipgloss.Color("8")
	colorSuccess  = lipgloss.Color("10")
	colorError    = lipgloss.Color("9")
	colorWarning  = lipgloss.Color("11")
	colorSelectFg = lipgloss.Color("229")
	colorSelectBg = lipgloss.Color("57")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	groupStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorMuted).MarginTop(1)
	labelStyle    = lipgloss.NewStyle().Width(28)
	disabledStyle = lipgloss.NewStyle().Foreground(colorMuted)
	selectedStyle = lipgloss.NewStyle().Foreground(colorSelectFg).Background(colorSelectBg)
	buttonStyle   = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.NormalBorder()).BorderForeground(colorBorder)
	errorStyle    = lipgloss.NewStyle().Foreground(colorError)
	successStyle  = lipgloss.NewStyle().Foreground(colorSuccess)
	helpStyle     = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
	frameStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1)
)
