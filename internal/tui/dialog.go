package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// ConfirmDialog is a modal yes/no question.
type ConfirmDialog struct {
	title    string
	question string
	visible  bool
}

// NewConfirmDialog creates a hidden dialog.
func NewConfirmDialog() *ConfirmDialog {
	return &ConfirmDialog{}
}

// Show displays the dialog with the given text.
func (d *ConfirmDialog) Show(title, question string) {
	d.title = title
	d.question = question
	d.visible = true
}

func (d *ConfirmDialog) Hide() {
	d.visible = false
}

func (d *ConfirmDialog) IsVisible() bool {
	return d.visible
}

// View renders the dialog, or nothing when hidden.
func (d *ConfirmDialog) View() string {
	if !d.visible {
		return ""
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Foreground(colorWarning).MarginBottom(1).Render(d.title),
		d.question,
		lipgloss.NewStyle().MarginTop(1).Bold(true).Render("[y] Yes  [n] No"),
	)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorWarning).
		Padding(1, 2).
		Width(60).
		Render(content)
}
