package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/koustreak/dsneditor/internal/editor"
	"github.com/koustreak/dsneditor/internal/errs"
)

// Frontend runs the form as an editor.Frontend.
type Frontend struct {
	// In and Out default to the terminal.
	In  io.Reader
	Out io.Writer
	// AltScreen draws the form on the alternate screen buffer.
	AltScreen bool
}

var _ editor.Frontend = (*Frontend)(nil)

// Run shows the form until the session is saved or cancelled.
func (f *Frontend) Run(ctx context.Context, s *editor.Session) error {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if f.In != nil {
		opts = append(opts, tea.WithInput(f.In))
	}
	if f.Out != nil {
		opts = append(opts, tea.WithOutput(f.Out))
	}
	if f.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}

	if _, err := tea.NewProgram(NewModel(ctx, s), opts...).Run(); err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "terminal form failed", err)
	}
	return nil
}
