// Package tui is a terminal frontend for an editor session: a form over the
// profile schema with Save, Test and Cancel actions and the overwrite
// confirmation dialog.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/koustreak/dsneditor/internal/editor"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/profile"
)

// Row IDs after the schema fields.
const (
	rowSave = iota
	rowTest
	rowCancel
	buttonCount // sentinel
)

var actionLabels = map[string]string{
	"save": "Save",
	"test": "Test Connection",
}

// outcomeMsg carries the result of a Save, ConfirmOverwrite or Test run.
type outcomeMsg struct {
	action  string
	outcome editor.Outcome
}

// Model is the bubbletea model of the form.
type Model struct {
	ctx     context.Context
	session *editor.Session
	fields  []profile.Field

	focus   int
	editing bool
	input   textinput.Model
	busy    bool
	confirm *ConfirmDialog

	// cancelling is set by ctrl+c during a callback and honoured when it returns.
	cancelling bool

	status    []string
	statusErr bool
	done      bool

	width  int
	height int
}

// NewModel builds the form for s. ctx is handed to the callbacks.
func NewModel(ctx context.Context, s *editor.Session) *Model {
	in := textinput.New()
	in.CharLimit = 1024
	in.Prompt = ""
	_ = in.Cursor.SetMode(cursor.CursorStatic)

	m := &Model{
		ctx:     ctx,
		session: s,
		fields:  profile.Schema,
		input:   in,
		confirm: NewConfirmDialog(),
	}
	m.focus = m.next(-1, 1)
	return m
}

func (m *Model) Init() tea.Cmd { return nil }

// Done reports whether the session was closed by the form.
func (m *Model) Done() bool { return m.done }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case outcomeMsg:
		return m.handleOutcome(msg)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.busy {
				m.cancelling = true
				return m, nil
			}
			return m.cancel()
		}
		if m.busy {
			return m, nil
		}
		if m.confirm.IsVisible() {
			return m.handleConfirm(msg)
		}
		if m.editing {
			return m.handleEditing(msg)
		}
		return m.handleNavigation(msg)
	}
	return m, nil
}

func (m *Model) handleNavigation(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k", "shift+tab":
		m.focus = m.next(m.focus, -1)
	case "down", "j", "tab":
		m.focus = m.next(m.focus, 1)
	case "enter", " ":
		return m.activate()
	case "left", "h":
		m.cycle(-1)
	case "right", "l":
		m.cycle(1)
	case "ctrl+s":
		return m.run("save")
	case "ctrl+t":
		return m.run("test")
	case "esc", "q":
		return m.cancel()
	}
	return m, nil
}

func (m *Model) handleEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.editing = false
		m.input.Blur()
		m.commit(m.fields[m.focus], m.input.Value())
		return m, nil
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var yes bool
	switch strings.ToLower(msg.String()) {
	case "y":
		yes = true
	case "n", "esc":
	default:
		return m, nil
	}
	m.confirm.Hide()
	m.busy = true
	ctx, s := m.ctx, m.session
	return m, func() tea.Msg {
		return outcomeMsg{action: "save", outcome: s.ConfirmOverwrite(ctx, yes)}
	}
}

func (m *Model) handleOutcome(msg outcomeMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if m.cancelling {
		m.cancelling = false
		m.confirm.Hide()
		return m.cancel()
	}
	m.status = m.session.Messages()
	m.statusErr = false

	switch msg.outcome {
	case editor.OutcomeSaved:
		m.done = true
		return m, tea.Quit
	case editor.OutcomeConfirm:
		m.confirm.Show("Overwrite DSN", editor.MsgOverwrite)
	case editor.OutcomeDeclined:
		m.status = nil
	case editor.OutcomeDisabled:
		m.status = []string{fmt.Sprintf("%s is not available", actionLabels[msg.action])}
		m.statusErr = true
	case editor.OutcomeInvalid, editor.OutcomeFailed, editor.OutcomeTestFailed:
		m.statusErr = true
	}
	return m, nil
}

// activate handles enter on the focused row.
func (m *Model) activate() (tea.Model, tea.Cmd) {
	if m.focus >= len(m.fields) {
		switch m.focus - len(m.fields) {
		case rowSave:
			return m.run("save")
		case rowTest:
			return m.run("test")
		default:
			return m.cancel()
		}
	}

	f := m.fields[m.focus]
	p := m.session.Profile()
	switch f.Control {
	case profile.ControlCheck:
		m.commit(f, strconv.FormatBool(!profile.ParseBool(f.Get(p))))
	case profile.ControlChoice:
		m.cycle(1)
	default:
		m.editing = true
		m.input.SetValue(f.Get(p))
		m.input.EchoMode = textinput.EchoNormal
		if f.Control == profile.ControlSecret {
			m.input.EchoMode = textinput.EchoPassword
		}
		m.input.CursorEnd()
		_ = m.input.Focus()
	}
	return m, nil
}

func (m *Model) cycle(dir int) {
	if m.focus >= len(m.fields) {
		return
	}
	f := m.fields[m.focus]
	if f.Control != profile.ControlChoice || len(f.Choices) == 0 {
		return
	}
	cur := f.Get(m.session.Profile())
	idx := 0
	for i, c := range f.Choices {
		if strings.EqualFold(c, cur) {
			idx = i
			break
		}
	}
	idx = (idx + dir + len(f.Choices)) % len(f.Choices)
	m.commit(f, f.Choices[idx])
}

func (m *Model) commit(f profile.Field, value string) {
	var err error
	switch {
	case f.Control == profile.ControlFile && value != "":
		err = m.session.BrowseCertificate(value)
	case f.Control == profile.ControlDir && value != "":
		err = m.session.BrowseLogDirectory(value)
	default:
		err = m.session.Set(f.Key, value)
	}
	if err != nil {
		m.status = []string{errs.Message(err)}
		m.statusErr = true
		return
	}
	m.status = nil
}

func (m *Model) run(action string) (tea.Model, tea.Cmd) {
	m.busy = true
	m.status = nil
	ctx, s := m.ctx, m.session
	return m, func() tea.Msg {
		if action == "test" {
			return outcomeMsg{action: action, outcome: s.Test(ctx)}
		}
		return outcomeMsg{action: action, outcome: s.Save(ctx)}
	}
}

func (m *Model) cancel() (tea.Model, tea.Cmd) {
	m.session.Cancel()
	m.done = true
	return m, tea.Quit
}

// next returns the next enabled row after from in direction dir.
func (m *Model) next(from, dir int) int {
	total := len(m.fields) + buttonCount
	i := from
	for range total {
		i = (i + dir + total) % total
		if m.enabled(i) {
			return i
		}
	}
	return from
}

func (m *Model) enabled(row int) bool {
	e := m.session.Enablement()
	if row >= len(m.fields) {
		switch row - len(m.fields) {
		case rowSave:
			return e.Save
		case rowTest:
			return e.Test
		}
		return true
	}
	return e.Field(m.fields[row].Key)
}

// --- view ---

func (m *Model) View() string {
	if m.done {
		return ""
	}
	if m.confirm.IsVisible() {
		return m.confirm.View()
	}

	var b strings.Builder
	title := "Elasticsearch DSN"
	if m.session.Mode() == profile.ModeConnect {
		title = "Elasticsearch connection"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteByte('\n')

	p := m.session.Profile()
	var group profile.Group
	for i, f := range m.fields {
		if f.Group != group {
			group = f.Group
			b.WriteString(groupStyle.Render(strings.ToUpper(string(group))))
			b.WriteByte('\n')
		}
		b.WriteString(m.renderRow(i, f, p))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	buttons := []string{m.session.Mode().SaveLabel(), "Test Connection", "Cancel"}
	rendered := make([]string, len(buttons))
	for i, label := range buttons {
		row := len(m.fields) + i
		style := buttonStyle
		switch {
		case !m.enabled(row):
			style = style.Foreground(colorMuted)
		case row == m.focus:
			style = style.Foreground(colorSelectFg).Background(colorSelectBg)
		}
		rendered[i] = style.Render(label)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	b.WriteByte('\n')

	if m.busy {
		b.WriteString(helpStyle.Render("working..."))
		b.WriteByte('\n')
	}
	for _, s := range m.status {
		if m.statusErr {
			b.WriteString(errorStyle.Render(s))
		} else {
			b.WriteString(successStyle.Render(s))
		}
		b.WriteByte('\n')
	}

	b.WriteString(helpStyle.Render("↑/↓ navigate • enter edit/toggle • ←/→ choose • ctrl+s save • ctrl+t test • esc cancel"))
	return frameStyle.Render(b.String())
}

func (m *Model) renderRow(i int, f profile.Field, p *profile.Profile) string {
	value := f.Get(p)
	switch {
	case m.editing && i == m.focus:
		value = m.input.View()
	case f.Control == profile.ControlSecret && value != "":
		value = strings.Repeat("•", 8)
	case f.Control == profile.ControlCheck:
		if profile.ParseBool(value) {
			value = "[x]"
		} else {
			value = "[ ]"
		}
	case f.Control == profile.ControlChoice:
		value = "< " + value + " >"
	}

	line := labelStyle.Render(f.Label) + value
	switch {
	case !m.enabled(i):
		return disabledStyle.Render(line)
	case i == m.focus:
		return selectedStyle.Render(line)
	default:
		return line
	}
}
