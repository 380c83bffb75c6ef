// Package command implements the ":" palette for typed inbox commands.
package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/smsexpert/internal/theme"
	"github.com/nhle/smsexpert/internal/ui/notifylist"
)

// DoneMsg closes the palette. Msg is the parsed command to dispatch; Err
// is set when the line could not be parsed. Both are nil when cancelled.
type DoneMsg struct {
	Msg tea.Msg
	Err error
}

// Usage lists the accepted commands.
const Usage = "refresh · more · read <id> · read-all · ack <id> · delete <id> · open <id>"

// Parse turns a command line into the message that performs it.
func Parse(line string) (tea.Msg, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	withID := func(action notifylist.Action) (tea.Msg, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s needs exactly one notification id", name)
		}
		return notifylist.ActionMsg{Action: action, ID: args[0]}, nil
	}
	noArgs := func(msg tea.Msg) (tea.Msg, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("%s takes no arguments", name)
		}
		return msg, nil
	}

	switch name {
	case "refresh", "r":
		return noArgs(notifylist.ActionMsg{Action: notifylist.ActionRefresh})
	case "more", "next":
		return noArgs(notifylist.ActionMsg{Action: notifylist.ActionLoadMore})
	case "read-all", "readall":
		return noArgs(notifylist.ActionMsg{Action: notifylist.ActionMarkAllRead})
	case "read":
		return withID(notifylist.ActionMarkRead)
	case "ack", "acknowledge":
		return withID(notifylist.ActionAcknowledge)
	case "delete", "rm":
		return withID(notifylist.ActionDelete)
	case "open":
		if len(args) != 1 {
			return nil, fmt.Errorf("open needs exactly one notification id")
		}
		return notifylist.SelectedMsg{ID: args[0]}, nil
	default:
		return nil, fmt.Errorf("unknown command %q (try: %s)", name, Usage)
	}
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, done(DoneMsg{})
			}
			parsed, err := Parse(line)
			return m, done(DoneMsg{Msg: parsed, Err: err})
		case "esc":
			m.input.Reset()
			return m, done(DoneMsg{})
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func done(msg DoneMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Command Palette")
	input := m.input.View()
	hint := theme.HelpStyle.Render(Usage)

	content := lipgloss.JoinVertical(lipgloss.Left, title, input, "", hint)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
