package detail

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/smsexpert/internal/keys"
	"github.com/nhle/smsexpert/internal/model"
	"github.com/nhle/smsexpert/internal/theme"
	"github.com/nhle/smsexpert/internal/ui/notifylist"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// LoadedMsg carries a notification fetched for display.
type LoadedMsg struct {
	Notification model.Notification
	Err          error
}

// Model is the notification detail view component.
type Model struct {
	notification *model.Notification
	viewport     viewport.Model
	keys         *keys.KeyMap
	width        int
	height       int
	loading      bool
	err          error
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Current returns the displayed notification, if any.
func (m Model) Current() (model.Notification, bool) {
	if m.notification == nil {
		return model.Notification{}, false
	}
	return *m.notification, true
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.Err != nil {
			m.loading = false
			m.err = msg.Err
			m.notification = nil
			return m, nil
		}
		m.SetNotification(msg.Notification)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.Acknowledge):
			if m.notification != nil && m.notification.NeedsAcknowledgement() {
				id := m.notification.ID
				return m, func() tea.Msg {
					return notifylist.ActionMsg{Action: notifylist.ActionAcknowledge, ID: id}
				}
			}
			return m, nil

		case key.Matches(msg, m.keys.Delete):
			if m.notification != nil {
				id := m.notification.ID
				return m, func() tea.Msg {
					return notifylist.ActionMsg{Action: notifylist.ActionDelete, ID: id}
				}
			}
			return m, nil
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	placeholder := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.loading:
		return placeholder.Render("Loading notification...")
	case m.err != nil:
		return placeholder.Render("Could not load notification.\n\n" + m.err.Error())
	case m.notification == nil:
		return placeholder.Render("No notification selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.notification == nil {
		return ""
	}

	n := m.notification
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(n.Title))

	// Badges line: source + type + priority
	srcBadge := theme.SourceLabelStyle(string(n.Source)).Render(strings.ToUpper(string(n.Source)))
	typeBadge := theme.TypeStyle(string(n.Type)).Render(string(n.Type))
	badges := []string{srcBadge, "  ", typeBadge}
	if n.Priority != "" {
		badges = append(badges, "  ", theme.PriorityStyle(n.Priority).Render(n.Priority))
	}
	if n.NeedsAcknowledgement() {
		badges = append(badges, "  ", theme.AckBadgeStyle.Render("acknowledgement required"))
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, badges...))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	meta := func(label, value string) {
		sections = append(sections, fmt.Sprintf("%s %s",
			metaStyle.Render(fmt.Sprintf("%-14s", label+":")),
			valStyle.Render(value)))
	}

	if !n.CreatedAt.IsZero() {
		received := n.CreatedAt.Format("2006-01-02 15:04")
		if n.TimeAgo != "" {
			received += " (" + n.TimeAgo + ")"
		}
		meta("Received", received)
	}
	if n.ReadAt != nil {
		meta("Read", n.ReadAt.Format("2006-01-02 15:04"))
	}
	if n.AcknowledgedAt != nil {
		meta("Acknowledged", n.AcknowledgedAt.Format("2006-01-02 15:04"))
	}
	if n.NotificationID != nil {
		meta("Reference", fmt.Sprintf("#%d", *n.NotificationID))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	body := n.Message
	if body == "" {
		body = n.MessagePreview
	}
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No message")
	}
	sections = append(sections, body)

	if n.HasData() {
		sections = append(sections, "", separator, "")
		sections = append(sections, lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render("Data"))

		if fields, ok := n.DataFields(); ok {
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				meta(k, formatValue(fields[k]))
			}
		} else {
			sections = append(sections, formatRaw(n.Data))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

// formatRaw renders a non-object payload, unquoting plain strings.
func formatRaw(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return formatValue(v)
}

// SetNotification updates the displayed notification and re-renders it.
func (m *Model) SetNotification(n model.Notification) {
	scroll := m.notification != nil && m.notification.ID == n.ID
	m.notification = &n
	m.loading = false
	m.err = nil
	m.viewport.SetContent(m.renderContent())
	if !scroll {
		m.viewport.GotoTop()
	}
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
	if loading {
		m.err = nil
	}
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.notification != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
