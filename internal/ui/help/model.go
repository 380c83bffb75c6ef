package help

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/smsexpert/internal/keys"
	"github.com/nhle/smsexpert/internal/model"
	"github.com/nhle/smsexpert/internal/theme"
)

// sectionTitles name the groups returned by keys.KeyMap.FullHelp, in order.
var sectionTitles = []string{"Navigation", "Inbox", "Filters", "Actions"}

// Model is the help overlay: shortcuts by section, the marker legend and
// the polling status of the inbox.
type Model struct {
	keys     *keys.KeyMap
	help     help.Model
	counts   model.UnreadCounts
	lastSync time.Time
	pollErr  error
	width    int
	height   int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// SetStatus records the counters and the outcome of the last counter poll.
func (m *Model) SetStatus(counts model.UnreadCounts, lastSync time.Time, pollErr error) {
	m.counts = counts
	m.lastSync = lastSync
	m.pollErr = pollErr
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)

	m.help.Width = m.width - 8
	rows := []string{titleStyle.Render("Inbox Shortcuts")}
	for i, group := range m.keys.FullHelp() {
		name := "More"
		if i < len(sectionTitles) {
			name = sectionTitles[i]
		}
		rows = append(rows, sectionStyle.Render(name), m.help.ShortHelpView(group), "")
	}

	rows = append(rows,
		theme.HelpStyle.Render(
			theme.UnreadMarkerStyle.Render("●")+" unread   "+
				theme.AckBadgeStyle.Render("!")+" needs acknowledgement   "+
				"… change pending",
		),
		"",
		theme.HelpStyle.Render(m.statusLine()),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) statusLine() string {
	line := fmt.Sprintf("%d unread (admin %d, push %d), %d awaiting acknowledgement",
		m.counts.UnreadCount, m.counts.AdminUnread, m.counts.PushUnread, m.counts.AcknowledgementRequired)
	switch {
	case m.pollErr != nil:
		line += " · last poll failed: " + m.pollErr.Error()
	case m.lastSync.IsZero():
		line += " · not synced yet"
	default:
		line += " · synced " + humanize.Time(m.lastSync)
	}
	return line
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 8
}
