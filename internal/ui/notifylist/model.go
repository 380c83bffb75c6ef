package notifylist

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/smsexpert/internal/inbox"
	"github.com/nhle/smsexpert/internal/keys"
	"github.com/nhle/smsexpert/internal/model"
	"github.com/nhle/smsexpert/internal/theme"
)

// Action is a store operation requested from the list.
type Action int

const (
	ActionMarkRead Action = iota
	ActionMarkAllRead
	ActionAcknowledge
	ActionDelete
	ActionRefresh
	ActionLoadMore
)

// ActionMsg asks the app to run an operation against the store.
type ActionMsg struct {
	Action Action
	ID     string
}

// SelectedMsg is sent when a user opens a notification.
type SelectedMsg struct {
	ID string
}

// Model is the notification list view component.
type Model struct {
	list          list.Model
	keys          *keys.KeyMap
	state         inbox.State
	sourceFilters map[model.NotificationSource]bool
	unreadOnly    bool
	query         string
	searchMode    bool
	searchInput   textinput.Model
	width         int
	height        int
}

// New creates a new notification list model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search notifications..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:          l,
		keys:          k,
		sourceFilters: make(map[model.NotificationSource]bool),
		searchInput:   si,
		width:         width,
		height:        height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetState replaces the rendered inbox.
func (m *Model) SetState(st inbox.State) tea.Cmd {
	m.state = st
	return m.applyFilters()
}

// Visible returns the notifications currently shown, after filters.
func (m Model) Visible() []model.Notification {
	out := make([]model.Notification, 0, len(m.list.Items()))
	for _, it := range m.list.Items() {
		if ni, ok := it.(NotificationItem); ok {
			out = append(out, ni.Notification)
		}
	}
	return out
}

// Selected returns the highlighted notification.
func (m Model) Selected() (model.Notification, bool) {
	it, ok := m.list.SelectedItem().(NotificationItem)
	if !ok {
		return model.Notification{}, false
	}
	return it.Notification, true
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.query = strings.TrimSpace(m.searchInput.Value())
		return m, m.applyFilters()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.query = ""
		return m, m.applyFilters()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	selected, hasSelection := m.Selected()

	switch {
	case key.Matches(msg, m.keys.Select):
		if !hasSelection {
			return m, nil
		}
		return m, emit(SelectedMsg{ID: selected.ID})

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.FilterAdmin):
		m.toggleSourceFilter(model.SourceAdmin)
		return m, m.applyFilters()

	case key.Matches(msg, m.keys.FilterPush):
		m.toggleSourceFilter(model.SourcePush)
		return m, m.applyFilters()

	case key.Matches(msg, m.keys.FilterUnread):
		m.unreadOnly = !m.unreadOnly
		return m, m.applyFilters()

	case key.Matches(msg, m.keys.Refresh):
		return m, emit(ActionMsg{Action: ActionRefresh})

	case key.Matches(msg, m.keys.LoadMore):
		return m, emit(ActionMsg{Action: ActionLoadMore})

	case key.Matches(msg, m.keys.MarkAllRead):
		return m, emit(ActionMsg{Action: ActionMarkAllRead})

	case key.Matches(msg, m.keys.MarkRead):
		if !hasSelection {
			return m, nil
		}
		return m, emit(ActionMsg{Action: ActionMarkRead, ID: selected.ID})

	case key.Matches(msg, m.keys.Acknowledge):
		if !hasSelection || !selected.NeedsAcknowledgement() {
			return m, nil
		}
		return m, emit(ActionMsg{Action: ActionAcknowledge, ID: selected.ID})

	case key.Matches(msg, m.keys.Delete):
		if !hasSelection {
			return m, nil
		}
		return m, emit(ActionMsg{Action: ActionDelete, ID: selected.ID})
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	// Reaching the bottom pulls the next page.
	if key.Matches(msg, m.keys.Down) && m.state.HasMore && !m.state.IsLoading &&
		len(m.list.Items()) > 0 && m.list.Index() == len(m.list.Items())-1 {
		return m, tea.Batch(cmd, emit(ActionMsg{Action: ActionLoadMore}))
	}
	return m, cmd
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// toggleSourceFilter toggles a source filter on or off.
func (m *Model) toggleSourceFilter(src model.NotificationSource) {
	if m.sourceFilters[src] {
		delete(m.sourceFilters, src)
	} else {
		m.sourceFilters[src] = true
	}
}

// applyFilters rebuilds the list items from the state and the filters.
func (m *Model) applyFilters() tea.Cmd {
	query := strings.ToLower(m.query)
	items := make([]list.Item, 0, len(m.state.Notifications))
	for _, n := range m.state.Notifications {
		if len(m.sourceFilters) > 0 && !m.sourceFilters[n.Source] {
			continue
		}
		if m.unreadOnly && n.IsRead {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(n.Title), query) &&
			!strings.Contains(strings.ToLower(n.Message), query) {
			continue
		}
		items = append(items, NotificationItem{Notification: n, Pending: m.state.Pending[n.ID]})
	}
	return m.list.SetItems(items)
}

func (m Model) hasFilters() bool {
	return len(m.sourceFilters) > 0 || m.unreadOnly || m.query != ""
}

// View renders the notification list view.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when nothing is listed.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.state.IsLoading:
		return style.Render("Loading notifications…")
	case m.hasFilters():
		return style.Render("No matching notifications.\nTry adjusting your filters.")
	default:
		return style.Render("You're all caught up.\n\nPress r to refresh.")
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
