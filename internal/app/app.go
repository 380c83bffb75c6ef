package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/smsexpert/internal/inbox"
	"github.com/nhle/smsexpert/internal/keys"
	"github.com/nhle/smsexpert/internal/model"
	"github.com/nhle/smsexpert/internal/ui"
	"github.com/nhle/smsexpert/internal/ui/command"
	"github.com/nhle/smsexpert/internal/ui/detail"
	helpview "github.com/nhle/smsexpert/internal/ui/help"
	"github.com/nhle/smsexpert/internal/ui/notifylist"
)

const (
	actionTimeout = 45 * time.Second
	toastDuration = 4 * time.Second
)

// MaintenanceChecker reports the platform maintenance flag.
// *notifyapi.Client satisfies it.
type MaintenanceChecker interface {
	CheckMaintenanceMode(ctx context.Context) model.MaintenanceStatus
}

type stateMsg inbox.State

type toastMsg string

type clearToastMsg struct {
	seq int
}

type maintenanceMsg model.MaintenanceStatus

type actionDoneMsg struct {
	action notifylist.Action
	id     string
	err    error
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
)

// Model is the root Bubble Tea model that routes between views and drives
// the inbox store.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	store        *inbox.Store
	maintenance  MaintenanceChecker
	toaster      *Toaster
	keys         *keys.KeyMap
	list         notifylist.Model
	detail       detail.Model
	helpView     helpview.Model
	palette      command.Model
	states       <-chan inbox.State
	unsubscribe  func()
	state        inbox.State
	status       model.MaintenanceStatus
	toast        string
	toastSeq     int
	ready        bool
}

// New creates the root model. The store should already be started.
func New(store *inbox.Store, checker MaintenanceChecker, toaster *Toaster) Model {
	k := keys.DefaultKeyMap()
	states, unsubscribe := store.Subscribe()
	if toaster == nil {
		toaster = NewToaster()
	}

	m := Model{
		currentView: ViewList,
		store:       store,
		maintenance: checker,
		toaster:     toaster,
		keys:        k,
		list:        notifylist.New(k, 80, 24),
		detail:      detail.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		palette:     command.New(80, 24),
		states:      states,
		unsubscribe: unsubscribe,
		state:       store.State(),
	}
	m.list.SetState(m.state)
	return m
}

// Init listens for store changes and toasts, checks maintenance and loads
// the first page.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.waitForState(),
		m.waitForToast(),
		m.checkMaintenance(),
		m.runAction(notifylist.ActionMsg{Action: notifylist.ActionRefresh}),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.list.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.palette.SetSize(contentWidth, contentHeight)
		return m, nil

	case stateMsg:
		m.state = inbox.State(msg)
		cmd := m.list.SetState(m.state)
		if cur, ok := m.detail.Current(); ok {
			if fresh, found := m.state.Find(cur.ID); found {
				m.detail.SetNotification(fresh)
			}
		}
		return m, tea.Batch(cmd, m.waitForState())

	case toastMsg:
		m.toast = string(msg)
		m.toastSeq++
		seq := m.toastSeq
		return m, tea.Batch(
			m.waitForToast(),
			tea.Tick(toastDuration, func(time.Time) tea.Msg { return clearToastMsg{seq: seq} }),
		)

	case clearToastMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case maintenanceMsg:
		m.status = model.MaintenanceStatus(msg)
		if m.status.Active {
			m.toaster.ReportError(maintenanceText(m.status))
		}
		return m, nil

	case notifylist.SelectedMsg:
		return m.openDetail(msg.ID)

	case notifylist.ActionMsg:
		return m, m.runAction(msg)

	case actionDoneMsg:
		if msg.err != nil {
			m.toaster.ReportError(msg.err.Error())
			return m, nil
		}
		if msg.action == notifylist.ActionDelete && m.currentView == ViewDetail {
			m.currentView = ViewList
		}
		return m, nil

	case detail.LoadedMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		if msg.Err == nil && !msg.Notification.IsRead {
			return m, tea.Batch(cmd, m.runAction(notifylist.ActionMsg{
				Action: notifylist.ActionMarkRead,
				ID:     msg.Notification.ID,
			}))
		}
		return m, cmd

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case command.DoneMsg:
		m.currentView = m.previousView
		if msg.Err != nil {
			m.toaster.ReportError(msg.Err.Error())
			return m, nil
		}
		if msg.Msg == nil {
			return m, nil
		}
		next := msg.Msg
		return m, func() tea.Msg { return next }

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.currentView == ViewCommand || (m.currentView == ViewList && m.list.Searching()) {
			return m.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Command):
			m.previousView = m.currentView
			m.currentView = ViewCommand
			return m, m.palette.Focus()

		case key.Matches(msg, m.keys.Quit):
			if m.currentView == ViewList {
				return m.quit()
			}

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			m.refreshHelpStatus()
			return m, nil

		case key.Matches(msg, m.keys.Back):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
		}
	}

	return m.updateActiveView(msg)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	return m, tea.Quit
}

// refreshHelpStatus hands the counter poll outcome to the help view.
func (m *Model) refreshHelpStatus() {
	var lastSync time.Time
	var pollErr error
	for _, js := range m.store.JobStatuses() {
		if js.Name == inbox.JobUnreadCount {
			lastSync, pollErr = js.LastSync, js.Error
		}
	}
	m.helpView.SetStatus(m.state.Counts(), lastSync, pollErr)
}

// openDetail shows the notification and marks it read.
func (m Model) openDetail(id string) (tea.Model, tea.Cmd) {
	m.previousView = m.currentView
	m.currentView = ViewDetail

	if n, ok := m.store.FindNotificationByID(id); ok {
		m.detail.SetNotification(n)
		if n.IsRead {
			return m, nil
		}
		return m, m.runAction(notifylist.ActionMsg{Action: notifylist.ActionMarkRead, ID: n.ID})
	}

	m.detail.SetLoading(true)
	s := m.store
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		n, err := s.GetNotification(ctx, id)
		return detail.LoadedMsg{Notification: n, Err: err}
	}
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewList:
		m.list, cmd = m.list.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.palette, cmd = m.palette.Update(msg)
	}
	return m, cmd
}

// runAction executes a store operation off the UI goroutine. State changes
// arrive through the subscription; only the outcome is returned here.
func (m Model) runAction(a notifylist.ActionMsg) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		var err error
		switch a.Action {
		case notifylist.ActionRefresh:
			err = s.RefreshNotifications(ctx)
		case notifylist.ActionLoadMore:
			err = s.LoadMoreNotifications(ctx)
		case notifylist.ActionMarkRead:
			err = s.MarkAsRead(ctx, a.ID)
		case notifylist.ActionMarkAllRead:
			err = s.MarkAllAsRead(ctx)
		case notifylist.ActionAcknowledge:
			err = s.AcknowledgeNotification(ctx, a.ID)
		case notifylist.ActionDelete:
			err = s.DeleteNotification(ctx, a.ID)
		}
		return actionDoneMsg{action: a.Action, id: a.ID, err: err}
	}
}

func (m Model) waitForState() tea.Cmd {
	ch := m.states
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg(st)
	}
}

func (m Model) waitForToast() tea.Cmd {
	ch := m.toaster.ch
	return func() tea.Msg {
		return toastMsg(<-ch)
	}
}

func (m Model) checkMaintenance() tea.Cmd {
	if m.maintenance == nil {
		return nil
	}
	checker := m.maintenance
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return maintenanceMsg(checker.CheckMaintenanceMode(ctx))
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(ui.HeaderInfo{
		Counts:      m.state.Counts(),
		Syncing:     m.state.IsLoading,
		Maintenance: m.status.Active,
	})
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.toast)
	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.list.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.palette.View()
	default:
		return ""
	}
}

// keyHints returns context-sensitive key hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewDetail:
		return "esc back · a acknowledge · d delete · ? help"
	case ViewHelp:
		return "esc/? close"
	case ViewCommand:
		return "enter run · esc cancel"
	default:
		hints := "enter open · m read · M all read · a ack · d delete · r refresh · : command · ? help · q quit"
		if m.state.HasMore {
			hints += " · n more"
		}
		return hints
	}
}

func maintenanceText(s model.MaintenanceStatus) string {
	if s.Message != "" {
		return "Maintenance: " + s.Message
	}
	return "The platform is in maintenance mode."
}
