package notifylist

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/smsexpert/internal/model"
	"github.com/nhle/smsexpert/internal/theme"
)

// NotificationItem wraps a model.Notification so it can be used in a
// bubbles/list.
type NotificationItem struct {
	Notification model.Notification

	// Pending is set while a change to this entry awaits the server.
	Pending bool
}

// FilterValue returns the string used for fuzzy filtering.
func (i NotificationItem) FilterValue() string { return i.Notification.Title }

// Title returns the notification title for the list.
func (i NotificationItem) Title() string { return i.Notification.Title }

// Description returns a short summary line for the list.
func (i NotificationItem) Description() string {
	parts := []string{
		string(i.Notification.Source),
		string(i.Notification.Type),
		timeAgo(i.Notification),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering notifications.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list item line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(NotificationItem)
	if !ok {
		return
	}
	n := it.Notification
	isSelected := index == m.Index()

	marker := " "
	if !n.IsRead {
		marker = theme.UnreadMarkerStyle.Render("●")
	}

	ack := " "
	if n.NeedsAcknowledgement() {
		ack = theme.AckBadgeStyle.Render("!")
	}

	source := string(n.Source)
	srcBadge := theme.SourceLabelStyle(source).Render(strings.ToUpper(source)[:min(3, len(source))])
	typeBadge := theme.TypeStyle(string(n.Type)).Render(string(n.Type))

	title := n.Title
	if n.Priority == model.PriorityHigh || n.Priority == model.PriorityUrgent {
		title = theme.PriorityStyle(n.Priority).Render(title)
	}

	pending := ""
	if it.Pending {
		pending = lipgloss.NewStyle().Foreground(theme.ColorGray).Render(" …")
	}

	age := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(timeAgo(n))

	line := fmt.Sprintf("%s%s %s %s %s%s  %s", marker, ack, srcBadge, typeBadge, title, pending, age)

	if isSelected {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// timeAgo prefers the server's display string.
func timeAgo(n model.Notification) string {
	if n.TimeAgo != "" {
		return n.TimeAgo
	}
	if n.CreatedAt.IsZero() {
		return ""
	}
	return humanize.Time(n.CreatedAt)
}
