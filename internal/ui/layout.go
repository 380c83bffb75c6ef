package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/smsexpert/internal/model"
	"github.com/nhle/smsexpert/internal/theme"
)

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// HeaderInfo is what the header shows about the inbox.
type HeaderInfo struct {
	Counts      model.UnreadCounts
	Syncing     bool
	Maintenance bool
}

// Title returns the header title, with the unread total when non-zero.
func (h HeaderInfo) Title() string {
	title := "SMS Expert"
	if h.Counts.UnreadCount > 0 {
		title = fmt.Sprintf("SMS Expert [%d unread]", h.Counts.UnreadCount)
	}
	if h.Maintenance {
		title += " · MAINTENANCE"
	}
	return title
}

// Counters summarizes the per-source counters. The acknowledgement counter
// only shows when something awaits acknowledgement.
func (h HeaderInfo) Counters() string {
	parts := []string{
		fmt.Sprintf("admin %d", h.Counts.AdminUnread),
		fmt.Sprintf("push %d", h.Counts.PushUnread),
	}
	if h.Counts.AcknowledgementRequired > 0 {
		parts = append(parts, fmt.Sprintf("ack %d", h.Counts.AcknowledgementRequired))
	}
	if h.Syncing {
		parts = append(parts, "syncing…")
	}
	return strings.Join(parts, " · ")
}

// RenderHeader renders the top bar: title on the left, counters on the
// right. The counters are dropped first when the terminal is too narrow.
func (l Layout) RenderHeader(info HeaderInfo) string {
	style := theme.HeaderStyle
	if info.Maintenance {
		style = style.Background(theme.ColorRed)
	}

	titleRendered := style.Render(info.Title())
	countersRendered := style.Align(lipgloss.Right).Render(info.Counters())

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(countersRendered)
	if gap < 0 {
		countersRendered = ""
		gap = l.Width - lipgloss.Width(titleRendered)
	}
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		countersRendered,
	)
}

// RenderStatusBar renders the bottom bar: the toast when one is showing,
// otherwise the key hints. Either is cut to the terminal width.
func (l Layout) RenderStatusBar(hints string, toast string) string {
	style := theme.StatusBarStyle
	text := hints
	if toast != "" {
		style = theme.ErrorStyle
		text = "✗ " + toast
	}

	rendered := style.MaxWidth(l.Width).Render(text)
	gap := l.Width - lipgloss.Width(rendered)
	if gap <= 0 {
		return rendered
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame stacks header, content and status bar. Short content is
// padded so the status bar stays on the last line.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	if h := l.ContentHeight(); h > 0 && lipgloss.Height(content) < h {
		content = lipgloss.NewStyle().Height(h).Render(content)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
