package help

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/smsexpert/internal/keys"
	"github.com/nhle/smsexpert/internal/model"
)

func TestStatusLine(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)
	counts := model.UnreadCounts{UnreadCount: 5, AdminUnread: 2, PushUnread: 3, AcknowledgementRequired: 1}

	m.SetStatus(counts, time.Time{}, nil)
	assert.Equal(t, "5 unread (admin 2, push 3), 1 awaiting acknowledgement · not synced yet", m.statusLine())

	m.SetStatus(counts, time.Now().Add(-2*time.Minute), nil)
	assert.Contains(t, m.statusLine(), "synced 2 minutes ago")

	m.SetStatus(counts, time.Now(), errors.New("offline"))
	assert.Contains(t, m.statusLine(), "last poll failed: offline")
}

func TestViewListsSections(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 50)
	view := m.View()
	for _, title := range sectionTitles {
		assert.Contains(t, view, title)
	}
	assert.Contains(t, view, "mark all read")
}
