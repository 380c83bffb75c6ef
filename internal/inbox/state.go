package inbox

import (
	"github.com/nhle/smsexpert/internal/model"
)

// State is an immutable snapshot of the inbox. Callers may read it freely;
// changing it has no effect on the store.
type State struct {
	Notifications []model.Notification

	UnreadCount             int
	AdminUnread             int
	PushUnread              int
	AcknowledgementRequired int

	IsLoading   bool
	HasMore     bool
	CurrentPage int

	// Pending holds ids with a mutation awaiting server confirmation.
	Pending map[string]bool
}

// Counts returns the counters as the API shapes them.
func (s State) Counts() model.UnreadCounts {
	return model.UnreadCounts{
		UnreadCount:             s.UnreadCount,
		AdminUnread:             s.AdminUnread,
		PushUnread:              s.PushUnread,
		AcknowledgementRequired: s.AcknowledgementRequired,
	}
}

// Find looks a notification up by id or numeric server id.
func (s State) Find(id string) (model.Notification, bool) {
	if i := indexOf(s.Notifications, id); i >= 0 {
		return s.Notifications[i], true
	}
	return model.Notification{}, false
}

func indexOf(list []model.Notification, id string) int {
	for i := range list {
		if list[i].MatchesID(id) {
			return i
		}
	}
	return -1
}

func decrement(n int) int {
	if n > 0 {
		return n - 1
	}
	return 0
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
