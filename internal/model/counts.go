package model

// UnreadCounts holds the server-computed inbox aggregates.
type UnreadCounts struct {
	UnreadCount             int `json:"unread_count"`
	AdminUnread             int `json:"admin_unread"`
	PushUnread              int `json:"push_unread"`
	AcknowledgementRequired int `json:"acknowledgement_required"`
}

// Pagination is the page metadata returned with a notification list.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int   `json:"total"`
	HasMore     *bool `json:"has_more,omitempty"`
}

// More reports whether pages remain after CurrentPage. An explicit has_more
// flag wins; otherwise it is derived from last_page.
func (p Pagination) More() bool {
	if p.HasMore != nil {
		return *p.HasMore
	}
	return p.CurrentPage < p.LastPage
}

// MaintenanceStatus reports whether the platform is in maintenance mode.
type MaintenanceStatus struct {
	Active  bool   `json:"maintenance_mode"`
	Message string `json:"message,omitempty"`
}
