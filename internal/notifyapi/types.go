package notifyapi

import (
	"github.com/nhle/smsexpert/internal/model"
)

// DefaultPerPage is the page size used when ListParams leaves it unset.
const DefaultPerPage = 20

// Result is the reshaped envelope every API call returns.
type Result[T any] struct {
	Success bool
	Data    T
	Message string
}

// ListParams selects a page of the notification list.
type ListParams struct {
	Page       int
	PerPage    int
	UnreadOnly bool

	// Source filters by channel; empty means all.
	Source model.NotificationSource
}

// Page is one page of the notification list.
type Page struct {
	Notifications []model.Notification `json:"notifications"`
	Pagination    model.Pagination     `json:"pagination"`
}

// PushRegistration describes a device push token.
type PushRegistration struct {
	Token      string `json:"fcm_token"`
	DeviceType string `json:"device_type,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
}
