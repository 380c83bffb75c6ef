package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// NotificationSource identifies the channel a notification arrived through.
type NotificationSource string

const (
	SourceAdmin NotificationSource = "admin"
	SourcePush  NotificationSource = "push"
)

// NotificationType is the category the backend assigns to a notification.
type NotificationType string

const (
	TypeSystem      NotificationType = "system"
	TypeCampaign    NotificationType = "campaign"
	TypeBilling     NotificationType = "billing"
	TypeAccount     NotificationType = "account"
	TypeSecurity    NotificationType = "security"
	TypeMaintenance NotificationType = "maintenance"
	TypePromotion   NotificationType = "promotion"
	TypeGeneral     NotificationType = "general"
)

// Priority levels used by the backend.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var (
	ErrAckWithoutRequirement = errors.New("notification acknowledged but does not require acknowledgement")
	ErrAckTimestamp          = errors.New("acknowledged_at must be set iff is_acknowledged")
	ErrReadTimestamp         = errors.New("read_at must be set iff is_read")
)

// Notification is a single inbox entry as served by the SMS Expert API.
type Notification struct {
	// ID is the client-facing identifier used in every endpoint path.
	ID string `json:"id"`

	// NotificationID is the numeric server id. Admin notifications carry
	// one; push-only entries may not.
	NotificationID *int64 `json:"notification_id,omitempty"`

	// Source is either admin or push.
	Source NotificationSource `json:"source"`

	Title          string           `json:"title"`
	Message        string           `json:"message"`
	MessagePreview string           `json:"message_preview"`
	Type           NotificationType `json:"type"`
	Priority       string           `json:"priority"`

	// RequiresAcknowledgement marks notifications the user must explicitly
	// confirm, not merely read.
	RequiresAcknowledgement bool `json:"requires_acknowledgement"`

	IsRead         bool       `json:"is_read"`
	IsAcknowledged bool       `json:"is_acknowledged"`
	ReadAt         *time.Time `json:"read_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at"`
	CreatedAt      time.Time  `json:"created_at"`

	// TimeAgo is the display string precomputed by the server.
	TimeAgo string `json:"time_ago"`

	// Data is an opaque payload used for deep links. It is usually an
	// object but the server does not guarantee it.
	Data json.RawMessage `json:"data,omitempty"`
}

// MatchesID reports whether id refers to this notification, either by the
// client id or by the stringified numeric server id.
func (n Notification) MatchesID(id string) bool {
	if id == "" {
		return false
	}
	if n.ID == id {
		return true
	}
	return n.NotificationID != nil && strconv.FormatInt(*n.NotificationID, 10) == id
}

// NeedsAcknowledgement reports whether the notification still awaits an
// acknowledgement from the user.
func (n Notification) NeedsAcknowledgement() bool {
	return n.RequiresAcknowledgement && !n.IsAcknowledged
}

// DataFields decodes Data when it is a JSON object.
func (n Notification) DataFields() (map[string]any, bool) {
	trimmed := bytes.TrimSpace(n.Data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var fields map[string]any
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// HasData reports whether Data carries anything besides null or an empty
// object.
func (n Notification) HasData() bool {
	trimmed := bytes.TrimSpace(n.Data)
	switch string(trimmed) {
	case "", "null", "{}":
		return false
	}
	return true
}

// Validate checks the read and acknowledgement invariants.
func (n Notification) Validate() error {
	if n.IsAcknowledged && !n.RequiresAcknowledgement {
		return ErrAckWithoutRequirement
	}
	if n.IsAcknowledged != (n.AcknowledgedAt != nil) {
		return ErrAckTimestamp
	}
	if n.IsRead != (n.ReadAt != nil) {
		return ErrReadTimestamp
	}
	return nil
}
