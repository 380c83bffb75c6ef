package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestNotificationMatchesID(t *testing.T) {
	n := Notification{ID: "push-7", NotificationID: int64Ptr(42)}

	require.True(t, n.MatchesID("push-7"))
	require.True(t, n.MatchesID("42"))
	require.False(t, n.MatchesID("7"))
	require.False(t, n.MatchesID(""))

	noServerID := Notification{ID: "1"}
	require.True(t, noServerID.MatchesID("1"))
	require.False(t, noServerID.MatchesID("0"))
}

func TestNotificationValidate(t *testing.T) {
	now := time.Now()

	t.Run("valid unread", func(t *testing.T) {
		require.NoError(t, Notification{ID: "1"}.Validate())
	})

	t.Run("valid acknowledged", func(t *testing.T) {
		n := Notification{
			ID:                      "1",
			RequiresAcknowledgement: true,
			IsAcknowledged:          true,
			AcknowledgedAt:          &now,
			IsRead:                  true,
			ReadAt:                  &now,
		}
		require.NoError(t, n.Validate())
	})

	t.Run("ack without requirement", func(t *testing.T) {
		n := Notification{ID: "1", IsAcknowledged: true, AcknowledgedAt: &now}
		require.ErrorIs(t, n.Validate(), ErrAckWithoutRequirement)
	})

	t.Run("ack without timestamp", func(t *testing.T) {
		n := Notification{ID: "1", RequiresAcknowledgement: true, IsAcknowledged: true}
		require.ErrorIs(t, n.Validate(), ErrAckTimestamp)
	})

	t.Run("read without timestamp", func(t *testing.T) {
		n := Notification{ID: "1", IsRead: true}
		require.ErrorIs(t, n.Validate(), ErrReadTimestamp)
	})
}

func TestNotificationDecode(t *testing.T) {
	raw := `{
		"id": "12",
		"notification_id": 12,
		"source": "admin",
		"title": "Low balance",
		"message": "Your SMS balance is below 100 credits.",
		"message_preview": "Your SMS balance is below...",
		"type": "billing",
		"priority": "high",
		"requires_acknowledgement": true,
		"is_read": false,
		"is_acknowledged": false,
		"read_at": null,
		"acknowledged_at": null,
		"created_at": "2026-10-01T08:30:00Z",
		"time_ago": "2 weeks ago",
		"data": {"screen": "wallet"}
	}`

	var n Notification
	require.NoError(t, json.Unmarshal([]byte(raw), &n))
	require.Equal(t, SourceAdmin, n.Source)
	require.Equal(t, TypeBilling, n.Type)
	require.NotNil(t, n.NotificationID)
	require.Equal(t, int64(12), *n.NotificationID)
	require.True(t, n.NeedsAcknowledgement())
	require.Nil(t, n.ReadAt)
	fields, ok := n.DataFields()
	require.True(t, ok)
	require.Equal(t, "wallet", fields["screen"])
	require.NoError(t, n.Validate())
}

func TestPaginationMore(t *testing.T) {
	yes, no := true, false

	require.True(t, Pagination{CurrentPage: 1, LastPage: 3}.More())
	require.False(t, Pagination{CurrentPage: 3, LastPage: 3}.More())
	require.False(t, Pagination{CurrentPage: 1, LastPage: 3, HasMore: &no}.More())
	require.True(t, Pagination{CurrentPage: 3, LastPage: 3, HasMore: &yes}.More())
}

func TestNotificationDataPayloads(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		hasData  bool
		isObject bool
	}{
		{"object", `{"screen":"wallet"}`, true, true},
		{"string", `"campaign:42"`, true, false},
		{"array", `[1,2]`, true, false},
		{"number", `7`, true, false},
		{"null", `null`, false, false},
		{"empty object", `{}`, false, true},
		{"absent", ``, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Notification{Data: json.RawMessage(tt.raw)}
			require.Equal(t, tt.hasData, n.HasData())
			_, ok := n.DataFields()
			require.Equal(t, tt.isObject, ok)
		})
	}
}
