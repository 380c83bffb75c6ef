package notifyapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/smsexpert/internal/model"
	"github.com/nhle/smsexpert/internal/transport"
)

type requesterMock struct {
	mock.Mock
}

func (m *requesterMock) Request(ctx context.Context, endpoint string, opts transport.Options) transport.Envelope {
	args := m.Called(ctx, endpoint, opts)
	return args.Get(0).(transport.Envelope)
}

func silentOpts(method string, auth bool) any {
	return mock.MatchedBy(func(o transport.Options) bool {
		return o.Method == method && o.RequiresAuth == auth && !o.ShowErrorToast
	})
}

func okEnvelope(t *testing.T, data any) transport.Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return transport.Envelope{Status: true, Message: "ok", Data: raw, HTTPStatus: http.StatusOK}
}

func TestGetNotifications(t *testing.T) {
	t.Run("builds query and decodes page", func(t *testing.T) {
		created := time.Now().Add(-3 * time.Hour)
		req := &requesterMock{}
		req.On("Request", mock.Anything, "notifications?page=2&per_page=10&source=push&unread_only=1", silentOpts(http.MethodGet, true)).
			Return(okEnvelope(t, map[string]any{
				"notifications": []map[string]any{
					{"id": "a", "title": "Campaign sent", "created_at": created, "time_ago": "3 hours ago"},
					{"id": "b", "title": "No age", "created_at": created},
				},
				"pagination": map[string]any{"current_page": 2, "last_page": 4, "per_page": 10, "total": 35},
			})).Once()

		c := New(req, zap.NewNop())
		res := c.GetNotifications(context.Background(), ListParams{Page: 2, PerPage: 10, UnreadOnly: true, Source: model.SourcePush})

		require.True(t, res.Success)
		require.Len(t, res.Data.Notifications, 2)
		require.Equal(t, "3 hours ago", res.Data.Notifications[0].TimeAgo)
		require.Contains(t, res.Data.Notifications[1].TimeAgo, "ago")
		require.True(t, res.Data.Pagination.More())
		req.AssertExpectations(t)
	})

	t.Run("defaults page and size", func(t *testing.T) {
		req := &requesterMock{}
		req.On("Request", mock.Anything, "notifications?page=1&per_page=20&unread_only=0", silentOpts(http.MethodGet, true)).
			Return(okEnvelope(t, map[string]any{"notifications": []any{}, "pagination": map[string]any{}})).Once()

		res := New(req, zap.NewNop()).GetNotifications(context.Background(), ListParams{})
		require.True(t, res.Success)
		require.Equal(t, 1, res.Data.Pagination.CurrentPage)
		require.False(t, res.Data.Pagination.More())
		req.AssertExpectations(t)
	})

	t.Run("failure envelope", func(t *testing.T) {
		req := &requesterMock{}
		req.On("Request", mock.Anything, mock.Anything, mock.Anything).
			Return(transport.Envelope{Status: false, Message: transport.MsgNetwork}).Once()

		res := New(req, zap.NewNop()).GetNotifications(context.Background(), ListParams{Page: 1})
		require.False(t, res.Success)
		require.Equal(t, transport.MsgNetwork, res.Message)
	})

	t.Run("missing data", func(t *testing.T) {
		req := &requesterMock{}
		req.On("Request", mock.Anything, mock.Anything, mock.Anything).
			Return(transport.Envelope{Status: true, Message: "ok"}).Once()

		res := New(req, zap.NewNop()).GetNotifications(context.Background(), ListParams{Page: 1})
		require.False(t, res.Success)
		require.Equal(t, transport.MsgInvalidResponse, res.Message)
	})
}

func TestGetUnreadCount(t *testing.T) {
	req := &requesterMock{}
	req.On("Request", mock.Anything, "notifications/unread-count", silentOpts(http.MethodGet, true)).
		Return(okEnvelope(t, map[string]int{
			"unread_count":             5,
			"admin_unread":             2,
			"push_unread":              3,
			"acknowledgement_required": 1,
		})).Once()

	res := New(req, zap.NewNop()).GetUnreadCount(context.Background())
	require.True(t, res.Success)
	require.Equal(t, model.UnreadCounts{UnreadCount: 5, AdminUnread: 2, PushUnread: 3, AcknowledgementRequired: 1}, res.Data)
	req.AssertExpectations(t)
}

func TestMutations(t *testing.T) {
	cases := []struct {
		name     string
		method   string
		endpoint string
		call     func(c *Client) Result[bool]
	}{
		{"mark read", http.MethodPost, "notifications/7/read", func(c *Client) Result[bool] {
			return c.MarkAsRead(context.Background(), "7")
		}},
		{"mark all read", http.MethodPost, "notifications/mark-all-read", func(c *Client) Result[bool] {
			return c.MarkAllAsRead(context.Background())
		}},
		{"acknowledge", http.MethodPost, "notifications/7/acknowledge", func(c *Client) Result[bool] {
			return c.AcknowledgeNotification(context.Background(), "7")
		}},
		{"delete", http.MethodDelete, "notifications/7", func(c *Client) Result[bool] {
			return c.DeleteNotification(context.Background(), "7")
		}},
		{"escapes id", http.MethodPost, "notifications/a%2Fb/read", func(c *Client) Result[bool] {
			return c.MarkAsRead(context.Background(), "a/b")
		}},
		{"unregister token", http.MethodDelete, "notifications/fcm-token?fcm_token=tok", func(c *Client) Result[bool] {
			return c.UnregisterFcmToken(context.Background(), "tok")
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := &requesterMock{}
			req.On("Request", mock.Anything, tc.endpoint, silentOpts(tc.method, true)).
				Return(transport.Envelope{Status: true, Message: "done"}).Once()

			res := tc.call(New(req, zap.NewNop()))
			require.True(t, res.Success)
			require.True(t, res.Data)
			require.Equal(t, "done", res.Message)
			req.AssertExpectations(t)
		})
	}

	t.Run("failure", func(t *testing.T) {
		req := &requesterMock{}
		req.On("Request", mock.Anything, "notifications/7/read", mock.Anything).
			Return(transport.Envelope{Status: false, Message: "Notification not found"}).Once()

		res := New(req, zap.NewNop()).MarkAsRead(context.Background(), "7")
		require.False(t, res.Success)
		require.False(t, res.Data)
		require.Equal(t, "Notification not found", res.Message)
	})
}

func TestRegisterFcmToken(t *testing.T) {
	reg := PushRegistration{Token: "tok", DeviceType: "desktop", DeviceName: "laptop"}
	req := &requesterMock{}
	req.On("Request", mock.Anything, "notifications/fcm-token", mock.MatchedBy(func(o transport.Options) bool {
		return o.Method == http.MethodPost && o.Body == reg && o.RequiresAuth && !o.ShowErrorToast
	})).Return(transport.Envelope{Status: true}).Once()

	res := New(req, zap.NewNop()).RegisterFcmToken(context.Background(), reg)
	require.True(t, res.Success)
	req.AssertExpectations(t)
}

func TestGetNotificationByID(t *testing.T) {
	req := &requesterMock{}
	req.On("Request", mock.Anything, "notifications/42", silentOpts(http.MethodGet, true)).
		Return(okEnvelope(t, map[string]any{"id": "42", "notification_id": 42, "title": "Hello"})).Once()

	res := New(req, zap.NewNop()).GetNotificationByID(context.Background(), "42")
	require.True(t, res.Success)
	require.Equal(t, "Hello", res.Data.Title)
	require.True(t, res.Data.MatchesID("42"))
}

func TestCheckMaintenanceMode(t *testing.T) {
	t.Run("active", func(t *testing.T) {
		req := &requesterMock{}
		req.On("Request", mock.Anything, "maintenance-status", silentOpts(http.MethodGet, false)).
			Return(okEnvelope(t, map[string]any{"maintenance_mode": true, "message": "Back at 10:00"})).Once()

		status := New(req, zap.NewNop()).CheckMaintenanceMode(context.Background())
		require.True(t, status.Active)
		require.Equal(t, "Back at 10:00", status.Message)
	})

	t.Run("fails open", func(t *testing.T) {
		req := &requesterMock{}
		req.On("Request", mock.Anything, "maintenance-status", mock.Anything).
			Return(transport.Envelope{Status: false, Message: transport.MsgTimeout}).Once()

		status := New(req, zap.NewNop()).CheckMaintenanceMode(context.Background())
		require.False(t, status.Active)
	})

	t.Run("fails open on garbage", func(t *testing.T) {
		req := &requesterMock{}
		req.On("Request", mock.Anything, "maintenance-status", mock.Anything).
			Return(transport.Envelope{Status: true, Data: json.RawMessage(`"yes"`)}).Once()

		status := New(req, zap.NewNop()).CheckMaintenanceMode(context.Background())
		require.False(t, status.Active)
	})
}

func TestClientOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/notifications/unread-count", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"unread_count":4,"admin_unread":1,"push_unread":3,"acknowledgement_required":0}}`))
	}))
	defer server.Close()

	tc := transport.New(transport.Config{BaseURL: server.URL, Timeout: time.Second}, nil, zap.NewNop())
	defer tc.Close()

	res := New(tc, zap.NewNop()).GetUnreadCount(context.Background())
	require.True(t, res.Success)
	require.Equal(t, 4, res.Data.UnreadCount)
}

func TestGetNotificationsMixedDataPayloads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/notifications", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{
			"notifications":[
				{"id":"a","title":"Invoice","created_at":"2026-10-01T08:30:00Z","data":{"screen":"invoice"}},
				{"id":"b","title":"Campaign","created_at":"2026-10-01T08:31:00Z","data":"campaign:42"},
				{"id":"c","title":"Batch","created_at":"2026-10-01T08:32:00Z","data":[1,2,3]},
				{"id":"d","title":"Plain","created_at":"2026-10-01T08:33:00Z","data":null},
				{"id":"e","title":"Absent","created_at":"2026-10-01T08:34:00Z"}
			],
			"pagination":{"current_page":1,"last_page":1}}}`))
	}))
	defer server.Close()

	tc := transport.New(transport.Config{BaseURL: server.URL, Timeout: time.Second}, nil, zap.NewNop())
	defer tc.Close()

	res := New(tc, zap.NewNop()).GetNotifications(context.Background(), ListParams{})
	require.True(t, res.Success, res.Message)
	require.Len(t, res.Data.Notifications, 5)

	list := res.Data.Notifications
	fields, ok := list[0].DataFields()
	require.True(t, ok)
	require.Equal(t, "invoice", fields["screen"])

	_, ok = list[1].DataFields()
	require.False(t, ok)
	require.JSONEq(t, `"campaign:42"`, string(list[1].Data))
	require.JSONEq(t, `[1,2,3]`, string(list[2].Data))
	require.False(t, list[3].HasData())
	require.False(t, list[4].HasData())
}
