package notifyapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/nhle/smsexpert/internal/model"
	"github.com/nhle/smsexpert/internal/transport"
)

// Requester performs a single API request. *transport.Client satisfies it.
type Requester interface {
	Request(ctx context.Context, endpoint string, opts transport.Options) transport.Envelope
}

// Client wraps the notification endpoints. It never returns Go errors:
// every outcome is a Result. Failures are not reported through the
// transport toast; callers render their own error UI.
type Client struct {
	req Requester
	log *zap.Logger
}

// New creates a notification API client.
func New(req Requester, logger *zap.Logger) *Client {
	return &Client{req: req, log: logger}
}

func (c *Client) call(ctx context.Context, method, endpoint string, body any, auth bool) transport.Envelope {
	return c.req.Request(ctx, endpoint, transport.Options{
		Method:         method,
		Body:           body,
		RequiresAuth:   auth,
		ShowErrorToast: false,
	})
}

// decodeResult reshapes an envelope carrying a payload.
func decodeResult[T any](c *Client, env transport.Envelope, what string) Result[T] {
	if !env.Status {
		return Result[T]{Success: false, Message: env.Message}
	}
	data, err := transport.Decode[T](env)
	if err != nil {
		c.log.Warn("decoding notification api payload failed", zap.String("payload", what), zap.Error(err))
		return Result[T]{Success: false, Message: transport.MsgInvalidResponse}
	}
	return Result[T]{Success: true, Data: data, Message: env.Message}
}

// confirm reshapes an envelope where only success matters.
func confirm(env transport.Envelope) Result[bool] {
	return Result[bool]{Success: env.Status, Data: env.Status, Message: env.Message}
}

func notificationPath(id string, suffix string) string {
	p := "notifications/" + url.PathEscape(id)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

// GetNotifications fetches one page of the notification list.
func (c *Client) GetNotifications(ctx context.Context, params ListParams) Result[Page] {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 {
		params.PerPage = DefaultPerPage
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(params.Page))
	q.Set("per_page", strconv.Itoa(params.PerPage))
	if params.UnreadOnly {
		q.Set("unread_only", "1")
	} else {
		q.Set("unread_only", "0")
	}
	if params.Source != "" {
		q.Set("source", string(params.Source))
	}

	env := c.call(ctx, http.MethodGet, "notifications?"+q.Encode(), nil, true)
	res := decodeResult[Page](c, env, "notification list")
	if res.Success {
		if res.Data.Pagination.CurrentPage == 0 {
			res.Data.Pagination.CurrentPage = params.Page
		}
		for i := range res.Data.Notifications {
			fillTimeAgo(&res.Data.Notifications[i])
		}
	}
	return res
}

// GetUnreadCount fetches the inbox counters.
func (c *Client) GetUnreadCount(ctx context.Context) Result[model.UnreadCounts] {
	env := c.call(ctx, http.MethodGet, "notifications/unread-count", nil, true)
	return decodeResult[model.UnreadCounts](c, env, "unread count")
}

// MarkAsRead marks one notification read.
func (c *Client) MarkAsRead(ctx context.Context, id string) Result[bool] {
	return confirm(c.call(ctx, http.MethodPost, notificationPath(id, "read"), nil, true))
}

// MarkAllAsRead marks every notification read.
func (c *Client) MarkAllAsRead(ctx context.Context) Result[bool] {
	return confirm(c.call(ctx, http.MethodPost, "notifications/mark-all-read", nil, true))
}

// AcknowledgeNotification acknowledges one notification.
func (c *Client) AcknowledgeNotification(ctx context.Context, id string) Result[bool] {
	return confirm(c.call(ctx, http.MethodPost, notificationPath(id, "acknowledge"), nil, true))
}

// DeleteNotification deletes one notification.
func (c *Client) DeleteNotification(ctx context.Context, id string) Result[bool] {
	return confirm(c.call(ctx, http.MethodDelete, notificationPath(id, ""), nil, true))
}

// GetNotificationByID fetches a single notification.
func (c *Client) GetNotificationByID(ctx context.Context, id string) Result[model.Notification] {
	env := c.call(ctx, http.MethodGet, notificationPath(id, ""), nil, true)
	res := decodeResult[model.Notification](c, env, "notification")
	if res.Success {
		fillTimeAgo(&res.Data)
	}
	return res
}

// RegisterFcmToken registers a device push token with the backend.
func (c *Client) RegisterFcmToken(ctx context.Context, reg PushRegistration) Result[bool] {
	return confirm(c.call(ctx, http.MethodPost, "notifications/fcm-token", reg, true))
}

// UnregisterFcmToken removes a device push token.
func (c *Client) UnregisterFcmToken(ctx context.Context, token string) Result[bool] {
	q := url.Values{}
	q.Set("fcm_token", token)
	return confirm(c.call(ctx, http.MethodDelete, "notifications/fcm-token?"+q.Encode(), nil, true))
}

// CheckMaintenanceMode reports the platform maintenance flag. It fails
// open: any failure reads as "not in maintenance".
func (c *Client) CheckMaintenanceMode(ctx context.Context) model.MaintenanceStatus {
	env := c.call(ctx, http.MethodGet, "maintenance-status", nil, false)
	res := decodeResult[model.MaintenanceStatus](c, env, "maintenance status")
	if !res.Success {
		c.log.Debug("maintenance check failed, assuming available", zap.String("message", res.Message))
		return model.MaintenanceStatus{}
	}
	return res.Data
}

// fillTimeAgo computes the display age when the server omitted it.
func fillTimeAgo(n *model.Notification) {
	if n.TimeAgo == "" && !n.CreatedAt.IsZero() {
		n.TimeAgo = humanize.Time(n.CreatedAt)
	}
}
