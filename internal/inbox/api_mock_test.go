package inbox

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/nhle/smsexpert/internal/model"
	"github.com/nhle/smsexpert/internal/notifyapi"
)

type apiMock struct {
	mock.Mock
}

func (m *apiMock) GetNotifications(ctx context.Context, params notifyapi.ListParams) notifyapi.Result[notifyapi.Page] {
	args := m.Called(ctx, params)
	return args.Get(0).(notifyapi.Result[notifyapi.Page])
}

func (m *apiMock) GetUnreadCount(ctx context.Context) notifyapi.Result[model.UnreadCounts] {
	args := m.Called(ctx)
	return args.Get(0).(notifyapi.Result[model.UnreadCounts])
}

func (m *apiMock) MarkAsRead(ctx context.Context, id string) notifyapi.Result[bool] {
	args := m.Called(ctx, id)
	return args.Get(0).(notifyapi.Result[bool])
}

func (m *apiMock) MarkAllAsRead(ctx context.Context) notifyapi.Result[bool] {
	args := m.Called(ctx)
	return args.Get(0).(notifyapi.Result[bool])
}

func (m *apiMock) AcknowledgeNotification(ctx context.Context, id string) notifyapi.Result[bool] {
	args := m.Called(ctx, id)
	return args.Get(0).(notifyapi.Result[bool])
}

func (m *apiMock) DeleteNotification(ctx context.Context, id string) notifyapi.Result[bool] {
	args := m.Called(ctx, id)
	return args.Get(0).(notifyapi.Result[bool])
}

func (m *apiMock) GetNotificationByID(ctx context.Context, id string) notifyapi.Result[model.Notification] {
	args := m.Called(ctx, id)
	return args.Get(0).(notifyapi.Result[model.Notification])
}

var (
	confirmed = notifyapi.Result[bool]{Success: true, Data: true}
	refused   = notifyapi.Result[bool]{Success: false, Message: "Server error"}
)

func pageOf(more bool, list ...model.Notification) notifyapi.Result[notifyapi.Page] {
	return notifyapi.Result[notifyapi.Page]{
		Success: true,
		Data: notifyapi.Page{
			Notifications: list,
			Pagination:    model.Pagination{HasMore: &more},
		},
	}
}

func countsOf(unread, admin, push, ack int) notifyapi.Result[model.UnreadCounts] {
	return notifyapi.Result[model.UnreadCounts]{
		Success: true,
		Data: model.UnreadCounts{
			UnreadCount:             unread,
			AdminUnread:             admin,
			PushUnread:              push,
			AcknowledgementRequired: ack,
		},
	}
}

func unread(id string, source model.NotificationSource) model.Notification {
	return model.Notification{
		ID:        id,
		Source:    source,
		Title:     "Notification " + id,
		CreatedAt: time.Now(),
	}
}

func needsAck(id string) model.Notification {
	n := unread(id, model.SourceAdmin)
	n.RequiresAcknowledgement = true
	return n
}

func withServerID(n model.Notification, serverID int64) model.Notification {
	n.NotificationID = &serverID
	return n
}

func page(n int) notifyapi.ListParams {
	return notifyapi.ListParams{Page: n, PerPage: notifyapi.DefaultPerPage}
}
