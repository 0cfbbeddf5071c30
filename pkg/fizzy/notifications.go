package fizzy

import (
	"context"
	"iter"
	"net/http"
	"net/url"

	"github.com/Sternrassler/fizzy-go/pkg/pagination"
	"github.com/Sternrassler/fizzy-go/pkg/transport"
)

// NotificationsService manages the current user's notifications.
type NotificationsService struct {
	service
}

// readQuery filters by read state; nil lists both.
func readQuery(read *bool) url.Values {
	return transport.Params(map[string]any{"read": read})
}

// List returns the first page of notifications.
func (s *NotificationsService) List(ctx context.Context, read *bool) ([]Notification, error) {
	return get[[]Notification](ctx, s.service, "/notifications", readQuery(read))
}

// ListPaginated returns the first page of notifications with a cursor to
// the next.
func (s *NotificationsService) ListPaginated(ctx context.Context, read *bool) (*pagination.Page[Notification], error) {
	return firstPage[Notification](ctx, s.service, "/notifications", readQuery(read))
}

// ListAll iterates over every notification.
func (s *NotificationsService) ListAll(ctx context.Context, read *bool) iter.Seq2[Notification, error] {
	return listAll[Notification](ctx, s.service, "/notifications", readQuery(read))
}

// MarkRead marks a notification as read.
func (s *NotificationsService) MarkRead(ctx context.Context, notificationID string) (*Notification, error) {
	return send[*Notification](ctx, s.service, http.MethodPost, "/notifications/"+notificationID+"/read", nil)
}

// MarkUnread marks a notification as unread.
func (s *NotificationsService) MarkUnread(ctx context.Context, notificationID string) (*Notification, error) {
	return send[*Notification](ctx, s.service, http.MethodPost, "/notifications/"+notificationID+"/unread", nil)
}

// BulkMarkRead marks several notifications as read in one call.
func (s *NotificationsService) BulkMarkRead(ctx context.Context, notificationIDs []string) ([]Notification, error) {
	return send[[]Notification](ctx, s.service, http.MethodPost, "/notifications/read",
		map[string]any{"notification_ids": notificationIDs})
}
