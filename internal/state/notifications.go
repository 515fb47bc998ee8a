package state

import (
	"context"

	"github.com/spec-kit/rental-session/internal/domain"
	"github.com/spec-kit/rental-session/internal/events"
	"github.com/spec-kit/rental-session/internal/service"
)

// NotificationState is the notification list slice. UnreadCount is kept in
// step with the list on every mutation.
type NotificationState struct {
	Notifications []domain.Notification
	UnreadCount   int
	IsLoading     bool
	Error         string
}

func (n NotificationState) clone() NotificationState {
	n.Notifications = append([]domain.Notification(nil), n.Notifications...)
	return n
}

func (n *NotificationState) indexOf(id int64) int {
	for i := range n.Notifications {
		if n.Notifications[i].ID == id {
			return i
		}
	}
	return -1
}

func countUnread(list []domain.Notification) int {
	unread := 0
	for _, n := range list {
		if n.IsUnread() {
			unread++
		}
	}
	return unread
}

func (n *NotificationState) decrementUnread() {
	if n.UnreadCount > 0 {
		n.UnreadCount--
	}
}

// add prepends item; an item already in the list is replaced instead.
func (n *NotificationState) add(item domain.Notification) {
	if n.indexOf(item.ID) >= 0 {
		n.replace(item)
		return
	}
	n.Notifications = append([]domain.Notification{item}, n.Notifications...)
	if item.IsUnread() {
		n.UnreadCount++
	}
}

func (n *NotificationState) remove(id int64) {
	i := n.indexOf(id)
	if i < 0 {
		return
	}
	if n.Notifications[i].IsUnread() {
		n.decrementUnread()
	}
	n.Notifications = append(n.Notifications[:i:i], n.Notifications[i+1:]...)
}

func (n *NotificationState) replace(item domain.Notification) {
	i := n.indexOf(item.ID)
	if i < 0 {
		return
	}
	wasUnread := n.Notifications[i].IsUnread()
	n.Notifications[i] = item
	switch nowUnread := item.IsUnread(); {
	case wasUnread && !nowUnread:
		n.decrementUnread()
	case !wasUnread && nowUnread:
		n.UnreadCount++
	}
}

func (s *Store) updateNotifications(ctx context.Context, fn func(*NotificationState)) {
	s.update(ctx, events.EventNotificationsChanged, func(st *State) interface{} {
		fn(&st.Notifications)
		return st.Notifications.clone()
	})
}

// FetchNotifications replaces the list with one page from the backend and
// recomputes the unread count from it.
func (s *Store) FetchNotifications(ctx context.Context, params service.ListParams) error {
	s.updateNotifications(ctx, func(n *NotificationState) {
		n.IsLoading = true
		n.Error = ""
	})
	page, err := s.notes.GetNotifications(ctx, params)
	s.updateNotifications(ctx, func(n *NotificationState) {
		n.IsLoading = false
		if err != nil {
			n.Error = errorMessage(err, "Failed to fetch notifications")
			return
		}
		n.Notifications = append([]domain.Notification(nil), page.Rows...)
		n.UnreadCount = countUnread(n.Notifications)
	})
	return err
}

// AddNotification prepends a pushed notification.
func (s *Store) AddNotification(ctx context.Context, item domain.Notification) {
	s.updateNotifications(ctx, func(n *NotificationState) { n.add(item) })
}

// RemoveNotification drops a notification; removing an unread one lowers the count.
func (s *Store) RemoveNotification(ctx context.Context, id int64) {
	s.updateNotifications(ctx, func(n *NotificationState) { n.remove(id) })
}

// UpdateNotification replaces a notification in place, adjusting the count on
// read/unread transitions. Unknown ids are ignored.
func (s *Store) UpdateNotification(ctx context.Context, item domain.Notification) {
	s.updateNotifications(ctx, func(n *NotificationState) { n.replace(item) })
}

// ClearAllNotifications empties the list.
func (s *Store) ClearAllNotifications(ctx context.Context) {
	s.updateNotifications(ctx, func(n *NotificationState) {
		n.Notifications = nil
		n.UnreadCount = 0
	})
}

// SetUnreadCount overrides the cached count.
func (s *Store) SetUnreadCount(ctx context.Context, count int) {
	if count < 0 {
		count = 0
	}
	s.updateNotifications(ctx, func(n *NotificationState) { n.UnreadCount = count })
}

// ClearNotificationError resets the list error.
func (s *Store) ClearNotificationError(ctx context.Context) {
	s.updateNotifications(ctx, func(n *NotificationState) { n.Error = "" })
}

// MarkAsRead marks one notification read on the backend and locally.
func (s *Store) MarkAsRead(ctx context.Context, id int64) error {
	updated, err := s.notes.MarkAsRead(ctx, id)
	s.updateNotifications(ctx, func(n *NotificationState) {
		if err != nil {
			n.Error = errorMessage(err, "Failed to mark notification as read")
			return
		}
		i := n.indexOf(id)
		if i < 0 {
			return
		}
		item := n.Notifications[i]
		if updated != nil && updated.ID == id {
			item = *updated
		}
		item.Status = domain.StatusRead
		n.replace(item)
	})
	return err
}

// MarkAllAsRead marks every notification read on the backend and locally.
func (s *Store) MarkAllAsRead(ctx context.Context) error {
	_, err := s.notes.MarkAllAsRead(ctx)
	s.updateNotifications(ctx, func(n *NotificationState) {
		if err != nil {
			n.Error = errorMessage(err, "Failed to mark notifications as read")
			return
		}
		for i := range n.Notifications {
			n.Notifications[i].Status = domain.StatusRead
		}
		n.UnreadCount = 0
	})
	return err
}
