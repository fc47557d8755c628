package mindtree

import (
	"context"
	"net/http"
	"slices"
	"sync"
)

// Notification is a social event addressed to the member (a like, a
// comment on a diary entry...).
type Notification struct {
	ID             string `json:"id"`
	ObjectID       int64  `json:"objectId"`
	SenderUserID   string `json:"senderUserId"`
	ReceiverUserID string `json:"receiverUserId"`
	Type           string `json:"type"`
	DiaryCreatedAt string `json:"diaryCreatedAt"`
	CreatedAt      string `json:"createdAt"`
}

// NotificationList is the observable newest-first list of unacknowledged
// notifications.
type NotificationList struct {
	mu    sync.RWMutex
	items []Notification
	subs  observers[[]Notification]
}

func NewNotificationList() *NotificationList {
	return &NotificationList{}
}

// List returns a copy of the current list.
func (l *NotificationList) List() []Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// Len returns the number of notifications held.
func (l *NotificationList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Subscribe registers fn for every change and returns the unsubscribe func.
func (l *NotificationList) Subscribe(fn func([]Notification)) func() {
	return l.subs.subscribe(fn)
}

// Add prepends n. Duplicates are kept.
func (l *NotificationList) Add(n Notification) {
	l.update(func(items []Notification) []Notification {
		return append([]Notification{n}, items...)
	})
}

// Remove drops every notification with the given id.
func (l *NotificationList) Remove(id string) {
	l.update(func(items []Notification) []Notification {
		return slices.DeleteFunc(items, func(n Notification) bool { return n.ID == id })
	})
}

// SetAll replaces the list.
func (l *NotificationList) SetAll(items []Notification) {
	l.update(func([]Notification) []Notification {
		return slices.Clone(items)
	})
}

// Clear empties the list.
func (l *NotificationList) Clear() {
	l.SetAll(nil)
}

func (l *NotificationList) update(fn func([]Notification) []Notification) {
	l.mu.Lock()
	l.items = fn(l.items)
	snapshot := slices.Clone(l.items)
	l.mu.Unlock()

	l.subs.notify(snapshot)
}

type ackRequest struct {
	NotificationID string `json:"notificationId"`
}

// Acknowledge marks a notification as read and drops it from the list.
func (c *Client) Acknowledge(ctx context.Context, id string) error {
	_, err := c.gateway.Send(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/notifications/ack",
		Body:   ackRequest{NotificationID: id},
	})
	if err != nil {
		return err
	}
	c.notes.Remove(id)
	return nil
}

// FetchUnchecked loads the unacknowledged notifications and replaces the list.
func (c *Client) FetchUnchecked(ctx context.Context) ([]Notification, error) {
	resp, err := c.gateway.Send(ctx, &Request{
		Method: http.MethodGet,
		Path:   "/notifications/unchecked-notifications",
	})
	if err != nil {
		return nil, err
	}

	var items []Notification
	if err := resp.Decode(&items); err != nil {
		return nil, &Error{Kind: KindRequest, Op: "GET /notifications/unchecked-notifications", Err: err}
	}
	c.notes.SetAll(items)
	return items, nil
}
