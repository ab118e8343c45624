package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"irtzalink/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInbox struct {
	mu          sync.Mutex
	items       []models.Notification
	listErr     error
	markReadErr error
	markedIDs   []uint
	markedAll   int
	listCalls   int
}

func (s *stubInbox) List(_ context.Context, _ uint, _ int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Notification, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *stubInbox) UnreadCount(context.Context, uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, item := range s.items {
		if !item.Read {
			n++
		}
	}
	return n, nil
}

func (s *stubInbox) MarkRead(_ context.Context, _ uint, notificationID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markReadErr != nil {
		return s.markReadErr
	}
	s.markedIDs = append(s.markedIDs, notificationID)
	for i := range s.items {
		if s.items[i].ID == notificationID {
			s.items[i].Read = true
		}
	}
	return nil
}

func (s *stubInbox) MarkAllRead(context.Context, uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markedAll++
	for i := range s.items {
		s.items[i].Read = true
	}
	return nil
}

func inboxFixture() *stubInbox {
	return &stubInbox{items: []models.Notification{
		{ID: 3, UserID: 1, Type: models.NotificationFollow, Message: "bashir started following you"},
		{ID: 2, UserID: 1, Type: models.NotificationVisit, Message: "chidi viewed your profile"},
		{ID: 1, UserID: 1, Type: models.NotificationFollow, Message: "dina started following you", Read: true},
	}}
}

func TestCenterRefreshLoadsSnapshot(t *testing.T) {
	inbox := inboxFixture()
	changes := 0
	center := NewCenter(inbox, 1, nil, WithCenterOnChange(func() { changes++ }))
	defer center.Close()

	center.Refresh(context.Background())

	items := center.Notifications()
	require.Len(t, items, 3)
	assert.Equal(t, uint(3), items[0].ID)
	assert.Equal(t, int64(2), center.Unread())
	assert.Equal(t, 1, changes)
}

func TestCenterRefreshFailureKeepsSnapshot(t *testing.T) {
	inbox := inboxFixture()
	center := NewCenter(inbox, 1, nil)
	defer center.Close()
	ctx := context.Background()

	center.Refresh(ctx)
	require.Equal(t, int64(2), center.Unread())

	inbox.mu.Lock()
	inbox.listErr = errors.New("backend down")
	inbox.mu.Unlock()
	center.Refresh(ctx)

	assert.Len(t, center.Notifications(), 3, "stale snapshot beats an empty panel")
	assert.Equal(t, int64(2), center.Unread())
}

func TestCenterMarkAsReadIsOptimistic(t *testing.T) {
	inbox := inboxFixture()
	inbox.markReadErr = errors.New("backend down")
	center := NewCenter(inbox, 1, nil)
	defer center.Close()
	ctx := context.Background()

	center.Refresh(ctx)
	center.MarkAsRead(ctx, 3)

	// Local flip stands even though the server write failed.
	assert.Equal(t, int64(1), center.Unread())
	assert.True(t, center.Notifications()[0].Read)

	// Marking an already-read entry does not drive the badge negative.
	center.MarkAsRead(ctx, 3)
	center.MarkAsRead(ctx, 1)
	assert.Equal(t, int64(1), center.Unread())
}

func TestCenterMarkAllAsRead(t *testing.T) {
	inbox := inboxFixture()
	center := NewCenter(inbox, 1, nil)
	defer center.Close()
	ctx := context.Background()

	center.Refresh(ctx)
	center.MarkAllAsRead(ctx)

	assert.Equal(t, int64(0), center.Unread())
	for _, item := range center.Notifications() {
		assert.True(t, item.Read)
	}
	assert.Equal(t, 1, inbox.markedAll)
}

func TestCenterCloseStopsUpdates(t *testing.T) {
	inbox := inboxFixture()
	center := NewCenter(inbox, 1, nil)
	ctx := context.Background()

	center.Refresh(ctx)
	center.Close()

	inbox.mu.Lock()
	inbox.items = append(inbox.items, models.Notification{ID: 9, UserID: 1})
	inbox.mu.Unlock()
	center.Refresh(ctx)

	assert.Len(t, center.Notifications(), 3, "closed center keeps its frozen snapshot")
}

func TestNotifierPublishAndSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	notifier := NewNotifier(client, nil)
	ctx := context.Background()

	sub := notifier.Subscribe(ctx, 7)
	require.NotNil(t, sub)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	notifier.Publish(ctx, Event{
		UserID:     7,
		Type:       models.NotificationFollow,
		Message:    "amira started following you",
		FromUserID: 1,
	})

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventChannel(7), msg.Channel)

	var event Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	assert.Equal(t, uint(7), event.UserID)
	assert.Equal(t, models.NotificationFollow, event.Type)
}

func TestNotifierNilRedisIsNoop(t *testing.T) {
	notifier := NewNotifier(nil, nil)
	notifier.Publish(context.Background(), Event{UserID: 1})
	assert.Nil(t, notifier.Subscribe(context.Background(), 1))
}
