package repository

import (
	"context"
	"testing"

	"irtzalink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedNotifications(t *testing.T) (NotificationRepository, *models.User, *models.User) {
	t.Helper()
	db, users, _ := setupRepos(t)
	repo := NewNotificationRepository(db)
	owner := createUser(t, users, "owner")
	from := createUser(t, users, "visitor")

	ctx := context.Background()
	for _, n := range []*models.Notification{
		{UserID: owner.ID, FromUserID: from.ID, Type: models.NotificationFollow, Message: "visitor started following you"},
		{UserID: owner.ID, FromUserID: from.ID, Type: models.NotificationVisit, Message: "visitor viewed your profile"},
		{UserID: from.ID, FromUserID: owner.ID, Type: models.NotificationFollow, Message: "owner started following you"},
	} {
		require.NoError(t, repo.Create(ctx, n))
	}
	return repo, owner, from
}

func TestNotificationRepositoryListScopedToUser(t *testing.T) {
	repo, owner, from := seedNotifications(t)
	ctx := context.Background()

	items, err := repo.ListForUser(ctx, owner.ID, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, owner.ID, item.UserID)
		assert.Equal(t, from.ID, item.FromUserID)
		assert.Equal(t, "visitor", item.FromUser.Username, "sender is preloaded")
	}
}

func TestNotificationRepositoryUnreadAndMarkRead(t *testing.T) {
	repo, owner, from := seedNotifications(t)
	ctx := context.Background()

	unread, err := repo.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	items, err := repo.ListForUser(ctx, owner.ID, 0)
	require.NoError(t, err)
	require.NoError(t, repo.MarkRead(ctx, owner.ID, items[0].ID))

	unread, err = repo.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	// A user cannot mark someone else's notification.
	err = repo.MarkRead(ctx, from.ID, items[1].ID)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", appErr.Code)

	require.NoError(t, repo.MarkAllRead(ctx, owner.ID))
	unread, err = repo.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	// The other user's inbox is untouched.
	unread, err = repo.UnreadCount(ctx, from.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestNotificationRepositoryDeleteOlderThan(t *testing.T) {
	repo, owner, _ := seedNotifications(t)
	ctx := context.Background()

	require.NoError(t, repo.DeleteOlderThan(ctx, owner.ID, 1))

	items, err := repo.ListForUser(ctx, owner.ID, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
