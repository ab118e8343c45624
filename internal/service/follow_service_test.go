package service

import (
	"context"
	"testing"

	"irtzalink/internal/followcache"
	"irtzalink/internal/models"
	"irtzalink/internal/notifications"
	"irtzalink/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFollowRepo struct {
	createEdge func(ctx context.Context, followerID, followeeID uint) (bool, error)
	deleteEdge func(ctx context.Context, followerID, followeeID uint) (bool, error)
	edgePair   func(ctx context.Context, viewerID, targetID uint) (bool, bool, error)
	counts     func(ctx context.Context, userID uint) (models.FollowCounts, error)
	followers  func(ctx context.Context, userID uint, limit int) ([]models.User, error)
	following  func(ctx context.Context, userID uint, limit int) ([]models.User, error)
}

func (s *stubFollowRepo) CreateEdge(ctx context.Context, followerID, followeeID uint) (bool, error) {
	return s.createEdge(ctx, followerID, followeeID)
}

func (s *stubFollowRepo) DeleteEdge(ctx context.Context, followerID, followeeID uint) (bool, error) {
	return s.deleteEdge(ctx, followerID, followeeID)
}

func (s *stubFollowRepo) EdgePair(ctx context.Context, viewerID, targetID uint) (bool, bool, error) {
	return s.edgePair(ctx, viewerID, targetID)
}

func (s *stubFollowRepo) Counts(ctx context.Context, userID uint) (models.FollowCounts, error) {
	return s.counts(ctx, userID)
}

func (s *stubFollowRepo) Followers(ctx context.Context, userID uint, limit int) ([]models.User, error) {
	return s.followers(ctx, userID, limit)
}

func (s *stubFollowRepo) Following(ctx context.Context, userID uint, limit int) ([]models.User, error) {
	return s.following(ctx, userID, limit)
}

type stubUserRepo struct {
	getByID       func(ctx context.Context, id uint) (*models.User, error)
	getByEmail    func(ctx context.Context, email string) (*models.User, error)
	getByUsername func(ctx context.Context, username string) (*models.User, error)
	usernameTaken func(ctx context.Context, username string) (bool, error)
	create        func(ctx context.Context, user *models.User) error
	update        func(ctx context.Context, user *models.User) error
	updateFields  func(ctx context.Context, id uint, fields map[string]interface{}) error
	search        func(ctx context.Context, query string, limit, offset int) ([]models.User, error)
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	return s.create(ctx, user)
}

func (s *stubUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByID(ctx, id)
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmail(ctx, email)
}

func (s *stubUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsername(ctx, username)
}

func (s *stubUserRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.usernameTaken(ctx, username)
}

func (s *stubUserRepo) Update(ctx context.Context, user *models.User) error {
	return s.update(ctx, user)
}

func (s *stubUserRepo) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.updateFields(ctx, id, fields)
}

func (s *stubUserRepo) Search(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	return s.search(ctx, query, limit, offset)
}

type stubNotificationRepo struct {
	created     []*models.Notification
	trimmed     []uint
	createErr   error
	listForUser func(ctx context.Context, userID uint, limit int) ([]models.Notification, error)
	unreadCount func(ctx context.Context, userID uint) (int64, error)
	markRead    func(ctx context.Context, userID, notificationID uint) error
	markAllRead func(ctx context.Context, userID uint) error
}

func (s *stubNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, n)
	return nil
}

func (s *stubNotificationRepo) ListForUser(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	return s.listForUser(ctx, userID, limit)
}

func (s *stubNotificationRepo) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.unreadCount(ctx, userID)
}

func (s *stubNotificationRepo) MarkRead(ctx context.Context, userID, notificationID uint) error {
	return s.markRead(ctx, userID, notificationID)
}

func (s *stubNotificationRepo) MarkAllRead(ctx context.Context, userID uint) error {
	return s.markAllRead(ctx, userID)
}

func (s *stubNotificationRepo) DeleteOlderThan(ctx context.Context, userID uint, keep int) error {
	s.trimmed = append(s.trimmed, userID)
	return nil
}

type stubPublisher struct {
	events []notifications.Event
}

func (s *stubPublisher) Publish(_ context.Context, event notifications.Event) {
	s.events = append(s.events, event)
}

func userFixture(id uint, username string) *models.User {
	return &models.User{ID: id, Username: username, DisplayName: username, Active: true}
}

func TestFollowServiceRejectsSelfFollow(t *testing.T) {
	svc := NewFollowService(&stubFollowRepo{}, &stubUserRepo{}, &stubNotificationRepo{}, nil, nil, nil)

	_, err := svc.Follow(context.Background(), 7, 7)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "SELF_REFERENCE", appErr.Code)

	_, err = svc.Unfollow(context.Background(), 7, 7)
	require.Error(t, err)

	_, err = svc.GetRelationship(context.Background(), 7, 7)
	require.Error(t, err)
}

func TestFollowServiceFollowCreatesEdgeAndNotifies(t *testing.T) {
	follows := &stubFollowRepo{
		createEdge: func(_ context.Context, followerID, followeeID uint) (bool, error) {
			assert.Equal(t, uint(1), followerID)
			assert.Equal(t, uint(2), followeeID)
			return true, nil
		},
		edgePair: func(context.Context, uint, uint) (bool, bool, error) {
			return true, false, nil
		},
	}
	users := &stubUserRepo{
		getByID: func(_ context.Context, id uint) (*models.User, error) {
			if id == 1 {
				return userFixture(1, "amira"), nil
			}
			return userFixture(2, "bashir"), nil
		},
	}
	notificationRepo := &stubNotificationRepo{}
	publisher := &stubPublisher{}
	cache := followcache.New(followcache.NewMemoryStore(), nil)
	svc := NewFollowService(follows, users, notificationRepo, cache, publisher, nil)

	rel, err := svc.Follow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.RelationshipFollowing, rel)

	require.Len(t, notificationRepo.created, 1)
	assert.Equal(t, uint(2), notificationRepo.created[0].UserID)
	assert.Equal(t, uint(1), notificationRepo.created[0].FromUserID)
	assert.Equal(t, models.NotificationFollow, notificationRepo.created[0].Type)
	assert.Contains(t, notificationRepo.created[0].Message, "amira")

	require.Len(t, publisher.events, 1)
	assert.Equal(t, uint(2), publisher.events[0].UserID)

	// The inbox write also trimmed the recipient's retention window.
	assert.Equal(t, []uint{2}, notificationRepo.trimmed)

	// The mutation wrote through the cache, both directions.
	cached, ok := cache.Load(context.Background(), 1, 2)
	require.True(t, ok)
	assert.Equal(t, models.RelationshipFollowing, cached)
	reverse, ok := cache.Load(context.Background(), 2, 1)
	require.True(t, ok)
	assert.Equal(t, models.RelationshipFollower, reverse)
}

func TestFollowServiceRepeatFollowIsQuietNoop(t *testing.T) {
	follows := &stubFollowRepo{
		createEdge: func(context.Context, uint, uint) (bool, error) {
			return false, nil
		},
		edgePair: func(context.Context, uint, uint) (bool, bool, error) {
			return true, true, nil
		},
	}
	users := &stubUserRepo{
		getByID: func(_ context.Context, id uint) (*models.User, error) {
			return userFixture(id, "someone"), nil
		},
	}
	notificationRepo := &stubNotificationRepo{}
	publisher := &stubPublisher{}
	svc := NewFollowService(follows, users, notificationRepo, nil, publisher, nil)

	rel, err := svc.Follow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.RelationshipFriends, rel)
	assert.Empty(t, notificationRepo.created, "re-follow must not notify again")
	assert.Empty(t, publisher.events)
}

func TestFollowServiceUnfollowIdempotent(t *testing.T) {
	deletes := 0
	follows := &stubFollowRepo{
		deleteEdge: func(context.Context, uint, uint) (bool, error) {
			deletes++
			return deletes == 1, nil
		},
		edgePair: func(context.Context, uint, uint) (bool, bool, error) {
			return false, true, nil
		},
	}
	svc := NewFollowService(follows, &stubUserRepo{}, &stubNotificationRepo{}, nil, nil, nil)

	rel, err := svc.Unfollow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.RelationshipFollower, rel)

	rel, err = svc.Unfollow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.RelationshipFollower, rel)
	assert.Equal(t, 2, deletes)
}

func TestFollowServiceFollowMissingTarget(t *testing.T) {
	users := &stubUserRepo{
		getByID: func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		},
	}
	svc := NewFollowService(&stubFollowRepo{}, users, &stubNotificationRepo{}, nil, nil, nil)

	_, err := svc.Follow(context.Background(), 1, 99)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestFollowServiceCountsServedFromCache(t *testing.T) {
	repoReads := 0
	follows := &stubFollowRepo{
		counts: func(context.Context, uint) (models.FollowCounts, error) {
			repoReads++
			return models.FollowCounts{Followers: 12, Following: 4}, nil
		},
	}
	cache := followcache.New(followcache.NewMemoryStore(), nil)
	svc := NewFollowService(follows, &stubUserRepo{}, &stubNotificationRepo{}, cache, nil, nil)

	counts, err := svc.Counts(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(12), counts.Followers)

	counts, err = svc.Counts(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts.Following)
	assert.Equal(t, 1, repoReads, "second read must come from the cache")
}

func TestFollowServiceListPageCachesDefaultPage(t *testing.T) {
	repoReads := 0
	follows := &stubFollowRepo{
		followers: func(_ context.Context, _ uint, limit int) ([]models.User, error) {
			repoReads++
			return []models.User{*userFixture(9, "amira")}, nil
		},
	}
	cache := followcache.New(followcache.NewMemoryStore(), nil)
	svc := NewFollowService(follows, &stubUserRepo{}, &stubNotificationRepo{}, cache, nil, nil)

	page, err := svc.Followers(context.Background(), 3, repository.DefaultListLimit)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "amira", page[0].Username)

	_, err = svc.Followers(context.Background(), 3, repository.DefaultListLimit)
	require.NoError(t, err)
	assert.Equal(t, 1, repoReads)

	// A mutation touching this user invalidates the snapshot.
	svc.RefreshLists(context.Background(), 3, 5)
	_, err = svc.Followers(context.Background(), 3, repository.DefaultListLimit)
	require.NoError(t, err)
	assert.Equal(t, 2, repoReads)
}

func TestFollowServiceNotificationFailureDoesNotFailFollow(t *testing.T) {
	follows := &stubFollowRepo{
		createEdge: func(context.Context, uint, uint) (bool, error) { return true, nil },
		edgePair: func(context.Context, uint, uint) (bool, bool, error) {
			return true, false, nil
		},
	}
	users := &stubUserRepo{
		getByID: func(_ context.Context, id uint) (*models.User, error) {
			return userFixture(id, "someone"), nil
		},
	}
	notificationRepo := &stubNotificationRepo{createErr: models.NewInternalError(assert.AnError)}
	svc := NewFollowService(follows, users, notificationRepo, nil, nil, nil)

	rel, err := svc.Follow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.RelationshipFollowing, rel)
}
