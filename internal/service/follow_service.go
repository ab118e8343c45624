package service

import (
	"context"
	"fmt"
	"log/slog"

	"irtzalink/internal/followcache"
	"irtzalink/internal/middleware"
	"irtzalink/internal/models"
	"irtzalink/internal/notifications"
	"irtzalink/internal/repository"
)

// EventPublisher fans a notification event out to live sessions.
type EventPublisher interface {
	Publish(ctx context.Context, event notifications.Event)
}

// FollowService is the authoritative follow-relationship API. Reads
// classify the stored edge pair; mutations are idempotent and keep the
// denormalized counters, the notification inbox, and the local
// relationship cache in step.
type FollowService struct {
	follows       repository.FollowRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	cache         *followcache.Cache
	publisher     EventPublisher
	logger        *slog.Logger
}

// NewFollowService creates a new follow service. cache and publisher
// may be nil; both degrade to no-ops.
func NewFollowService(
	follows repository.FollowRepository,
	users repository.UserRepository,
	notificationRepo repository.NotificationRepository,
	cache *followcache.Cache,
	publisher EventPublisher,
	logger *slog.Logger,
) *FollowService {
	if logger == nil {
		logger = middleware.Logger
	}
	return &FollowService{
		follows:       follows,
		users:         users,
		notifications: notificationRepo,
		cache:         cache,
		publisher:     publisher,
		logger:        logger,
	}
}

// GetRelationship returns the authoritative relationship tag between
// viewer and target, derived from both edge directions in one query.
func (s *FollowService) GetRelationship(ctx context.Context, viewerID, targetID uint) (models.Relationship, error) {
	if viewerID == targetID {
		return "", models.NewSelfReferenceError("Cannot query relationship with yourself")
	}
	forward, reverse, err := s.follows.EdgePair(ctx, viewerID, targetID)
	if err != nil {
		return "", err
	}
	rel := models.ClassifyRelationship(forward, reverse)

	if s.cache != nil {
		s.cache.Save(ctx, viewerID, targetID, rel)
	}
	return rel, nil
}

// Follow creates the viewer->target edge and returns the resulting
// relationship tag. Re-following is a no-op that still returns the
// current tag. A fresh edge writes a notification row for the target
// and publishes a live event.
func (s *FollowService) Follow(ctx context.Context, viewerID, targetID uint) (models.Relationship, error) {
	if viewerID == targetID {
		middleware.FollowMutations.WithLabelValues("follow", "rejected").Inc()
		return "", models.NewSelfReferenceError("Cannot follow yourself")
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		middleware.FollowMutations.WithLabelValues("follow", "error").Inc()
		return "", err
	}

	created, err := s.follows.CreateEdge(ctx, viewerID, targetID)
	if err != nil {
		middleware.FollowMutations.WithLabelValues("follow", "error").Inc()
		return "", err
	}
	outcome := "noop"
	if created {
		outcome = "created"
	}
	middleware.FollowMutations.WithLabelValues("follow", outcome).Inc()

	if created {
		s.notifyFollow(ctx, viewerID, target)
	}

	return s.refreshAfterMutation(ctx, viewerID, targetID)
}

// Unfollow removes the viewer->target edge and returns the resulting
// relationship tag. Removing an absent edge is a no-op.
func (s *FollowService) Unfollow(ctx context.Context, viewerID, targetID uint) (models.Relationship, error) {
	if viewerID == targetID {
		middleware.FollowMutations.WithLabelValues("unfollow", "rejected").Inc()
		return "", models.NewSelfReferenceError("Cannot unfollow yourself")
	}

	deleted, err := s.follows.DeleteEdge(ctx, viewerID, targetID)
	if err != nil {
		middleware.FollowMutations.WithLabelValues("unfollow", "error").Inc()
		return "", err
	}
	outcome := "noop"
	if deleted {
		outcome = "deleted"
	}
	middleware.FollowMutations.WithLabelValues("unfollow", outcome).Inc()

	return s.refreshAfterMutation(ctx, viewerID, targetID)
}

// Counts returns a user's aggregate follower and following counts,
// served from the cache when fresh.
func (s *FollowService) Counts(ctx context.Context, userID uint) (models.FollowCounts, error) {
	if s.cache != nil {
		if counts, ok := s.cache.LoadCounts(ctx, userID); ok {
			return counts, nil
		}
	}
	counts, err := s.follows.Counts(ctx, userID)
	if err != nil {
		return models.FollowCounts{}, err
	}
	if s.cache != nil {
		s.cache.SaveCounts(ctx, userID, counts)
	}
	return counts, nil
}

// Followers returns the newest-first followers page for a user.
func (s *FollowService) Followers(ctx context.Context, userID uint, limit int) ([]models.UserSummary, error) {
	return s.listPage(ctx, userID, followcache.ListFollowers, limit)
}

// Following returns the newest-first following page for a user.
func (s *FollowService) Following(ctx context.Context, userID uint, limit int) ([]models.UserSummary, error) {
	return s.listPage(ctx, userID, followcache.ListFollowing, limit)
}

// RefreshLists drops cached list snapshots and counts for both sides of
// a mutated edge so the next page load refetches.
func (s *FollowService) RefreshLists(ctx context.Context, viewerID, targetID uint) {
	if s.cache == nil {
		return
	}
	for _, id := range []uint{viewerID, targetID} {
		s.cache.ClearCounts(ctx, id)
		s.cache.ClearList(ctx, id, followcache.ListFollowers)
		s.cache.ClearList(ctx, id, followcache.ListFollowing)
	}
}

func (s *FollowService) listPage(ctx context.Context, userID uint, kind followcache.ListKind, limit int) ([]models.UserSummary, error) {
	// Cached snapshots only cover the default page size.
	useCache := s.cache != nil && (limit <= 0 || limit == repository.DefaultListLimit)
	if useCache {
		if users, ok := s.cache.LoadList(ctx, userID, kind); ok {
			return users, nil
		}
	}

	var (
		users []models.User
		err   error
	)
	if kind == followcache.ListFollowers {
		users, err = s.follows.Followers(ctx, userID, limit)
	} else {
		users, err = s.follows.Following(ctx, userID, limit)
	}
	if err != nil {
		return nil, err
	}

	summaries := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, u.Summary())
	}
	if useCache {
		s.cache.SaveList(ctx, userID, kind, summaries)
	}
	return summaries, nil
}

// refreshAfterMutation re-reads the authoritative pair, pushes the
// result (and its reverse guess) into the cache, and invalidates the
// derived snapshots for both users.
func (s *FollowService) refreshAfterMutation(ctx context.Context, viewerID, targetID uint) (models.Relationship, error) {
	forward, reverse, err := s.follows.EdgePair(ctx, viewerID, targetID)
	if err != nil {
		return "", err
	}
	rel := models.ClassifyRelationship(forward, reverse)

	if s.cache != nil {
		s.cache.Update(ctx, viewerID, targetID, rel)
	}
	s.RefreshLists(ctx, viewerID, targetID)
	return rel, nil
}

// notifyFollow records the inbox row and fans the event out. Neither
// step may fail the follow itself.
func (s *FollowService) notifyFollow(ctx context.Context, viewerID uint, target *models.User) {
	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		s.logger.WarnContext(ctx, "follow notification skipped, viewer lookup failed",
			slog.Uint64("viewer_id", uint64(viewerID)),
			slog.String("error", err.Error()))
		return
	}

	message := fmt.Sprintf("%s started following you", displayName(viewer))
	notification := &models.Notification{
		UserID:     target.ID,
		FromUserID: viewer.ID,
		Type:       models.NotificationFollow,
		Message:    message,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.WarnContext(ctx, "failed to persist follow notification",
			slog.Uint64("target_id", uint64(target.ID)),
			slog.String("error", err.Error()))
		return
	}
	trimInbox(ctx, s.notifications, s.logger, target.ID)

	if s.publisher != nil {
		s.publisher.Publish(ctx, notifications.Event{
			UserID:     target.ID,
			Type:       models.NotificationFollow,
			Message:    message,
			FromUserID: viewer.ID,
		})
	}
}

func displayName(u *models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
