package service

import (
	"context"
	"fmt"
	"log/slog"

	"irtzalink/internal/middleware"
	"irtzalink/internal/models"
	"irtzalink/internal/notifications"
	"irtzalink/internal/repository"
)

// inboxRetention caps a user's stored notifications. Every write trims
// the inbox to the newest entries so it never grows without bound.
const inboxRetention = 200

// NotificationService handles the per-user notification inbox.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	publisher     EventPublisher
	logger        *slog.Logger
}

// NewNotificationService creates a new notification service.
func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	users repository.UserRepository,
	publisher EventPublisher,
	logger *slog.Logger,
) *NotificationService {
	if logger == nil {
		logger = middleware.Logger
	}
	return &NotificationService{
		notifications: notificationRepo,
		users:         users,
		publisher:     publisher,
		logger:        logger,
	}
}

// List returns the newest notifications for a user.
func (s *NotificationService) List(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	return s.notifications.ListForUser(ctx, userID, limit)
}

// UnreadCount returns the number of unread notifications for a user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.notifications.UnreadCount(ctx, userID)
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	return s.notifications.MarkRead(ctx, userID, notificationID)
}

// MarkAllRead marks all of the user's notifications as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.notifications.MarkAllRead(ctx, userID)
}

// RecordVisit writes a profile-visit notification for the profile owner
// and fans it out. Self-visits are ignored. Failures are logged and
// swallowed; a visit ping must never fail the profile view.
func (s *NotificationService) RecordVisit(ctx context.Context, visitorID, ownerID uint) {
	if visitorID == ownerID || visitorID == 0 {
		return
	}
	visitor, err := s.users.GetByID(ctx, visitorID)
	if err != nil {
		s.logger.WarnContext(ctx, "visit notification skipped, visitor lookup failed",
			slog.Uint64("visitor_id", uint64(visitorID)),
			slog.String("error", err.Error()))
		return
	}

	message := fmt.Sprintf("%s viewed your profile", displayName(visitor))
	notification := &models.Notification{
		UserID:     ownerID,
		FromUserID: visitorID,
		Type:       models.NotificationVisit,
		Message:    message,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.WarnContext(ctx, "failed to persist visit notification",
			slog.Uint64("owner_id", uint64(ownerID)),
			slog.String("error", err.Error()))
		return
	}

	trimInbox(ctx, s.notifications, s.logger, ownerID)

	if s.publisher != nil {
		s.publisher.Publish(ctx, notifications.Event{
			UserID:     ownerID,
			Type:       models.NotificationVisit,
			Message:    message,
			FromUserID: visitorID,
		})
	}
}

// trimInbox drops everything past the retention window. A failed trim
// is logged and swallowed; the write that triggered it already landed.
func trimInbox(ctx context.Context, repo repository.NotificationRepository, logger *slog.Logger, userID uint) {
	if err := repo.DeleteOlderThan(ctx, userID, inboxRetention); err != nil {
		logger.WarnContext(ctx, "inbox trim failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()))
	}
}
