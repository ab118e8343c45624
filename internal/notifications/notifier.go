// Package notifications delivers follow and visit events to signed-in
// users: persisted inbox rows, a Redis fan-out channel for live
// sessions, and the polling notification center that drives the bell
// badge.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"irtzalink/internal/middleware"
	"irtzalink/internal/models"

	"github.com/redis/go-redis/v9"
)

// Event is the wire form published on the per-user Redis channel.
type Event struct {
	UserID     uint                    `json:"user_id"`
	Type       models.NotificationType `json:"type"`
	Message    string                  `json:"message"`
	FromUserID uint                    `json:"from_user_id"`
}

// EventChannel is the Redis pub/sub channel carrying events for a user.
func EventChannel(userID uint) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}

// Notifier publishes notification events to live sessions over Redis.
// A nil Redis client degrades to a no-op: persisted rows still reach
// the user through the notification center's poll.
type Notifier struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewNotifier builds a Notifier. redisClient may be nil.
func NewNotifier(redisClient *redis.Client, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = middleware.Logger
	}
	return &Notifier{redis: redisClient, logger: logger}
}

// Publish sends the event to the user's channel. Failures are logged
// and swallowed; delivery here is an optimization, not the record.
func (n *Notifier) Publish(ctx context.Context, event Event) {
	if n.redis == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to encode notification event",
			slog.String("error", err.Error()))
		return
	}
	if err := n.redis.Publish(ctx, EventChannel(event.UserID), payload).Err(); err != nil {
		middleware.RedisErrors.WithLabelValues("publish").Inc()
		n.logger.WarnContext(ctx, "failed to publish notification event",
			slog.Uint64("user_id", uint64(event.UserID)),
			slog.String("error", err.Error()))
	}
}

// Subscribe returns the pub/sub handle for a user's event channel. The
// caller owns the handle and must Close it.
func (n *Notifier) Subscribe(ctx context.Context, userID uint) *redis.PubSub {
	if n.redis == nil {
		return nil
	}
	return n.redis.Subscribe(ctx, EventChannel(userID))
}
