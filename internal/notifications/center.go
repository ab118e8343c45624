package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"irtzalink/internal/middleware"
	"irtzalink/internal/models"
)

// PollInterval is how often a running Center refreshes its inbox.
const PollInterval = 30 * time.Second

// centerPageSize is how many notifications a refresh pulls.
const centerPageSize = 50

// InboxAPI is the backend surface the center reads and writes.
// *service.NotificationService satisfies it.
type InboxAPI interface {
	List(ctx context.Context, userID uint, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uint) error
	MarkAllRead(ctx context.Context, userID uint) error
}

// Center is one user's notification panel: a polled snapshot of the
// inbox with an unread badge. Reads are optimistic; marking entries
// read flips them locally first and lets the next poll settle any
// divergence.
type Center struct {
	api      InboxAPI
	userID   uint
	interval time.Duration
	logger   *slog.Logger
	onChange func()

	mu     sync.Mutex
	items  []models.Notification
	unread int64
	closed bool
	cancel context.CancelFunc
}

// CenterOption customizes a Center.
type CenterOption func(*Center)

// WithPollInterval overrides the refresh cadence.
func WithPollInterval(d time.Duration) CenterOption {
	return func(c *Center) { c.interval = d }
}

// WithCenterOnChange registers the render callback, fired after every
// snapshot change.
func WithCenterOnChange(fn func()) CenterOption {
	return func(c *Center) { c.onChange = fn }
}

// NewCenter builds a notification center for one user.
func NewCenter(api InboxAPI, userID uint, logger *slog.Logger, opts ...CenterOption) *Center {
	if logger == nil {
		logger = middleware.Logger
	}
	c := &Center{
		api:      api,
		userID:   userID,
		interval: PollInterval,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start refreshes immediately and then keeps polling until ctx is
// canceled or the center is closed.
func (c *Center) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		return
	}
	c.cancel = cancel
	c.mu.Unlock()

	c.Refresh(ctx)
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Refresh(ctx)
			}
		}
	}()
}

// Refresh pulls the newest page and the unread count. Failures keep
// the previous snapshot.
func (c *Center) Refresh(ctx context.Context) {
	items, err := c.api.List(ctx, c.userID, centerPageSize)
	if err != nil {
		c.logger.WarnContext(ctx, "notification refresh failed",
			slog.Uint64("user_id", uint64(c.userID)),
			slog.String("error", err.Error()))
		return
	}
	unread, err := c.api.UnreadCount(ctx, c.userID)
	if err != nil {
		c.logger.WarnContext(ctx, "unread count refresh failed",
			slog.Uint64("user_id", uint64(c.userID)),
			slog.String("error", err.Error()))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.items = items
	c.unread = unread
	c.mu.Unlock()
	c.emit()
}

// Notifications returns the current snapshot, newest first.
func (c *Center) Notifications() []models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Notification, len(c.items))
	copy(out, c.items)
	return out
}

// Unread returns the badge count.
func (c *Center) Unread() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

// MarkAsRead flips one entry read. The local snapshot updates first;
// the server write is fire-and-forget and the next poll reconciles.
func (c *Center) MarkAsRead(ctx context.Context, notificationID uint) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	changed := false
	for i := range c.items {
		if c.items[i].ID == notificationID && !c.items[i].Read {
			c.items[i].Read = true
			changed = true
			break
		}
	}
	if changed && c.unread > 0 {
		c.unread--
	}
	c.mu.Unlock()
	if changed {
		c.emit()
	}

	if err := c.api.MarkRead(ctx, c.userID, notificationID); err != nil {
		c.logger.WarnContext(ctx, "mark read failed",
			slog.Uint64("notification_id", uint64(notificationID)),
			slog.String("error", err.Error()))
	}
}

// MarkAllAsRead flips every entry read, optimistically.
func (c *Center) MarkAllAsRead(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	for i := range c.items {
		c.items[i].Read = true
	}
	c.unread = 0
	c.mu.Unlock()
	c.emit()

	if err := c.api.MarkAllRead(ctx, c.userID); err != nil {
		c.logger.WarnContext(ctx, "mark all read failed",
			slog.Uint64("user_id", uint64(c.userID)),
			slog.String("error", err.Error()))
	}
}

// Close stops polling and freezes the snapshot.
func (c *Center) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Center) emit() {
	if c.onChange != nil {
		c.onChange()
	}
}
