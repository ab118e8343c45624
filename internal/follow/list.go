package follow

import (
	"context"
	"log/slog"
	"sync"

	"irtzalink/internal/followcache"
	"irtzalink/internal/middleware"
	"irtzalink/internal/models"
)

// ListAPI is the backend surface a list view reads from.
// *service.FollowService satisfies it.
type ListAPI interface {
	RelationshipAPI
	Followers(ctx context.Context, userID uint, limit int) ([]models.UserSummary, error)
	Following(ctx context.Context, userID uint, limit int) ([]models.UserSummary, error)
	Counts(ctx context.Context, userID uint) (models.FollowCounts, error)
}

// Row is one rendered entry of a follower/following list: the user plus
// the follow button bound to them.
type Row struct {
	User       models.UserSummary
	Controller *Controller
}

// ListView renders one user's follower or following list for a viewer,
// with a live follow button per row. Rows showing the viewer themselves
// carry a controller that renders nothing.
type ListView struct {
	api     ListAPI
	cache   *followcache.Cache
	logger  *slog.Logger
	kind    followcache.ListKind
	limit   int
	rowOpts []ControllerOption

	mu        sync.Mutex
	viewerID  uint
	subjectID uint
	rows      []Row
	counts    models.FollowCounts
	closed    bool
}

// NewListView builds a list view of kind for subjectID as seen by
// viewerID. rowOpts are applied to every row controller.
func NewListView(api ListAPI, cache *followcache.Cache, logger *slog.Logger, viewerID, subjectID uint, kind followcache.ListKind, rowOpts ...ControllerOption) *ListView {
	if logger == nil {
		logger = middleware.Logger
	}
	return &ListView{
		api:       api,
		cache:     cache,
		logger:    logger,
		kind:      kind,
		viewerID:  viewerID,
		subjectID: subjectID,
		rowOpts:   rowOpts,
	}
}

// Load fetches the list page and counts, and mounts a follow button
// per row. Reloading replaces the previous rows.
func (v *ListView) Load(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	subjectID, viewerID, kind, limit := v.subjectID, v.viewerID, v.kind, v.limit
	v.mu.Unlock()

	var (
		users []models.UserSummary
		err   error
	)
	if kind == followcache.ListFollowers {
		users, err = v.api.Followers(ctx, subjectID, limit)
	} else {
		users, err = v.api.Following(ctx, subjectID, limit)
	}
	if err != nil {
		return err
	}

	counts, err := v.api.Counts(ctx, subjectID)
	if err != nil {
		return err
	}

	rows := make([]Row, 0, len(users))
	for _, user := range users {
		ctrl := NewController(v.api, v.cache, v.logger, v.rowOpts...)
		ctrl.Mount(ctx, viewerID, user.ID)
		rows = append(rows, Row{User: user, Controller: ctrl})
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		for _, row := range rows {
			row.Controller.Close()
		}
		return nil
	}
	old := v.rows
	v.rows = rows
	v.counts = counts
	v.mu.Unlock()

	for _, row := range old {
		row.Controller.Close()
	}
	return nil
}

// HandleFollowChange is called after any row's follow state mutated. It
// refetches the whole page and the counts rather than patching rows in
// place; the mutation already invalidated the cached snapshots.
func (v *ListView) HandleFollowChange(ctx context.Context) error {
	return v.Load(ctx)
}

// Rows returns the rendered rows.
func (v *ListView) Rows() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Row, len(v.rows))
	copy(out, v.rows)
	return out
}

// Counts returns the subject's aggregate counts as of the last load.
func (v *ListView) Counts() models.FollowCounts {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.counts
}

// Close releases every row controller. The view cannot be reloaded
// afterward.
func (v *ListView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	rows := v.rows
	v.rows = nil
	v.mu.Unlock()

	for _, row := range rows {
		row.Controller.Close()
	}
}
