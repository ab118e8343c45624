package follow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"irtzalink/internal/followcache"
	"irtzalink/internal/middleware"
	"irtzalink/internal/models"
)

// State is the controller's lifecycle phase.
type State int

const (
	// StateChecking means the authoritative relationship is being
	// fetched; any rendered tag is provisional.
	StateChecking State = iota
	// StateIdle means the controller has settled on a tag and accepts
	// clicks.
	StateIdle
	// StateMutating means a follow or unfollow is in flight; further
	// clicks are ignored.
	StateMutating
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateIdle:
		return "idle"
	case StateMutating:
		return "mutating"
	}
	return "unknown"
}

// RelationshipAPI is the authoritative backend the controller talks to.
// *service.FollowService satisfies it.
type RelationshipAPI interface {
	GetRelationship(ctx context.Context, viewerID, targetID uint) (models.Relationship, error)
	Follow(ctx context.Context, viewerID, targetID uint) (models.Relationship, error)
	Unfollow(ctx context.Context, viewerID, targetID uint) (models.Relationship, error)
}

// Snapshot is the render-ready view of a controller, delivered to the
// OnChange callback and returned by Current.
type Snapshot struct {
	State        State
	Relationship models.Relationship
	Label        string
	Actionable   bool
}

// scheduler defers a function, returning a cancel func. Overridden in
// tests to run deferred work deterministically.
type scheduler func(d time.Duration, f func()) func() bool

// Controller drives one follow button for a (viewer, target) pair. All
// exported methods are safe for concurrent use. A controller whose
// viewer and target are the same user renders nothing and ignores
// clicks.
type Controller struct {
	api    RelationshipAPI
	cache  *followcache.Cache
	logger *slog.Logger

	trust    TrustPolicy
	failure  FailurePolicy
	delay    time.Duration
	schedule scheduler

	onChange func(Snapshot)
	notify   func(message string)

	mu         sync.Mutex
	viewerID   uint
	targetID   uint
	state      State
	rel        models.Relationship
	generation uint64
	closed     bool
	cancelWait func() bool
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithTrustPolicy sets how the controller treats cached tags on mount.
func WithTrustPolicy(p TrustPolicy) ControllerOption {
	return func(c *Controller) { c.trust = p }
}

// WithFailurePolicy sets the behavior after a failed mutation.
func WithFailurePolicy(p FailurePolicy) ControllerOption {
	return func(c *Controller) { c.failure = p }
}

// WithOnChange registers the render callback. It fires on every state
// or tag transition, outside the controller's lock.
func WithOnChange(fn func(Snapshot)) ControllerOption {
	return func(c *Controller) { c.onChange = fn }
}

// WithNotify registers the toast callback for user-facing notices.
func WithNotify(fn func(message string)) ControllerOption {
	return func(c *Controller) { c.notify = fn }
}

// WithReconcileDelay overrides the post-mutation reconciliation delay.
func WithReconcileDelay(d time.Duration) ControllerOption {
	return func(c *Controller) { c.delay = d }
}

func withScheduler(s scheduler) ControllerOption {
	return func(c *Controller) { c.schedule = s }
}

// NewController builds an unmounted controller. Call Mount before use.
func NewController(api RelationshipAPI, cache *followcache.Cache, logger *slog.Logger, opts ...ControllerOption) *Controller {
	if logger == nil {
		logger = middleware.Logger
	}
	c := &Controller{
		api:    api,
		cache:  cache,
		logger: logger,
		delay:  ReconcileDelay,
		state:  StateChecking,
		rel:    models.RelationshipNone,
		schedule: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mount binds the controller to a (viewer, target) pair and resolves
// the initial tag. Under the default distrust policy a cached tag is
// rendered immediately and then verified against the server; under
// trust-then-verify a cache hit settles without a round trip.
func (c *Controller) Mount(ctx context.Context, viewerID, targetID uint) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopPendingLocked()
	c.viewerID = viewerID
	c.targetID = targetID
	c.generation++
	c.rel = models.RelationshipNone
	c.state = StateChecking
	self := viewerID == targetID || viewerID == 0 || targetID == 0
	if self {
		c.state = StateIdle
		c.mu.Unlock()
		c.emit()
		return
	}
	c.mu.Unlock()

	cached, hit := models.RelationshipNone, false
	if c.cache != nil {
		cached, hit = c.cache.Load(ctx, viewerID, targetID)
	}
	if hit {
		c.mu.Lock()
		c.rel = cached
		trusted := c.trust == TrustPolicyTrustThenVerify
		if trusted {
			c.state = StateIdle
		}
		c.mu.Unlock()
		c.emit()
		if trusted {
			return
		}
	} else {
		c.emit()
	}

	c.verify(ctx, viewerID, targetID)
}

// verify fetches the authoritative tag and settles the controller,
// unless the pair was remounted or the controller closed meanwhile.
func (c *Controller) verify(ctx context.Context, viewerID, targetID uint) {
	c.mu.Lock()
	generation := c.generation
	c.mu.Unlock()

	rel, err := c.api.GetRelationship(ctx, viewerID, targetID)

	c.mu.Lock()
	if c.closed || c.generation != generation {
		c.mu.Unlock()
		return
	}
	if err != nil {
		// Keep whatever tag is rendered; the button still settles.
		c.logger.WarnContext(ctx, "relationship check failed",
			slog.Uint64("viewer_id", uint64(viewerID)),
			slog.Uint64("target_id", uint64(targetID)),
			slog.String("error", err.Error()))
		c.state = StateIdle
		c.mu.Unlock()
		c.emit()
		return
	}
	c.rel = rel
	c.state = StateIdle
	c.mu.Unlock()
	c.emit()
}

// Click toggles the relationship. The rendered tag flips optimistically
// before the server answers; a delayed re-read reconciles afterward.
// Clicks while checking, mutating, or unmounted are ignored.
func (c *Controller) Click(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.state != StateIdle || !c.actionableLocked() {
		c.mu.Unlock()
		return
	}
	c.stopPendingLocked()
	c.generation++
	generation := c.generation
	viewerID, targetID := c.viewerID, c.targetID
	prior := c.rel
	unfollow := prior.ViewerFollowsTarget()

	var optimistic models.Relationship
	if unfollow {
		optimistic = models.OptimisticAfterUnfollow(prior)
	} else {
		optimistic = models.OptimisticAfterFollow(prior)
	}
	c.rel = optimistic
	c.state = StateMutating
	c.mu.Unlock()

	if c.cache != nil {
		c.cache.Update(ctx, viewerID, targetID, optimistic)
	}
	c.emit()

	var (
		settled models.Relationship
		err     error
	)
	if unfollow {
		settled, err = c.api.Unfollow(ctx, viewerID, targetID)
	} else {
		settled, err = c.api.Follow(ctx, viewerID, targetID)
	}

	c.mu.Lock()
	if c.closed || c.generation != generation {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.settleFailure(ctx, generation, viewerID, targetID, err)
		return
	}
	c.rel = settled
	c.state = StateIdle
	c.mu.Unlock()

	if c.cache != nil {
		c.cache.Update(ctx, viewerID, targetID, settled)
	}
	c.emit()
	c.scheduleReconcile(ctx, generation, viewerID, targetID)
}

// settleFailure applies the failure policy after a mutation error.
func (c *Controller) settleFailure(ctx context.Context, generation uint64, viewerID, targetID uint, cause error) {
	c.logger.WarnContext(ctx, "follow mutation failed",
		slog.Uint64("viewer_id", uint64(viewerID)),
		slog.Uint64("target_id", uint64(targetID)),
		slog.String("error", cause.Error()))

	if c.failure == FailureStrict {
		c.toast("Something went wrong. Rechecking.")
		c.mu.Lock()
		if c.closed || c.generation != generation {
			c.mu.Unlock()
			return
		}
		c.state = StateChecking
		c.mu.Unlock()
		c.emit()
		c.verify(ctx, viewerID, targetID)
		return
	}

	// Optimistic: the rendered tag stands, and the scheduled re-read
	// settles the truth.
	c.toast("Saved locally. Will sync when the connection recovers.")
	c.mu.Lock()
	if c.closed || c.generation != generation {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.mu.Unlock()
	c.emit()
	c.scheduleReconcile(ctx, generation, viewerID, targetID)
}

// scheduleReconcile arms the delayed authoritative re-read. The stored
// generation keeps a stale timer from clobbering a newer mutation, and
// the closed flag keeps it from firing after Close.
func (c *Controller) scheduleReconcile(ctx context.Context, generation uint64, viewerID, targetID uint) {
	c.mu.Lock()
	if c.closed || c.generation != generation {
		c.mu.Unlock()
		return
	}
	c.cancelWait = c.schedule(c.delay, func() {
		c.mu.Lock()
		stale := c.closed || c.generation != generation
		c.mu.Unlock()
		if stale {
			return
		}
		c.verify(ctx, viewerID, targetID)
	})
	c.mu.Unlock()
}

// Current returns the render-ready snapshot.
func (c *Controller) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Label returns the button text for the current tag: Follow, Follow
// Back, Following, or Friends. A self pair renders no button.
func (c *Controller) Label() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.labelLocked()
}

// Actionable reports whether a click would do anything right now.
func (c *Controller) Actionable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateIdle && c.actionableLocked()
}

// SetPair remounts the controller onto a different pair, discarding any
// pending reconciliation for the old one.
func (c *Controller) SetPair(ctx context.Context, viewerID, targetID uint) {
	c.Mount(ctx, viewerID, targetID)
}

// Close permanently stops the controller. Pending reconciliations are
// discarded and later calls are no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopPendingLocked()
	c.mu.Unlock()
}

func (c *Controller) stopPendingLocked() {
	if c.cancelWait != nil {
		c.cancelWait()
		c.cancelWait = nil
	}
}

func (c *Controller) actionableLocked() bool {
	return c.viewerID != 0 && c.targetID != 0 && c.viewerID != c.targetID
}

func (c *Controller) labelLocked() string {
	if !c.actionableLocked() {
		return ""
	}
	switch c.rel {
	case models.RelationshipFollower:
		return "Follow Back"
	case models.RelationshipFollowing:
		return "Following"
	case models.RelationshipFriends:
		return "Friends"
	default:
		return "Follow"
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:        c.state,
		Relationship: c.rel,
		Label:        c.labelLocked(),
		Actionable:   c.state == StateIdle && c.actionableLocked(),
	}
}

// emit delivers the current snapshot to the OnChange callback, outside
// the lock.
func (c *Controller) emit() {
	if c.onChange == nil {
		return
	}
	c.mu.Lock()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.onChange(snap)
}

func (c *Controller) toast(message string) {
	if c.notify != nil {
		c.notify(message)
	}
}
