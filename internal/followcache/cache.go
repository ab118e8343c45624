// Package followcache implements the local relationship cache: a
// best-effort, TTL-bounded record of relationship tags, follow counts,
// and list snapshots. It layers a fast in-memory index over a persisted
// key-value store that survives sign-out and process restarts.
package followcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"irtzalink/internal/middleware"
	"irtzalink/internal/models"
)

const (
	relKeyPrefix    = "followdata:rel:"
	countsKeyPrefix = "followdata:counts:"
	listKeyPrefix   = "followdata:list:"

	// RelationshipTTL bounds the age of a cached relationship tag.
	RelationshipTTL = 7 * 24 * time.Hour
	// CountsTTL bounds the age of cached aggregate follow counts.
	CountsTTL = time.Hour
	// ListTTL bounds the age of cached follower/following list snapshots.
	ListTTL = 30 * time.Minute
	// SweepInterval is how often the persisted namespace is scanned for
	// expired or unparseable entries.
	SweepInterval = 6 * time.Hour
)

// ListKind selects which edge direction a list snapshot covers.
type ListKind string

const (
	ListFollowers ListKind = "followers"
	ListFollowing ListKind = "following"
)

// RelKey is the persisted key for the directional (viewer, target) pair.
func RelKey(viewer, target uint) string {
	return fmt.Sprintf("%s%d:%d", relKeyPrefix, viewer, target)
}

// CountsKey is the persisted key for a user's aggregate counts.
func CountsKey(userID uint) string {
	return fmt.Sprintf("%s%d", countsKeyPrefix, userID)
}

// ListKey is the persisted key for a user's list snapshot.
func ListKey(userID uint, kind ListKind) string {
	return fmt.Sprintf("%s%d:%s", listKeyPrefix, userID, kind)
}

type relEntry struct {
	Relationship models.Relationship `json:"relationship"`
	SavedAt      time.Time           `json:"saved_at"`
}

type countsEntry struct {
	Counts  models.FollowCounts `json:"counts"`
	SavedAt time.Time           `json:"saved_at"`
}

type listEntry struct {
	Users   []models.UserSummary `json:"users"`
	SavedAt time.Time            `json:"saved_at"`
}

type memEntry struct {
	payload any
	savedAt time.Time
}

// Cache is the local relationship cache. Construct one per process in
// the composition root and inject it; tests build fresh instances.
type Cache struct {
	store  KeyValueStore
	logger *slog.Logger
	now    func() time.Time

	mu  sync.RWMutex
	mem map[string]memEntry
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock overrides the cache's clock, for TTL tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New builds a Cache over the given persisted store. A nil store
// degrades to the in-memory index only.
func New(store KeyValueStore, logger *slog.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = middleware.Logger
	}
	c := &Cache{
		store:  store,
		logger: logger,
		now:    time.Now,
		mem:    make(map[string]memEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Save records the relationship for the directional (viewer, target)
// pair, timestamped now, in both layers.
func (c *Cache) Save(ctx context.Context, viewer, target uint, rel models.Relationship) {
	c.put(ctx, RelKey(viewer, target), relEntry{Relationship: rel, SavedAt: c.now()}, rel)
}

// Load returns the cached relationship for (viewer, target), or false on
// a miss. A valid persisted hit is promoted into the in-memory index.
func (c *Cache) Load(ctx context.Context, viewer, target uint) (models.Relationship, bool) {
	key := RelKey(viewer, target)

	if payload, ok := c.loadMem(key, RelationshipTTL); ok {
		middleware.CacheHits.WithLabelValues("relationship", "memory").Inc()
		return payload.(models.Relationship), true
	}

	var entry relEntry
	if !c.loadPersisted(ctx, key, &entry) {
		middleware.CacheMisses.WithLabelValues("relationship").Inc()
		return "", false
	}
	if c.expired(entry.SavedAt, RelationshipTTL) || !entry.Relationship.Valid() {
		c.remove(ctx, key)
		middleware.CacheMisses.WithLabelValues("relationship").Inc()
		return "", false
	}

	c.promote(key, entry.SavedAt, entry.Relationship)
	middleware.CacheHits.WithLabelValues("relationship", "persisted").Inc()
	return entry.Relationship, true
}

// Clear forces the next Load for the pair to miss.
func (c *Cache) Clear(ctx context.Context, viewer, target uint) {
	c.remove(ctx, RelKey(viewer, target))
}

// Update is the reconciliation entry point after a successful or assumed
// follow/unfollow. Beyond the forward pair it speculatively rewrites the
// reverse pair (target, viewer) so the other party's cached view stays
// plausible without a round trip. Best-effort, not authoritative.
func (c *Cache) Update(ctx context.Context, viewer, target uint, rel models.Relationship) {
	c.Save(ctx, viewer, target, rel)

	priorReverse := models.RelationshipNone
	if cached, ok := c.Load(ctx, target, viewer); ok {
		priorReverse = cached
	}
	c.Save(ctx, target, viewer, models.DeriveReverseGuess(rel, priorReverse))
}

// SaveCounts caches aggregate follow counts for a user.
func (c *Cache) SaveCounts(ctx context.Context, userID uint, counts models.FollowCounts) {
	c.put(ctx, CountsKey(userID), countsEntry{Counts: counts, SavedAt: c.now()}, counts)
}

// LoadCounts returns cached counts, bounded by the one-hour TTL.
func (c *Cache) LoadCounts(ctx context.Context, userID uint) (models.FollowCounts, bool) {
	key := CountsKey(userID)

	if payload, ok := c.loadMem(key, CountsTTL); ok {
		middleware.CacheHits.WithLabelValues("counts", "memory").Inc()
		return payload.(models.FollowCounts), true
	}

	var entry countsEntry
	if !c.loadPersisted(ctx, key, &entry) {
		middleware.CacheMisses.WithLabelValues("counts").Inc()
		return models.FollowCounts{}, false
	}
	if c.expired(entry.SavedAt, CountsTTL) {
		c.remove(ctx, key)
		middleware.CacheMisses.WithLabelValues("counts").Inc()
		return models.FollowCounts{}, false
	}

	c.promote(key, entry.SavedAt, entry.Counts)
	middleware.CacheHits.WithLabelValues("counts", "persisted").Inc()
	return entry.Counts, true
}

// ClearCounts drops the cached counts for a user.
func (c *Cache) ClearCounts(ctx context.Context, userID uint) {
	c.remove(ctx, CountsKey(userID))
}

// SaveList caches a follower/following list snapshot for a user.
func (c *Cache) SaveList(ctx context.Context, userID uint, kind ListKind, users []models.UserSummary) {
	c.put(ctx, ListKey(userID, kind), listEntry{Users: users, SavedAt: c.now()}, users)
}

// LoadList returns a cached list snapshot, bounded by the 30-minute TTL.
func (c *Cache) LoadList(ctx context.Context, userID uint, kind ListKind) ([]models.UserSummary, bool) {
	key := ListKey(userID, kind)

	if payload, ok := c.loadMem(key, ListTTL); ok {
		middleware.CacheHits.WithLabelValues("list", "memory").Inc()
		return payload.([]models.UserSummary), true
	}

	var entry listEntry
	if !c.loadPersisted(ctx, key, &entry) {
		middleware.CacheMisses.WithLabelValues("list").Inc()
		return nil, false
	}
	if c.expired(entry.SavedAt, ListTTL) {
		c.remove(ctx, key)
		middleware.CacheMisses.WithLabelValues("list").Inc()
		return nil, false
	}

	c.promote(key, entry.SavedAt, entry.Users)
	middleware.CacheHits.WithLabelValues("list", "persisted").Inc()
	return entry.Users, true
}

// ClearList drops a cached list snapshot.
func (c *Cache) ClearList(ctx context.Context, userID uint, kind ListKind) {
	c.remove(ctx, ListKey(userID, kind))
}

// StartSweeper runs Sweep every SweepInterval until ctx is canceled.
func (c *Cache) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep(ctx)
			}
		}
	}()
}

// Sweep scans the persisted namespaces and deletes entries older than
// their TTL or whose value fails to parse.
func (c *Cache) Sweep(ctx context.Context) {
	if c.store == nil {
		return
	}
	removed := 0
	for _, ns := range []struct {
		prefix string
		ttl    time.Duration
	}{
		{relKeyPrefix, RelationshipTTL},
		{countsKeyPrefix, CountsTTL},
		{listKeyPrefix, ListTTL},
	} {
		keys, err := c.store.Keys(ctx, ns.prefix)
		if err != nil {
			c.logger.WarnContext(ctx, "cache sweep scan failed",
				slog.String("prefix", ns.prefix), slog.String("error", err.Error()))
			continue
		}
		for _, key := range keys {
			raw, ok, err := c.store.GetItem(ctx, key)
			if err != nil || !ok {
				continue
			}
			var probe struct {
				SavedAt time.Time `json:"saved_at"`
			}
			if err := json.Unmarshal([]byte(raw), &probe); err != nil || probe.SavedAt.IsZero() || c.expired(probe.SavedAt, ns.ttl) {
				c.remove(ctx, key)
				removed++
			}
		}
	}
	if removed > 0 {
		c.logger.InfoContext(ctx, "cache sweep completed", slog.Int("removed", removed))
	}
}

func (c *Cache) expired(savedAt time.Time, ttl time.Duration) bool {
	return c.now().Sub(savedAt) > ttl
}

// put writes to the persisted store and the in-memory index. Persistence
// failures are logged and swallowed; the memory write still happens.
func (c *Cache) put(ctx context.Context, key string, persisted any, payload any) {
	savedAt := c.now()

	if c.store != nil {
		raw, err := json.Marshal(persisted)
		if err == nil {
			err = c.store.SetItem(ctx, key, string(raw))
		}
		if err != nil {
			c.logger.WarnContext(ctx, "cache write failed",
				slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	c.mu.Lock()
	c.mem[key] = memEntry{payload: payload, savedAt: savedAt}
	c.mu.Unlock()
}

func (c *Cache) loadMem(key string, ttl time.Duration) (any, bool) {
	c.mu.RLock()
	entry, ok := c.mem[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.expired(entry.savedAt, ttl) {
		c.mu.Lock()
		delete(c.mem, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.payload, true
}

// loadPersisted reads and decodes a persisted entry. Read errors and
// corrupt values count as misses; corrupt values are removed.
func (c *Cache) loadPersisted(ctx context.Context, key string, dest any) bool {
	if c.store == nil {
		return false
	}
	raw, ok, err := c.store.GetItem(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "cache read failed",
			slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		c.logger.WarnContext(ctx, "cache entry corrupt, removing",
			slog.String("key", key), slog.String("error", err.Error()))
		c.remove(ctx, key)
		return false
	}
	return true
}

func (c *Cache) promote(key string, savedAt time.Time, payload any) {
	c.mu.Lock()
	c.mem[key] = memEntry{payload: payload, savedAt: savedAt}
	c.mu.Unlock()
}

func (c *Cache) remove(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.mem, key)
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.RemoveItem(ctx, key); err != nil {
		c.logger.WarnContext(ctx, "cache remove failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}

// relEntry parse guard: a persisted relationship value outside the known
// tags is treated as corrupt.
func (e *relEntry) UnmarshalJSON(data []byte) error {
	type alias relEntry
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if !models.Relationship(strings.TrimSpace(string(a.Relationship))).Valid() {
		return fmt.Errorf("unknown relationship tag %q", a.Relationship)
	}
	*e = relEntry(a)
	return nil
}
