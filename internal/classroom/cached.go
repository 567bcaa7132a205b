package classroom

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-progress/internal/platform/cache"
)

const defaultCacheTTL = 5 * time.Minute

// CachedRegistry is a read-through Redis cache in front of a Directory.
// Cache failures are logged and bypassed; they never fail a lookup.
//
// Each cached list is stamped with the learner's enrollment generation,
// read before the underlying lookup. Enroll bumps the generation, so a list
// fetched before an enrollment and written back after it never matches again.
type CachedRegistry struct {
	next   Directory
	client redis.Cmdable
	ttl    time.Duration
}

type cachedRooms struct {
	Generation int64       `json:"generation"`
	Rooms      []Classroom `json:"rooms"`
}

// NewCachedRegistry wraps next with a Redis cache. A non-positive ttl uses
// the default of five minutes.
func NewCachedRegistry(next Directory, client redis.Cmdable, ttl time.Duration) *CachedRegistry {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedRegistry{next: next, client: client, ttl: ttl}
}

func cacheKey(learnerID string) string {
	return cache.Key("classrooms", learnerID)
}

func generationKey(learnerID string) string {
	return cache.Key("classrooms", "generation", learnerID)
}

func (c *CachedRegistry) Classrooms(ctx context.Context, learnerID string) ([]Classroom, error) {
	key := cacheKey(learnerID)

	gen, err := cache.Generation(ctx, c.client, generationKey(learnerID))
	if err != nil {
		slog.Warn("classroom cache bypassed", "learner_id", learnerID, "error", err)
		return c.next.Classrooms(ctx, learnerID)
	}

	var entry cachedRooms
	err = cache.GetJSON(ctx, c.client, key, &entry)
	switch {
	case err == nil && entry.Generation == gen && entry.Rooms != nil:
		return entry.Rooms, nil
	case err != nil && !errors.Is(err, cache.ErrMiss):
		slog.Warn("classroom cache bypassed", "learner_id", learnerID, "error", err)
	}

	rooms, err := c.next.Classrooms(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	entry = cachedRooms{Generation: gen, Rooms: rooms}
	if err := cache.SetJSON(ctx, c.client, key, entry, c.ttl); err != nil {
		slog.Warn("classroom cache write failed", "learner_id", learnerID, "error", err)
	}
	return rooms, nil
}

// Enroll writes through to the underlying directory, then bumps the
// learner's generation and drops the cached list.
func (c *CachedRegistry) Enroll(ctx context.Context, learnerID string, room Classroom) error {
	if err := c.next.Enroll(ctx, learnerID, room); err != nil {
		return err
	}
	if _, err := cache.Bump(ctx, c.client, generationKey(learnerID)); err != nil {
		slog.Warn("classroom cache invalidation failed", "learner_id", learnerID, "error", err)
	}
	if err := cache.Delete(ctx, c.client, cacheKey(learnerID)); err != nil {
		slog.Warn("classroom cache invalidation failed", "learner_id", learnerID, "error", err)
	}
	return nil
}
