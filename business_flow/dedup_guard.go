package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clipgreet/clipgreet/models"
	"github.com/clipgreet/clipgreet/repository"
)

// DedupGuard answers "has this session already reported this event" before
// the event reaches the store. It is advisory: the unique index on the
// events table is the authority, the guard just saves a write in the common
// case and keeps duplicate responses fast.
type DedupGuard interface {
	// Seen reports whether a matching event is already recorded for the
	// session. It never returns true speculatively: cache misses fall
	// through to the database.
	Seen(ctx context.Context, videoID uint, sessionID string, event models.CanonicalEvent) (bool, error)
	// Remember marks the event as recorded in the fast path. Failures are
	// ignored; the database index still protects correctness.
	Remember(ctx context.Context, videoID uint, sessionID string, event models.CanonicalEvent)
}

type DedupGuardImpl struct {
	eventRepo   repository.ViewerEventRepository
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewDedupGuard(
	eventRepo repository.ViewerEventRepository,
	redisClient *redis.Client,
	cacheTTL time.Duration,
) DedupGuard {
	return &DedupGuardImpl{
		eventRepo:   eventRepo,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

func dedupCacheKey(videoID uint, sessionID string, key string) string {
	return fmt.Sprintf("dedup:%d:%s:%s", videoID, sessionID, key)
}

func (g *DedupGuardImpl) Seen(ctx context.Context, videoID uint, sessionID string, event models.CanonicalEvent) (bool, error) {
	key := models.DedupKeyFor(&sessionID, event.Kind, event.Progress)
	if key == nil {
		// Anonymous sessions and non-deduplicated kinds always pass.
		return false, nil
	}

	if g.redisClient != nil {
		exists, err := g.redisClient.Exists(ctx, dedupCacheKey(videoID, sessionID, *key)).Result()
		if err == nil && exists > 0 {
			return true, nil
		}
		// Cache errors fall through to the database check.
	}

	existing, err := g.eventRepo.FindMatching(ctx, videoID, sessionID, event.Kind, event.Progress)
	if err != nil {
		return false, unavailable("failed to check for duplicate event", err)
	}
	return existing != nil, nil
}

func (g *DedupGuardImpl) Remember(ctx context.Context, videoID uint, sessionID string, event models.CanonicalEvent) {
	if g.redisClient == nil {
		return
	}
	key := models.DedupKeyFor(&sessionID, event.Kind, event.Progress)
	if key == nil {
		return
	}
	// Best effort only.
	_ = g.redisClient.SetNX(ctx, dedupCacheKey(videoID, sessionID, *key), 1, g.cacheTTL).Err()
}
