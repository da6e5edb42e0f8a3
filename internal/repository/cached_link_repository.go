package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linkhub/redirector/internal/model"
)

// LinkFinder is the lookup contract the redirect gate depends on.
type LinkFinder interface {
	FindByCode(ctx context.Context, code string) (*model.Link, error)
}

// CachedLinkRepository wraps a LinkFinder with a Redis cache-aside
// layer. Cache faults degrade to a direct database lookup; negative
// results (not found) are not cached so a freshly created code resolves
// immediately. Cached entries are served as-is until they expire, so a
// link deleted or paused by the CRUD application can keep resolving for
// at most the TTL. The TTL is the staleness bound; keep it short.
type CachedLinkRepository struct {
	db    LinkFinder
	cache *redis.Client
	ttl   time.Duration
}

// NewCachedLinkRepository creates the caching wrapper. A nil cache
// client disables caching entirely.
func NewCachedLinkRepository(db LinkFinder, cache *redis.Client, ttl time.Duration) *CachedLinkRepository {
	return &CachedLinkRepository{db: db, cache: cache, ttl: ttl}
}

// FindByCode with cache-aside pattern
func (r *CachedLinkRepository) FindByCode(ctx context.Context, code string) (*model.Link, error) {
	cacheKey := fmt.Sprintf("link:%s", code)

	// 1. Try cache first (gracefully handle Redis errors)
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var link model.Link
			if uerr := json.Unmarshal([]byte(cached), &link); uerr == nil {
				return &link, nil
			}
			// Corrupt entry, drop it and fall through to the database
			r.cache.Del(ctx, cacheKey)
		}
	}

	// 2. Query database
	link, err := r.db.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	// 3. Store in cache
	if r.cache != nil {
		if data, merr := json.Marshal(link); merr == nil {
			r.cache.Set(ctx, cacheKey, data, r.ttl)
		}
	}

	return link, nil
}

var _ LinkFinder = (*CachedLinkRepository)(nil)
