package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ptichkin/brooder/repository"
	"github.com/redis/go-redis/v9"
)

const adminCacheKey = "brooder:admins"

// AdminCache keeps the admin roster in a redis set so every incoming update
// does not hit postgres. Misses fall back to the repository and refresh the
// set as a side effect.
type AdminCache struct {
	rdb       *redis.Client
	adminRepo repository.AdminRepository
	ttl       time.Duration
}

// NewAdminCache creates a new admin cache instance
func NewAdminCache(rdb *redis.Client, adminRepo repository.AdminRepository, ttl time.Duration) *AdminCache {
	return &AdminCache{
		rdb:       rdb,
		adminRepo: adminRepo,
		ttl:       ttl,
	}
}

// IsAdmin checks membership against the cached set, refreshing it on miss
func (c *AdminCache) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	member := strconv.FormatInt(userID, 10)

	exists, err := c.rdb.Exists(ctx, adminCacheKey).Result()
	if err == nil && exists == 1 {
		ok, err := c.rdb.SIsMember(ctx, adminCacheKey, member).Result()
		if err == nil {
			return ok, nil
		}
	}

	// Cache cold or redis unavailable: answer from the database and try to
	// repopulate for the next caller.
	isAdmin, err := c.adminRepo.IsAdmin(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check admin roster: %w", err)
	}
	if refreshErr := c.Refresh(ctx); refreshErr != nil {
		// Stale or missing cache is tolerable; the repository answered.
		_ = refreshErr
	}
	return isAdmin, nil
}

// Refresh reloads the full roster from the database into redis
func (c *AdminCache) Refresh(ctx context.Context) error {
	admins, err := c.adminRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list admins: %w", err)
	}

	members := make([]any, 0, len(admins)+1)
	// Sentinel keeps the key alive when the roster is empty, so emptiness is
	// distinguishable from a cold cache.
	members = append(members, "-")
	for _, a := range admins {
		members = append(members, strconv.FormatInt(a.UserID, 10))
	}

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, adminCacheKey)
	pipe.SAdd(ctx, adminCacheKey, members...)
	pipe.Expire(ctx, adminCacheKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to refresh admin cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached roster so the next check repopulates it
func (c *AdminCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, adminCacheKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate admin cache: %w", err)
	}
	return nil
}
