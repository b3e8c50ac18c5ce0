package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/szrg/elastic-db-tools/shard"
)

const shardCacheKeyPrefix = "elastic-db-tools::shard::v1"

// CachedShardStore is a read-through cache over a shard store. Shard
// location lookups sit on the hot path of every routed connection, so reads
// come from the cache and every write invalidates the affected entries.
type CachedShardStore struct {
	base  shard.Store
	cache repositorycache.CacheService
}

func NewCachedShardStore(base shard.Store, cacheService repositorycache.CacheService) (*CachedShardStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base shard store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: shard cache service is required")
	}
	return &CachedShardStore{base: base, cache: cacheService}, nil
}

// ShardCacheKey is the deterministic cache key contract for single-shard
// reads: elastic-db-tools::shard::v1::id::<shard-id> with the id URL-path
// escaped.
func ShardCacheKey(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: shard id is required")
	}
	return strings.Join([]string{shardCacheKeyPrefix, "id", url.PathEscape(trimmed)}, "::"), nil
}

// ShardListCacheKey is the cache key contract for per-map shard listings:
// elastic-db-tools::shard::v1::map::<map-id>.
func ShardListCacheKey(mapID string) (string, error) {
	trimmed := strings.TrimSpace(mapID)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: map id is required")
	}
	return strings.Join([]string{shardCacheKeyPrefix, "map", url.PathEscape(trimmed)}, "::"), nil
}

func (s *CachedShardStore) Get(ctx context.Context, id string) (shard.Shard, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return shard.Shard{}, fmt.Errorf("sqlstore: cached shard store is not configured")
	}
	cacheKey, err := ShardCacheKey(id)
	if err != nil {
		return shard.Shard{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (shard.Shard, error) {
		return s.base.Get(ctx, strings.TrimSpace(id))
	})
}

func (s *CachedShardStore) ListByMap(ctx context.Context, mapID string) ([]shard.Shard, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached shard store is not configured")
	}
	cacheKey, err := ShardListCacheKey(mapID)
	if err != nil {
		return nil, err
	}
	listing, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) ([]shard.Shard, error) {
		return s.base.ListByMap(ctx, strings.TrimSpace(mapID))
	})
	if err != nil {
		return nil, err
	}
	return append([]shard.Shard(nil), listing...), nil
}

func (s *CachedShardStore) Add(ctx context.Context, in shard.AddShardInput) (shard.Shard, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return shard.Shard{}, fmt.Errorf("sqlstore: cached shard store is not configured")
	}
	added, err := s.base.Add(ctx, in)
	if err != nil {
		return shard.Shard{}, err
	}
	if err := s.invalidate(ctx, added.ID, added.MapID); err != nil {
		return shard.Shard{}, err
	}
	return added, nil
}

func (s *CachedShardStore) UpdateStatus(ctx context.Context, id string, status shard.Status, reason string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached shard store is not configured")
	}
	if err := s.base.UpdateStatus(ctx, id, status, reason); err != nil {
		return err
	}
	updated, err := s.base.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.invalidate(ctx, updated.ID, updated.MapID)
}

func (s *CachedShardStore) Remove(ctx context.Context, id string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached shard store is not configured")
	}
	// read before removal so the map listing key can be invalidated too
	current, err := s.base.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.base.Remove(ctx, id); err != nil {
		return err
	}
	return s.invalidate(ctx, current.ID, current.MapID)
}

func (s *CachedShardStore) invalidate(ctx context.Context, id string, mapID string) error {
	shardKey, err := ShardCacheKey(id)
	if err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, shardKey); err != nil {
		return err
	}
	listKey, err := ShardListCacheKey(mapID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, listKey)
}

var _ shard.Store = (*CachedShardStore)(nil)
