package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/estatehub/marketplace/services/api/internal/domain"
)

const activeListingsKey = "listings:active:v1"

// ActiveListingsCache keeps a JSON snapshot of active listings. Snapshots are
// stored under "<key>:<generation>" and expire after ttl. InvalidateActive
// bumps the counter at "<key>:gen" instead of deleting, so a fill computed
// before the bump lands under a generation no reader asks for.
type ActiveListingsCache struct {
	client goredis.Cmdable
	key    string
	ttl    time.Duration
}

func NewActiveListingsCache(client goredis.Cmdable, ttl time.Duration) *ActiveListingsCache {
	return &ActiveListingsCache{client: client, key: activeListingsKey, ttl: ttl}
}

// WithKey returns a copy of the cache using a different key prefix.
func (c *ActiveListingsCache) WithKey(key string) *ActiveListingsCache {
	cp := *c
	cp.key = key
	return &cp
}

func (c *ActiveListingsCache) generationKey() string {
	return c.key + ":gen"
}

func (c *ActiveListingsCache) snapshotKey(generation int64) string {
	return c.key + ":" + strconv.FormatInt(generation, 10)
}

func (c *ActiveListingsCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *ActiveListingsCache) GetActive(ctx context.Context) ([]domain.Listing, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, fmt.Errorf("get active listings generation: %w", err)
	}

	raw, err := c.client.Get(ctx, c.snapshotKey(gen)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, gen, false, nil
		}
		return nil, 0, false, fmt.Errorf("get active listings: %w", err)
	}

	var listings []domain.Listing
	if err := json.Unmarshal(raw, &listings); err != nil {
		_ = c.client.Del(ctx, c.snapshotKey(gen)).Err()
		return nil, 0, false, fmt.Errorf("decode active listings: %w", err)
	}
	return listings, gen, true, nil
}

func (c *ActiveListingsCache) SetActive(ctx context.Context, generation int64, listings []domain.Listing) error {
	if listings == nil {
		listings = []domain.Listing{}
	}
	raw, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("encode active listings: %w", err)
	}
	if err := c.client.Set(ctx, c.snapshotKey(generation), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set active listings: %w", err)
	}
	return nil
}

func (c *ActiveListingsCache) InvalidateActive(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("invalidate active listings: %w", err)
	}
	return nil
}
