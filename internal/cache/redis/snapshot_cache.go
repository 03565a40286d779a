package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quantlab/marketlab/internal/domain"
)

// latestSnapshotKey is where the most recent market snapshot lives.
const latestSnapshotKey = "marketlab:snapshot:latest"

// SnapshotCache implements domain.SnapshotCache by keeping the latest full
// market snapshot as a JSON blob.
type SnapshotCache struct {
	rdb *redis.Client
}

var _ domain.SnapshotCache = (*SnapshotCache)(nil)

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying()}
}

// SetLatest overwrites the cached snapshot. The key has no TTL; the snapshot
// stays valid until the next state change replaces it.
func (sc *SnapshotCache) SetLatest(ctx context.Context, snap domain.MarketSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot: %w", err)
	}
	if err := sc.rdb.Set(ctx, latestSnapshotKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot: %w", err)
	}
	return nil
}

// GetLatest returns the cached snapshot, or domain.ErrNotFound when nothing
// has been cached since the last flush.
func (sc *SnapshotCache) GetLatest(ctx context.Context) (domain.MarketSnapshot, error) {
	data, err := sc.rdb.Get(ctx, latestSnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.MarketSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: get snapshot: %w", err)
	}

	var snap domain.MarketSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: unmarshal snapshot: %w", err)
	}
	return snap, nil
}
