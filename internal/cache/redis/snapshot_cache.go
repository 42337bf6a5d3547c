package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/predicthub/predicthub/internal/domain"
)

// SnapshotKey holds the JSON-encoded latest refresh snapshot.
const SnapshotKey = "markets:snapshot"

// SnapshotCache implements domain.SnapshotCache with a single JSON string
// key. A server-only process reads it to serve markets it did not fetch.
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotCache creates a SnapshotCache. A zero ttl stores the snapshot
// without expiry.
func NewSnapshotCache(c *Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying(), ttl: ttl}
}

// Set replaces the cached snapshot.
func (sc *SnapshotCache) Set(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", snap.RunID, err)
	}
	if err := sc.rdb.Set(ctx, SnapshotKey, data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot: %w", err)
	}
	return nil
}

// Get returns the cached snapshot, or domain.ErrNotFound when nothing has
// been cached yet.
func (sc *SnapshotCache) Get(ctx context.Context) (domain.Snapshot, error) {
	data, err := sc.rdb.Get(ctx, SnapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Snapshot{}, domain.ErrNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("redis: get snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("redis: unmarshal snapshot: %w", err)
	}
	return snap, nil
}

var _ domain.SnapshotCache = (*SnapshotCache)(nil)
