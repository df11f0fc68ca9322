// Package cache provides a Redis read-through cache for record public
// metadata. Only the grant-free projection is cached: ciphertext handles
// never leave the primary store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
)

// Cache stores PublicRecord snapshots with a TTL. A nil *Cache is a valid
// no-op cache so wiring stays unconditional.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

func key(id domain.RecordID) string {
	return "passport:record:" + id.String()
}

// Get returns the cached projection and whether it was present. Errors are
// treated as misses: the cache must never fail a read path.
func (c *Cache) Get(ctx context.Context, id domain.RecordID) (models.PublicRecord, bool) {
	if c == nil {
		return models.PublicRecord{}, false
	}
	raw, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// Degraded cache, serve from the store.
			return models.PublicRecord{}, false
		}
		return models.PublicRecord{}, false
	}
	var rec models.PublicRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.PublicRecord{}, false
	}
	return rec, true
}

// Set stores the projection. Best-effort: errors are dropped.
func (c *Cache) Set(ctx context.Context, rec models.PublicRecord) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key(rec.ID), raw, c.ttl).Err()
}

// Invalidate drops a cached projection after a state change (revocation).
func (c *Cache) Invalidate(ctx context.Context, id domain.RecordID) {
	if c == nil {
		return
	}
	_ = c.client.Del(ctx, key(id)).Err()
}
