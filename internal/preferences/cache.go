package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// cacheTTL keeps cached preferences for an hour; writes invalidate eagerly.
const cacheTTL = time.Hour

// Cache is a Redis read-through cache in front of the preferences table.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func prefsKey(userID uuid.UUID) string {
	return fmt.Sprintf("prefs:%s", userID.String())
}

// Get returns the cached preferences, or nil on a miss. Redis errors are
// returned so the caller can decide to fall through to the database.
func (c *Cache) Get(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	val, err := c.client.Get(ctx, prefsKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", prefsKey(userID), err)
	}

	prefs := &Preferences{}
	if err := json.Unmarshal([]byte(val), prefs); err != nil {
		// Treat a malformed entry as a miss.
		return nil, nil
	}
	return prefs, nil
}

// Set stores the preferences with the cache TTL.
func (c *Cache) Set(ctx context.Context, prefs *Preferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshaling preferences: %w", err)
	}
	if err := c.client.Set(ctx, prefsKey(prefs.UserID), string(data), cacheTTL).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", prefsKey(prefs.UserID), err)
	}
	return nil
}

// Invalidate drops the cached entry for the user.
func (c *Cache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, prefsKey(userID)).Err()
}
