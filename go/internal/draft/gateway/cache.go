package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// stateTTL keeps abandoned drafts from pinning Redis memory forever. Any
// event on the draft refreshes it.
const stateTTL = 24 * time.Hour

// StateCache persists room snapshots outside the gateway process so they
// survive restarts and are shared between instances.
type StateCache interface {
	Get(ctx context.Context, draftID int64) (*DraftState, error)
	Put(ctx context.Context, state *DraftState) error
	Delete(ctx context.Context, draftID int64) error
}

// RedisCache stores snapshots under draft:state:<id>.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed snapshot cache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func stateKey(draftID int64) string {
	return fmt.Sprintf("draft:state:%d", draftID)
}

// Get loads a snapshot, returning nil without error when none is cached.
func (c *RedisCache) Get(ctx context.Context, draftID int64) (*DraftState, error) {
	data, err := c.client.Get(ctx, stateKey(draftID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft state: %w", err)
	}

	var state DraftState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft state: %w", err)
	}
	return &state, nil
}

// Put stores a snapshot and refreshes its TTL.
func (c *RedisCache) Put(ctx context.Context, state *DraftState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal draft state: %w", err)
	}
	if err := c.client.Set(ctx, stateKey(state.DraftID), data, stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache draft state: %w", err)
	}
	return nil
}

// Delete drops a snapshot, typically after the draft itself is deleted.
func (c *RedisCache) Delete(ctx context.Context, draftID int64) error {
	if err := c.client.Del(ctx, stateKey(draftID)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft state: %w", err)
	}
	return nil
}
