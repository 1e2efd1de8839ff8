package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/strike-hub/strike-league-hub/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// STANDINGS CACHE
// ══════════════════════════════════════════════════════════════════════════════

// standingsKeyPrefix namespaces standings keys; one key per division.
const standingsKeyPrefix = "standings:division:"

// StandingsCache implements query.StandingsCache with one JSON blob per
// division. Invalidation deletes every division key, so a reshuffle that
// moves players between divisions cannot leave a stale table behind.
type StandingsCache struct {
	client *redis.Client
}

// NewStandingsCache creates a new StandingsCache.
func NewStandingsCache(client *redis.Client) *StandingsCache {
	return &StandingsCache{client: client}
}

func standingsKey(division int) string {
	return fmt.Sprintf("%s%d", standingsKeyPrefix, division)
}

// GetStandings returns the cached standings of one division.
// Returns ErrCacheMiss when the division is not cached.
func (c *StandingsCache) GetStandings(ctx context.Context, division int) ([]query.StandingEntryDTO, error) {
	data, err := c.client.Get(ctx, standingsKey(division)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("standings cache get: %w", err)
	}

	var entries []query.StandingEntryDTO
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	return entries, nil
}

// SetStandings caches one division's standings with a TTL.
func (c *StandingsCache) SetStandings(ctx context.Context, division int, entries []query.StandingEntryDTO, ttl time.Duration) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	if err := c.client.Set(ctx, standingsKey(division), data, ttl).Err(); err != nil {
		return fmt.Errorf("standings cache set: %w", err)
	}

	return nil
}

// Invalidate deletes every cached division table.
func (c *StandingsCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, standingsKeyPrefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("standings cache scan: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("standings cache invalidate: %w", err)
	}

	return nil
}
