package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/howshous/analytics/internal/common/redis"
)

// InsightStore persists the per-landlord reply cache and daily quota
// counters. Both are per-user keys, so concurrent calls only self-contend.
type InsightStore interface {
	// GetInsight returns the cached insight, or nil when absent or expired.
	GetInsight(ctx context.Context, landlordID string) (*CachedInsight, error)
	// PutInsight unconditionally overwrites the cached insight.
	PutInsight(ctx context.Context, landlordID string, insight *CachedInsight) error
	// IncrementQuota atomically bumps the landlord's counter for the given
	// date key and returns the new total.
	IncrementQuota(ctx context.Context, landlordID, dateKey string) (int64, error)
}

type redisStore struct {
	redis    *redis.Client
	cacheTTL time.Duration
}

// NewRedisStore backs the insight cache and quota with Redis. Cache entries
// carry the configured TTL; quota keys expire on their own after the day
// rolls over.
func NewRedisStore(client *redis.Client, cacheTTL time.Duration) InsightStore {
	return &redisStore{redis: client, cacheTTL: cacheTTL}
}

func insightKey(landlordID string) string {
	return fmt.Sprintf("insights:reply:%s", landlordID)
}

func quotaKey(landlordID, dateKey string) string {
	return fmt.Sprintf("insights:quota:%s:%s", landlordID, dateKey)
}

func (s *redisStore) GetInsight(ctx context.Context, landlordID string) (*CachedInsight, error) {
	raw, err := s.redis.Get(ctx, insightKey(landlordID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read insight cache: %w", err)
	}

	var insight CachedInsight
	if err := json.Unmarshal([]byte(raw), &insight); err != nil {
		return nil, fmt.Errorf("failed to unmarshal insight cache: %w", err)
	}

	return &insight, nil
}

func (s *redisStore) PutInsight(ctx context.Context, landlordID string, insight *CachedInsight) error {
	data, err := json.Marshal(insight)
	if err != nil {
		return fmt.Errorf("failed to marshal insight cache: %w", err)
	}

	if err := s.redis.Set(ctx, insightKey(landlordID), data, s.cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to write insight cache: %w", err)
	}

	return nil
}

func (s *redisStore) IncrementQuota(ctx context.Context, landlordID, dateKey string) (int64, error) {
	key := quotaKey(landlordID, dateKey)

	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment quota: %w", err)
	}

	// First increment of the day sets the expiry; 48h covers every timezone's
	// view of "today" before the key disappears.
	if count == 1 {
		if err := s.redis.Expire(ctx, key, 48*time.Hour).Err(); err != nil {
			return count, fmt.Errorf("failed to set quota expiry: %w", err)
		}
	}

	return count, nil
}
