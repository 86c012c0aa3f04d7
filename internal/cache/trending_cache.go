package cache

import (
	"context"
	"fmt"

	redisv9 "github.com/redis/go-redis/v9"

	"llmcouncil/internal/config"
	"llmcouncil/internal/model"
)

const (
	trendingKey = "topics:trending"
	categoryKey = "topics:category"
)

// TrendingCache ranks debate topics in a Redis sorted set. Scores are vote
// counts; completed debates bump their question's score by one.
type TrendingCache struct {
	client *redisv9.Client
}

func NewTrendingCache(client *redisv9.Client) *TrendingCache {
	return &TrendingCache{client: client}
}

// Seed inserts the configured starter topics without overwriting live counts,
// so restarts never reset popularity accrued since the last seed.
func (c *TrendingCache) Seed(ctx context.Context, seeds []config.TopicSeed) error {
	for _, seed := range seeds {
		if err := c.client.ZAddNX(ctx, trendingKey, redisv9.Z{
			Score:  float64(seed.Votes),
			Member: seed.Topic,
		}).Err(); err != nil {
			return fmt.Errorf("seed trending topic failed: %w", err)
		}
		if seed.Category != "" {
			if err := c.client.HSetNX(ctx, categoryKey, seed.Topic, seed.Category).Err(); err != nil {
				return fmt.Errorf("seed topic category failed: %w", err)
			}
		}
	}
	return nil
}

// Bump increments a topic's vote count, registering it if unseen.
func (c *TrendingCache) Bump(ctx context.Context, topic, category string) error {
	if topic == "" {
		return nil
	}
	if err := c.client.ZIncrBy(ctx, trendingKey, 1, topic).Err(); err != nil {
		return fmt.Errorf("bump trending topic failed: %w", err)
	}
	if category != "" {
		if err := c.client.HSetNX(ctx, categoryKey, topic, category).Err(); err != nil {
			return fmt.Errorf("set topic category failed: %w", err)
		}
	}
	return nil
}

// Trending returns the top topics by vote count, highest first.
func (c *TrendingCache) Trending(ctx context.Context, limit int) ([]model.TrendingTopic, error) {
	if limit <= 0 {
		limit = 10
	}

	entries, err := c.client.ZRevRangeWithScores(ctx, trendingKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis trending range failed: %w", err)
	}
	if len(entries) == 0 {
		return []model.TrendingTopic{}, nil
	}

	members := make([]string, len(entries))
	for i, entry := range entries {
		members[i], _ = entry.Member.(string)
	}
	categories, err := c.client.HMGet(ctx, categoryKey, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis topic categories failed: %w", err)
	}

	topics := make([]model.TrendingTopic, len(entries))
	for i, entry := range entries {
		category := ""
		if i < len(categories) {
			category, _ = categories[i].(string)
		}
		topics[i] = model.TrendingTopic{
			Topic:    members[i],
			Category: category,
			Votes:    int64(entry.Score),
		}
	}
	return topics, nil
}
