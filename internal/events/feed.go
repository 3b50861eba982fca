package events

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/stayware/callguard/internal/config"
)

// Feed pushes events to Redis pub/sub for live consumers. A nil Feed is
// valid and means no feed is configured.
type Feed struct {
	enabled bool
	client  *redis.Client
}

func NewFeed(cfg config.Config) *Feed {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &Feed{
		enabled: true,
		client:  client,
	}
}

func (f *Feed) Enabled() bool {
	return f != nil && f.enabled
}

// Publish pushes one serialized event onto the topic channel.
func (f *Feed) Publish(ctx context.Context, topic string, payload []byte) error {
	if !f.Enabled() {
		return nil
	}
	return f.client.Publish(ctx, topic, payload).Err()
}
