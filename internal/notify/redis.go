package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultChannelPrefix = "thlink.documents"

var errMissingRedisClient = errors.New("notify: redis client is required")

// RedisClient is the subset of the go-redis client used for publishing.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RedisPublisherConfig struct {
	Client        RedisClient
	ChannelPrefix string
}

// RedisPublisher publishes events as JSON on one channel per workspace, named prefix.workspace.
type RedisPublisher struct {
	client RedisClient
	prefix string
}

func NewRedisPublisher(cfg RedisPublisherConfig) (*RedisPublisher, error) {
	if cfg.Client == nil {
		return nil, errMissingRedisClient
	}
	prefix := strings.TrimSpace(cfg.ChannelPrefix)
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	return &RedisPublisher{client: cfg.Client, prefix: prefix}, nil
}

// NewRedisClient opens a go-redis client for addr.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (p *RedisPublisher) Channel(workspace string) string {
	return p.prefix + "." + workspace
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(event.Workspace), payload).Err(); err != nil {
		return fmt.Errorf("notify: redis publish: %w", err)
	}
	return nil
}
