package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisBus publishes envelopes to a Redis pub/sub channel.
type RedisBus struct {
	rdb     *goredis.Client
	channel string
}

// NewRedisBus dials Redis and verifies connectivity before returning the bus.
func NewRedisBus(addr, channel string) (*RedisBus, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, fmt.Errorf("redis channel is required")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBus{rdb: rdb, channel: channel}, nil
}

// Publish sends one envelope to the channel.
func (b *RedisBus) Publish(ctx context.Context, envelope Envelope) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis bus is not initialized")
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish envelope: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (b *RedisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
