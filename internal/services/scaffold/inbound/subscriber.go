// Package inbound consumes collaborator events and turns them into commands.
package inbound

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Message is the wire format collaborator services publish.
type Message struct {
	Type          string          `json:"type"`
	ProjectID     string          `json:"project_id"`
	RequestID     string          `json:"request_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	CausationID   string          `json:"causation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// RedisSubscriber consumes collaborator messages from a Redis pub/sub channel.
type RedisSubscriber struct {
	rdb     *goredis.Client
	channel string
}

// NewRedisSubscriber dials Redis and verifies connectivity before returning
// the subscriber.
func NewRedisSubscriber(addr, channel string) (*RedisSubscriber, error) {
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

	return &RedisSubscriber{rdb: rdb, channel: channel}, nil
}

// Run subscribes to the channel and forwards decoded messages to handle until
// the context is canceled. Handle errors are logged, not fatal: the publisher
// side owns redelivery.
func (s *RedisSubscriber) Run(ctx context.Context, handle func(context.Context, Message) error) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("subscriber is not initialized")
	}
	if handle == nil {
		return fmt.Errorf("handle callback is required")
	}

	sub := s.rdb.Subscribe(ctx, s.channel)
	// Confirms the subscription actually started.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-ch:
			if !ok || raw == nil {
				return fmt.Errorf("subscription channel closed")
			}
			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				log.Printf("inbound: bad message payload: %v", err)
				continue
			}
			if err := handle(ctx, msg); err != nil {
				log.Printf("inbound: handle %s for %s: %v", msg.Type, msg.ProjectID, err)
			}
		}
	}
}

// Close closes the underlying Redis client.
func (s *RedisSubscriber) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
