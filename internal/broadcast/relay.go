package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"phonebook/pkg/logger"
	"phonebook/pkg/utils"
)

// RedisRelay carries values between API instances over a Redis channel.
//
// Publish sends to Redis only. Run delivers everything seen on the channel,
// including this instance's own publishes, into the local Hub.
type RedisRelay[T any] struct {
	rdb     *redis.Client
	channel string
	hub     *Hub[T]
	ready   chan struct{}
}

func NewRedisRelay[T any](rdb *redis.Client, channel string, hub *Hub[T]) *RedisRelay[T] {
	return &RedisRelay[T]{rdb: rdb, channel: channel, hub: hub, ready: make(chan struct{})}
}

func (r *RedisRelay[T]) Publish(ctx context.Context, v T) error {
	return utils.PublishJSON(ctx, r.rdb, r.channel, v)
}

// Ready is closed once Run's subscription is confirmed by Redis.
func (r *RedisRelay[T]) Ready() <-chan struct{} { return r.ready }

// Run forwards channel messages into the Hub until ctx is done.
func (r *RedisRelay[T]) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	close(r.ready)

	log := logger.From(ctx)
	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var v T
			if err := json.Unmarshal([]byte(msg.Payload), &v); err != nil {
				log.Warn("relay: undecodable message", "channel", r.channel, "err", err)
				continue
			}
			r.hub.Broadcast(v)
		}
	}
}
