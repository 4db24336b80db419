package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the client used for live-event pub/sub.
// One connection per subscription plus a few for PUBLISH is all it needs.
type RedisOptions struct {
	Addr        string
	PoolSize    int
	DialTimeout time.Duration
	PingTimeout time.Duration
}

func (o RedisOptions) withDefaults() RedisOptions {
	if o.PoolSize <= 0 {
		o.PoolSize = 4
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 3 * time.Second
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 2 * time.Second
	}
	return o
}

// OpenRedis builds a client and checks connectivity with PING.
func OpenRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	opts = opts.withDefaults()

	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		PoolSize:    opts.PoolSize,
		DialTimeout: opts.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// PublishJSON encodes v as JSON and publishes it on channel.
func PublishJSON(ctx context.Context, rdb *redis.Client, channel string, v any) error {
	if rdb == nil {
		return errors.New("redis client is nil")
	}
	if channel == "" {
		return errors.New("channel is required")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", channel, err)
	}
	return rdb.Publish(ctx, channel, b).Err()
}
