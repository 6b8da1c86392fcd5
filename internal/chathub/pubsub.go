package chathub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"linku/backend/internal/platform/logger"

	"github.com/redis/go-redis/v9"
)

const relayPrefix = "linku:"

// RedisRelay fans room events out across processes. Publish goes to Redis;
// Run pattern-subscribes to every room channel and republishes what arrives
// into the local Bus, including events this process published itself.
type RedisRelay struct {
	rdb   *redis.Client
	local *Bus
	log   *logger.Logger
}

// NewRedisClient connects and pings addr.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewRedisRelay(rdb *redis.Client, local *Bus, log *logger.Logger) *RedisRelay {
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisRelay{rdb: rdb, local: local, log: log.With("component", "redis_relay")}
}

// Publish sends ev to Redis. If Redis is unreachable the event is delivered
// to local subscribers only.
func (r *RedisRelay) Publish(topic string, ev Event) {
	ev.Topic = topic
	raw, err := json.Marshal(ev)
	if err != nil {
		r.log.Error("encode relay event", "topic", topic, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.rdb.Publish(ctx, relayPrefix+topic, raw).Err(); err != nil {
		r.log.Warn("redis publish failed, delivering locally", "topic", topic, "error", err)
		r.local.Publish(topic, ev)
	}
}

// Run forwards Redis events into the local bus until ctx ends.
func (r *RedisRelay) Run(ctx context.Context) error {
	ps := r.rdb.PSubscribe(ctx, relayPrefix+"room.*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	r.log.Info("relay forwarder started")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.log.Warn("drop undecodable relay event", "channel", msg.Channel, "error", err)
				continue
			}
			r.local.Publish(strings.TrimPrefix(msg.Channel, relayPrefix), ev)
		}
	}
}
