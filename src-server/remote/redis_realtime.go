package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisRealtime publishes insert notifications over Redis pub/sub so every
// server instance sees rows written by the others.
type RedisRealtime struct {
	client *redis.Client
}

func NewRedisRealtime(addr, password string) *RedisRealtime {
	return &RedisRealtime{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

func (r *RedisRealtime) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("(*RedisRealtime).Publish: %w", err)
	}
	return nil
}

func (r *RedisRealtime) Subscribe(ctx context.Context, channel string, fn func([]byte)) (Subscription, error) {
	pubsub := r.client.Subscribe(ctx, channel)
	// wait for the subscription to be confirmed before returning
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("(*RedisRealtime).Subscribe: %w", err)
	}
	sub := &redisSubscription{pubsub: pubsub, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for msg := range pubsub.Channel() {
			fn([]byte(msg.Payload))
		}
	}()
	return sub, nil
}

func (r *RedisRealtime) Close() error {
	return r.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	once   sync.Once
	done   chan struct{}
}

// Unsubscribe returns once the delivery goroutine has exited.
func (s *redisSubscription) Unsubscribe() {
	s.once.Do(func() {
		_ = s.pubsub.Close()
		<-s.done
	})
}
