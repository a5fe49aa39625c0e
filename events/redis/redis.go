package redis

import (
	"context"
	"crypto/tls"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisPlacebotEvents struct {
	client redis.UniversalClient
}

func NewRedisPlacebotEvents(ctx context.Context, devMode bool, redis_endpoint string) (*RedisPlacebotEvents, error) {
	var client redis.UniversalClient
	if devMode {
		client = redis.NewClient(&redis.Options{
			Addr: redis_endpoint,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr: redis_endpoint,
			// AWS elasticache endpoints require TLS
			TLSConfig: &tls.Config{},
		})
	}

	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return &RedisPlacebotEvents{client: client}, nil
}

func (bus *RedisPlacebotEvents) Publish(ctx context.Context, channel string, message []byte) error {
	if err := bus.client.Publish(ctx, channel, message).Err(); err != nil {
		return err
	}
	return nil
}

func (bus *RedisPlacebotEvents) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	pubsub := bus.client.Subscribe(ctx, channel)
	// Ensure subscription is established
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		log.Printf("Pubsub channel closed: %s", channel)
		return err
	}

	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()

	return nil
}

const recentKey = "engine:recent"

const recentLimit = 500

const recentTTL = 10 * time.Minute

func (bus *RedisPlacebotEvents) AppendRecent(ctx context.Context, message []byte) error {
	pipe := bus.client.Pipeline()
	pipe.LPush(ctx, recentKey, message)
	pipe.LTrim(ctx, recentKey, 0, recentLimit-1)
	pipe.Expire(ctx, recentKey, recentTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (bus *RedisPlacebotEvents) GetRecent(ctx context.Context) ([][]byte, error) {
	// LPush stores newest at index 0, so reverse to return oldest first.
	items, err := bus.client.LRange(ctx, recentKey, 0, recentLimit-1).Result()
	if err != nil {
		return nil, err
	}

	out := make([][]byte, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		out = append(out, []byte(items[i]))
	}
	return out, nil
}
