package live

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"staytrack/pkg/domain"
)

// DefaultChannel is the pub/sub channel carrying menu changes.
const DefaultChannel = "staytrack:menu"

type envelope struct {
	Origin string           `json:"origin"`
	Entry  domain.MenuEntry `json:"entry"`
}

// RedisRelay publishes menu changes to a Redis channel and delivers changes
// published by other processes to its hub.
type RedisRelay struct {
	client  *redis.Client
	hub     *Hub
	channel string
	origin  string
	logger  *zap.Logger
}

// NewRedisRelay builds a relay for hub. An empty channel uses DefaultChannel.
func NewRedisRelay(client *redis.Client, hub *Hub, channel string, logger *zap.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{
		client:  client,
		hub:     hub,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger.Named("relay"),
	}
}

// Publish implements Relay.
func (r *RedisRelay) Publish(ctx context.Context, entry domain.MenuEntry) error {
	payload, err := json.Marshal(envelope{Origin: r.origin, Entry: entry})
	if err != nil {
		return fmt.Errorf("encode menu entry: %w", err)
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Start subscribes to the channel and forwards remote changes until ctx is
// done or stop is called. It returns once the subscription is confirmed.
func (r *RedisRelay) Start(ctx context.Context) (stop func(), err error) {
	ctx, cancel := context.WithCancel(ctx)
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				r.handle(msg.Payload)
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}, nil
}

func (r *RedisRelay) handle(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.logger.Warn("malformed menu message", zap.Error(err))
		return
	}
	if env.Origin == r.origin {
		return
	}
	r.hub.Deliver(env.Entry)
}
