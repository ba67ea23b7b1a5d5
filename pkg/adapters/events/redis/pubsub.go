package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aescanero/notifeed/pkg/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Pub/Sub channel events are published on
const DefaultChannel = "notifeed:events"

// PubSubEventBus implements EventBus using Redis Pub/Sub
type PubSubEventBus struct {
	client  *redis.Client
	channel string
	buffer  int
	logger  *zap.Logger
}

// NewPubSubEventBus creates a new Redis Pub/Sub event bus
func NewPubSubEventBus(client *redis.Client, channel string, logger *zap.Logger) *PubSubEventBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &PubSubEventBus{
		client:  client,
		channel: channel,
		buffer:  16,
		logger:  logger,
	}
}

// Publish publishes an event to the channel
func (e *PubSubEventBus) Publish(ctx context.Context, event ports.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := e.client.Publish(ctx, e.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	e.logger.Debug("event published",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("channel", e.channel))

	return nil
}

// Subscribe subscribes to the channel until ctx is done. It returns once the
// subscription is confirmed by Redis.
func (e *PubSubEventBus) Subscribe(ctx context.Context) (<-chan ports.Event, error) {
	sub := e.client.Subscribe(ctx, e.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", e.channel, err)
	}

	e.logger.Debug("subscribed to event channel", zap.String("channel", e.channel))

	out := make(chan ports.Event, e.buffer)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		msgCh := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				var event ports.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					e.logger.Error("failed to unmarshal event",
						zap.String("channel", msg.Channel),
						zap.Error(err))
					continue
				}
				select {
				case out <- event:
				default:
					e.logger.Warn("subscriber channel full, dropping event",
						zap.String("event_id", event.ID))
				}
			}
		}
	}()

	return out, nil
}

// Close is a no-op; the Redis client is closed by the caller
func (e *PubSubEventBus) Close() error {
	return nil
}
