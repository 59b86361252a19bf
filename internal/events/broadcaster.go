package events

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Broadcaster fans events out to interested principals. Emit is
// fire-and-forget: the core never consults the outcome and a broadcast
// failure never fails the operation that produced it.
type Broadcaster interface {
	Start(ctx context.Context) error
	Stop() error
	Emit(ctx context.Context, eventType string, payload map[string]any, targetPrincipals []string)
}

const eventStream = "gallery:events"

type redisBroadcaster struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewRedisBroadcaster publishes events to a redis stream that downstream
// push transports consume. Delivery is their concern.
func NewRedisBroadcaster(client *redis.Client, log zerolog.Logger) Broadcaster {
	return &redisBroadcaster{client: client, log: log}
}

func (b *redisBroadcaster) Start(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *redisBroadcaster) Stop() error {
	return nil
}

func (b *redisBroadcaster) Emit(ctx context.Context, eventType string, payload map[string]any, targetPrincipals []string) {
	values := map[string]any{
		"type":    eventType,
		"targets": strings.Join(targetPrincipals, ","),
	}
	for k, v := range payload {
		values[k] = v
	}
	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: eventStream,
		Values: values,
	}).Err(); err != nil {
		b.log.Warn().Err(err).Str("event", eventType).Msg("emit failed")
	}
}

type noopBroadcaster struct{}

// NewNoop returns a broadcaster that drops everything; the core must work
// correctly with it, which is what the service tests run against.
func NewNoop() Broadcaster {
	return noopBroadcaster{}
}

func (noopBroadcaster) Start(ctx context.Context) error { return nil }
func (noopBroadcaster) Stop() error                     { return nil }
func (noopBroadcaster) Emit(ctx context.Context, eventType string, payload map[string]any, targetPrincipals []string) {
}
