package notify

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Notifier delivers templated messages to principals. Delivery is
// best-effort: callers log a false outcome and never fail the operation
// that triggered the notification.
type Notifier interface {
	Send(ctx context.Context, recipient string, templateID string, data map[string]any) bool
}

type streamNotifier struct {
	client *redis.Client
	stream string
	log    zerolog.Logger
}

// NewStreamNotifier hands delivery to the worker over the task stream; the
// actual transport (mail, push) lives behind the worker.
func NewStreamNotifier(client *redis.Client, stream string, log zerolog.Logger) Notifier {
	return &streamNotifier{client: client, stream: stream, log: log}
}

func (n *streamNotifier) Send(ctx context.Context, recipient string, templateID string, data map[string]any) bool {
	values := map[string]any{
		"type":      "notify",
		"recipient": recipient,
		"template":  templateID,
	}
	for k, v := range data {
		values["data:"+k] = v
	}
	if err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		Values: values,
	}).Err(); err != nil {
		n.log.Warn().Err(err).Str("template", templateID).Msg("enqueue notification failed")
		return false
	}
	return true
}

type noopNotifier struct{}

func NewNoop() Notifier {
	return noopNotifier{}
}

func (noopNotifier) Send(ctx context.Context, recipient string, templateID string, data map[string]any) bool {
	return true
}
