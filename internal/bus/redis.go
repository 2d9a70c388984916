package bus

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomcast-server/internal/log"
)

// Redis implements Bus on redis pub/sub. Each subscription holds its own
// PubSub connection; go-redis reconnects it on failure, and messages
// published while disconnected are simply lost, which is the delivery
// contract the replication layer is built for.
type Redis struct {
	client *redis.Client
	log    *zerolog.Logger
}

// NewRedis wraps an existing redis client. The caller owns the client's
// lifecycle.
func NewRedis(client *redis.Client, logger *zerolog.Logger) *Redis {
	if logger == nil {
		logger = log.Nop()
	}
	return &Redis{client: client, log: logger}
}

// Publish sends payload on the topic's redis channel.
func (b *Redis) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.client.Publish(ctx, topic, payload).Err()
}

// Subscribe opens a redis subscription for topic and pumps messages into h
// from a dedicated goroutine. The returned function closes the subscription,
// which ends the goroutine.
func (b *Redis) Subscribe(topic string, h Handler) (func(), error) {
	ps := b.client.Subscribe(context.Background(), topic)

	// Receive forces the SUBSCRIBE round trip so a broken connection
	// surfaces here instead of as silence later.
	if _, err := ps.Receive(context.Background()); err != nil {
		_ = ps.Close()
		return nil, err
	}

	go func() {
		for msg := range ps.Channel() {
			h([]byte(msg.Payload))
		}
		b.log.Debug().Str("topic", topic).Msg("bus subscription closed")
	}()

	return func() {
		if err := ps.Close(); err != nil {
			b.log.Warn().Err(err).Str("topic", topic).Msg("close bus subscription")
		}
	}, nil
}
