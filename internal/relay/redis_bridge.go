package relay

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type bridgeEnvelope struct {
	Room  string          `json:"room"`
	Frame json.RawMessage `json:"frame"`
}

// RedisBridge shares rooms across instances through one pub/sub channel.
// Every instance, including the publisher, delivers received frames locally.
type RedisBridge struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

func NewRedisBridge(client *redis.Client, channel string, log *zap.Logger) *RedisBridge {
	return &RedisBridge{client: client, channel: channel, log: log}
}

func (b *RedisBridge) Publish(ctx context.Context, room string, frame []byte) error {
	payload, err := json.Marshal(bridgeEnvelope{Room: room, Frame: frame})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Run subscribes and delivers into hub until ctx is done.
func (b *RedisBridge) Run(ctx context.Context, hub *Hub) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	b.log.Info("relay bridge subscribed", zap.String("channel", b.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("relay bridge dropped malformed message", zap.Error(err))
				continue
			}
			hub.Deliver(env.Room, env.Frame)
		}
	}
}
