package repository

import (
	"context"
	"encoding/json"

	"legal_marketplace_service/internal/chat/domain"
	"legal_marketplace_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// roomChannelPattern matches every room channel on the backplane.
const (
	roomChannelPrefix  = "chat:room:"
	roomChannelPattern = roomChannelPrefix + "*"
)

// RedisPubSub is the redis backplane for the room bus: events published
// here reach the room bus of every other chat-service process.
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish serializes the event and publishes it on the room's channel.
func (r *RedisPubSub) Publish(ctx context.Context, ev domain.RoomEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, roomChannelPrefix+ev.RoomID, data).Err()
}

// Subscribe listens on every room channel and hands decoded events to
// handler until ctx is cancelled.
func (r *RedisPubSub) Subscribe(ctx context.Context, handler func(ev domain.RoomEvent)) error {
	sub := r.client.PSubscribe(ctx, roomChannelPattern)

	go func() {
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}

				var ev domain.RoomEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					logger.Log.Error("backplane payload decode failed",
						zap.String("channel", m.Channel), zap.Error(err))
					continue
				}
				handler(ev)
			case <-ctx.Done():
				logger.Log.Info("backplane subscription closed")
				sub.Close()
				return
			}
		}
	}()
	return nil
}
