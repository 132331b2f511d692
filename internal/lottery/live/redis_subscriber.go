package live

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/results"
)

// StartRedisSubscriber escuta o canal de resultados e repassa ao Hub.
// Encerra a inscrição quando ctx é cancelado.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				var upd results.Update
				if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
					log.Warn("live: bad broadcast payload", zap.Error(err))
					continue
				}
				hub.Broadcast(upd)
			}
		}
	}()
}
