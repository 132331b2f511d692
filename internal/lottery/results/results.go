package results

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/lottery-points-platform/pkg/contracts/events"
	"github.com/radieske/lottery-points-platform/pkg/contracts/topics"
)

// DefaultTTL mantém o último resultado por modalidade até o sorteio seguinte
const DefaultTTL = 36 * time.Hour

// Update é a mensagem trafegada no canal Redis e entregue ao websocket
type Update struct {
	Modality string             `json:"modality"`
	Payload  events.DrawSettled `json:"payload"`
}

// Redis guarda o último resultado de cada modalidade e o anuncia no
// canal de broadcast. Implementa o Notifier do motor de sorteios.
type Redis struct {
	Client  *redis.Client
	TTL     time.Duration
	Channel string
}

func NewRedis(c *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{Client: c, TTL: ttl, Channel: topics.ResultsChannel}
}

func key(modality string) string { return "lottery:result:latest:" + modality }

// DrawSettled atualiza o cache e publica no canal
func (r *Redis) DrawSettled(ctx context.Context, e events.DrawSettled) error {
	if err := r.SetLatest(ctx, e); err != nil {
		return err
	}
	return r.Publish(ctx, e)
}

func (r *Redis) SetLatest(ctx context.Context, e events.DrawSettled) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key(e.Modality), b, r.TTL).Err()
}

// Latest devolve o último resultado em cache; found=false se não houver
func (r *Redis) Latest(ctx context.Context, modality string) (events.DrawSettled, bool, error) {
	var e events.DrawSettled
	b, err := r.Client.Get(ctx, key(modality)).Bytes()
	if err == redis.Nil {
		return e, false, nil
	}
	if err != nil {
		return e, false, err
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return e, false, fmt.Errorf("decode cached result: %w", err)
	}
	return e, true, nil
}

func (r *Redis) Publish(ctx context.Context, e events.DrawSettled) error {
	b, err := json.Marshal(Update{Modality: e.Modality, Payload: e})
	if err != nil {
		return err
	}
	return r.Client.Publish(ctx, r.Channel, b).Err()
}
