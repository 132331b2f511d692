package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/radieske/lottery-points-platform/internal/lottery/repo"
)

// Enqueue serializa o evento e grava no outbox dentro da transação do
// chamador. Se a transação reverter, o evento some junto.
func Enqueue(ctx context.Context, tx sqlx.ExtContext, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	if _, err := repo.InsertOutbox(ctx, tx, topic, key, payload); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}
