package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Status do outbox
const (
	OutboxPending = 1
	OutboxSent    = 2
	OutboxFailed  = 3
)

// OutboxMessage é um evento aguardando publicação
type OutboxMessage struct {
	ID         string `db:"id"`
	Topic      string `db:"topic"`
	BizKey     string `db:"biz_key"`
	Payload    string `db:"payload"`
	Status     int    `db:"status"`
	RetryCount int    `db:"retry_count"`
	LastError  string `db:"last_error"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`
}

// InsertOutbox grava o evento na mesma transação da escrita de negócio
func InsertOutbox(ctx context.Context, exec sqlx.ExtContext, topic, bizKey string, payload []byte) (string, error) {
	id := uuid.NewString()
	now := nowMillis()
	_, err := exec.ExecContext(ctx, exec.Rebind(`
		INSERT INTO outbox (id, topic, biz_key, payload, status, retry_count, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, '', ?, ?)`),
		id, topic, bizKey, string(payload), OutboxPending, now, now)
	return id, err
}

// ListPendingOutbox devolve pendentes e falhos abaixo do limite de tentativas
func ListPendingOutbox(ctx context.Context, exec sqlx.ExtContext, maxRetry, limit int) ([]OutboxMessage, error) {
	var rows []OutboxMessage
	err := sqlx.SelectContext(ctx, exec, &rows, exec.Rebind(`
		SELECT id, topic, biz_key, payload, status, retry_count, last_error, created_at, updated_at
		FROM outbox
		WHERE status IN (?, ?) AND retry_count < ?
		ORDER BY created_at, id
		LIMIT ?`), OutboxPending, OutboxFailed, maxRetry, limit)
	return rows, err
}

func MarkOutboxSent(ctx context.Context, exec sqlx.ExtContext, id string) error {
	_, err := exec.ExecContext(ctx, exec.Rebind(`
		UPDATE outbox SET status = ?, updated_at = ? WHERE id = ?`), OutboxSent, nowMillis(), id)
	return err
}

func MarkOutboxFailed(ctx context.Context, exec sqlx.ExtContext, id, lastErr string) error {
	if len(lastErr) > 500 {
		lastErr = lastErr[:500]
	}
	_, err := exec.ExecContext(ctx, exec.Rebind(`
		UPDATE outbox SET status = ?, retry_count = retry_count + 1, last_error = ?, updated_at = ?
		WHERE id = ?`), OutboxFailed, lastErr, nowMillis(), id)
	return err
}

// CountOutboxByTopic é usado em testes e no painel operacional
func CountOutboxByTopic(ctx context.Context, exec sqlx.ExtContext, topic string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, exec, &n, exec.Rebind(`SELECT COUNT(*) FROM outbox WHERE topic = ?`), topic)
	return n, err
}
