package outbox

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/repo"
	"github.com/radieske/lottery-points-platform/internal/shared/metrics"
)

// Publisher é o lado Kafka do relay (kafka.Writer satisfaz)
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

const (
	DefaultInterval = time.Second
	DefaultBatch    = 100
	MaxRetry        = 10
)

// Relay publica o outbox pendente em ordem de criação
type Relay struct {
	db       *sqlx.DB
	pub      Publisher
	log      *zap.Logger
	interval time.Duration
	batch    int
}

func NewRelay(db *sqlx.DB, pub Publisher, log *zap.Logger, interval time.Duration) *Relay {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{db: db, pub: pub, log: log, interval: interval, batch: DefaultBatch}
}

// Run repete Flush a cada intervalo até o ctx ser cancelado
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn("outbox: flush failed", zap.Error(err))
			}
		}
	}
}

// Flush faz uma passada e devolve quantas mensagens foram enviadas
func (r *Relay) Flush(ctx context.Context) (int, error) {
	listCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	rows, err := repo.ListPendingOutbox(listCtx, r.db, MaxRetry, r.batch)
	cancel()
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, row := range rows {
		msg := kafka.Message{
			Topic: row.Topic,
			Key:   []byte(row.BizKey),
			Value: []byte(row.Payload),
			Time:  time.UnixMilli(row.CreatedAt),
		}
		if err := r.pub.WriteMessages(ctx, msg); err != nil {
			metrics.RecordOutbox(row.Topic, "fail")
			r.log.Warn("outbox: publish failed",
				zap.String("id", row.ID),
				zap.String("topic", row.Topic),
				zap.Int("retry", row.RetryCount+1),
				zap.Error(err))
			if err := repo.MarkOutboxFailed(ctx, r.db, row.ID, err.Error()); err != nil {
				r.log.Warn("outbox: mark failed", zap.String("id", row.ID), zap.Error(err))
			}
			// mantém a ordem: o restante espera a próxima passada
			break
		}
		metrics.RecordOutbox(row.Topic, "success")
		if err := repo.MarkOutboxSent(ctx, r.db, row.ID); err != nil {
			r.log.Warn("outbox: mark sent failed", zap.String("id", row.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}
