package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
	"github.com/radieske/lottery-points-platform/pkg/contracts/events"
)

// Reader é o consumidor Kafka (kafka.Reader satisfaz). O commit só
// acontece depois que a mensagem foi aplicada ou enviada para a DLQ.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Applier é o lado do Ledger que aplica pagamentos externos
type Applier interface {
	Deposit(ctx context.Context, accountID, amount, externalRef string) (domain.Payment, bool, error)
	Withdraw(ctx context.Context, accountID, amount, externalRef string) (domain.Payment, bool, error)
}

const (
	DefaultRetries = 3
	DefaultBackoff = 300 * time.Millisecond

	maxDLQBackoff = 10 * time.Second
)

// Processor consome notificações payment_settled e aplica no Ledger.
// Rejeições de regra vão direto para a DLQ; falhas de banco são
// repetidas com backoff linear antes da DLQ.
type Processor struct {
	Log    *zap.Logger
	Reader Reader
	Ledger Applier
	DLQ    Writer // opcional

	Retries int
	Backoff time.Duration

	OnResult func(kind, result string) // métricas
}

// Run inicia o loop de consumo até ctx ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.result("unknown", "read_error")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if err := p.Handle(ctx, m); err != nil {
			// sem commit e sem avançar: commitar uma mensagem posterior
			// moveria o offset por cima desta
			p.Log.Error("payment not handled", zap.Int64("offset", m.Offset), zap.Error(err))
			return err
		}
		if err := p.Reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			p.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

// Handle processa uma mensagem. Só devolve erro quando ctx termina antes
// de aplicar ou de mandar para a DLQ.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) error {
	var ev events.PaymentSettled
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		p.Log.Warn("invalid payment message", zap.Error(err))
		p.result("unknown", "decode_error")
		return p.deadLetter(ctx, events.PaymentSettled{ExternalRef: string(m.Key)}, "decode: "+err.Error())
	}

	err := p.applyWithRetry(ctx, ev)
	switch {
	case err == nil:
		return nil
	case domain.IsBusinessError(err):
		p.Log.Info("payment rejected",
			zap.String("ref", ev.ExternalRef),
			zap.String("account", ev.AccountID),
			zap.String("reason", domain.Code(err)))
		p.result(ev.Kind, domain.Code(err))
		return p.deadLetter(ctx, ev, err.Error())
	default:
		p.Log.Error("payment failed after retries", zap.String("ref", ev.ExternalRef), zap.Error(err))
		p.result(ev.Kind, "storage_error")
		return p.deadLetter(ctx, ev, err.Error())
	}
}

func (p *Processor) applyWithRetry(ctx context.Context, ev events.PaymentSettled) error {
	retries, backoff := p.retries(), p.backoff()

	err := p.apply(ctx, ev)
	for i := 0; i < retries && err != nil && !domain.IsBusinessError(err); i++ {
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(i+1) * backoff):
		}
		err = p.apply(ctx, ev)
	}
	return err
}

func (p *Processor) apply(ctx context.Context, ev events.PaymentSettled) error {
	var (
		applied bool
		err     error
	)
	switch domain.PaymentKind(ev.Kind) {
	case domain.PaymentDeposit:
		_, applied, err = p.Ledger.Deposit(ctx, ev.AccountID, ev.Amount, ev.ExternalRef)
	case domain.PaymentWithdrawal:
		_, applied, err = p.Ledger.Withdraw(ctx, ev.AccountID, ev.Amount, ev.ExternalRef)
	default:
		return &domain.ValidationError{Field: "kind", Reason: "unknown payment kind " + ev.Kind}
	}
	if err != nil {
		return err
	}
	if applied {
		p.result(ev.Kind, "success")
	} else {
		p.Log.Info("payment already applied", zap.String("ref", ev.ExternalRef))
		p.result(ev.Kind, "duplicate")
	}
	return nil
}

func (p *Processor) deadLetter(ctx context.Context, ev events.PaymentSettled, reason string) error {
	if p.DLQ == nil {
		return nil
	}
	b, err := json.Marshal(events.PaymentRejected{Payment: ev, Reason: reason, Ts: time.Now()})
	if err != nil {
		return err
	}
	msg := kafka.Message{Key: []byte(ev.ExternalRef), Value: b, Time: time.Now()}

	// a DLQ é o único destino da mensagem: insiste até conseguir ou ctx acabar
	backoff := p.backoff()
	for i := 1; ; i++ {
		err = p.DLQ.WriteMessages(ctx, msg)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return errors.Join(err, ctx.Err())
		}
		wait := time.Duration(i) * backoff
		if wait > maxDLQBackoff {
			wait = maxDLQBackoff
		}
		p.Log.Warn("dlq write failed, retrying",
			zap.String("ref", ev.ExternalRef), zap.Int("attempt", i), zap.Error(err))
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(wait):
		}
	}
}

func (p *Processor) retries() int {
	if p.Retries <= 0 {
		return DefaultRetries
	}
	return p.Retries
}

func (p *Processor) backoff() time.Duration {
	if p.Backoff <= 0 {
		return DefaultBackoff
	}
	return p.Backoff
}

func (p *Processor) result(kind, result string) {
	if p.OnResult != nil {
		p.OnResult(kind, result)
	}
}
