package settlement

import (
	"context"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
	"github.com/radieske/lottery-points-platform/internal/lottery/ledger"
	"github.com/radieske/lottery-points-platform/internal/lottery/outbox"
	"github.com/radieske/lottery-points-platform/internal/lottery/repo"
	"github.com/radieske/lottery-points-platform/internal/lottery/rules"
	"github.com/radieske/lottery-points-platform/pkg/contracts/events"
	"github.com/radieske/lottery-points-platform/pkg/contracts/topics"
)

// Processor apura as apostas de um sorteio e credita os vencedores
type Processor struct {
	rules rules.Rules
	log   *zap.Logger
}

func NewProcessor(r rules.Rules, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{rules: r, log: log}
}

// Settle roda dentro da transação do chamador, que deve ter travado o
// sorteio e fechado as apostas do dia. Qualquer erro exige rollback: nada
// é parcial. Em sucesso o draw volta com status e estatísticas finais.
func (p *Processor) Settle(ctx context.Context, tx sqlx.ExtContext, d *domain.Draw) error {
	if d.Status != domain.DrawPending {
		return domain.ErrAlreadySettled
	}
	existing, err := repo.CountOutcomes(ctx, tx, d.ID)
	if err != nil {
		return err
	}
	if existing > 0 {
		return domain.ErrAlreadySettled
	}

	mr, err := p.rules.Modality(d.Modality)
	if err != nil {
		return err
	}
	bets, err := repo.ListSlotBets(ctx, tx, d.Modality, d.Date)
	if err != nil {
		return err
	}

	var winners []domain.Bet
	var total int64
	for _, b := range bets {
		o := domain.SettlementOutcome{BetID: b.ID, DrawID: d.ID}
		if b.Number == d.WinningNumber {
			o.IsWinner = true
			o.Awarded = mr.Payout(b.Stake)
			total += o.Awarded
			winners = append(winners, b)
		}
		if err := repo.InsertOutcome(ctx, tx, &o); err != nil {
			return err
		}
	}

	// créditos em ordem de conta: liquidações concorrentes de modalidades
	// diferentes travam contas na mesma sequência
	sort.Slice(winners, func(i, j int) bool {
		if winners[i].AccountID != winners[j].AccountID {
			return winners[i].AccountID < winners[j].AccountID
		}
		return winners[i].ID < winners[j].ID
	})
	for _, w := range winners {
		if _, err := ledger.Credit(ctx, tx, w.AccountID, mr.Payout(w.Stake), domain.ReasonPrize, w.ID); err != nil {
			return err
		}
	}

	d.BetCount = len(bets)
	d.WinnerCount = len(winners)
	d.TotalAwarded = total
	if err := repo.MarkDrawSettled(ctx, tx, d, time.Now()); err != nil {
		return err
	}

	if err := outbox.Enqueue(ctx, tx, topics.DrawSettled, d.ID, Event(*d)); err != nil {
		return err
	}

	p.log.Info("draw settled",
		zap.String("draw_id", d.ID),
		zap.String("modality", string(d.Modality)),
		zap.String("date", d.Date),
		zap.String("winning_number", d.WinningNumber),
		zap.Int("bets", d.BetCount),
		zap.Int("winners", d.WinnerCount),
		zap.Int64("awarded", d.TotalAwarded))
	return nil
}

// Event converte o sorteio liquidado no contrato publicado
func Event(d domain.Draw) events.DrawSettled {
	e := events.DrawSettled{
		DrawID:        d.ID,
		Modality:      string(d.Modality),
		DrawDate:      d.Date,
		WinningNumber: d.WinningNumber,
		BetCount:      d.BetCount,
		WinnerCount:   d.WinnerCount,
		TotalAwarded:  d.TotalAwarded,
	}
	if d.SettledAt != nil {
		e.SettledAt = *d.SettledAt
	}
	return e
}
