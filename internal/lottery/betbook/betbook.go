package betbook

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
	"github.com/radieske/lottery-points-platform/internal/lottery/ledger"
	"github.com/radieske/lottery-points-platform/internal/lottery/outbox"
	"github.com/radieske/lottery-points-platform/internal/lottery/repo"
	"github.com/radieske/lottery-points-platform/internal/lottery/rules"
	"github.com/radieske/lottery-points-platform/internal/shared/metrics"
	"github.com/radieske/lottery-points-platform/pkg/contracts/events"
	"github.com/radieske/lottery-points-platform/pkg/contracts/topics"
)

// PlaceBetInput é uma aposta ainda não validada. Hour é a hora local do
// jogo no momento do pedido.
type PlaceBetInput struct {
	AccountID string
	Modality  domain.Modality
	Number    string
	Stake     int64
	Date      string
	Hour      int
}

// Book admite apostas e guarda o teto de exposição por número
type Book struct {
	store *repo.Store
	rules rules.Rules
	log   *zap.Logger
	now   func() time.Time
}

type Option func(*Book)

// WithClock troca o relógio usado por PlaceBetNow
func WithClock(now func() time.Time) Option { return func(b *Book) { b.now = now } }

func New(store *repo.Store, r rules.Rules, log *zap.Logger, opts ...Option) *Book {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Book{store: store, rules: r, log: log, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PlaceBetNow aposta para o dia corrente, com data e hora do relógio do jogo
func (b *Book) PlaceBetNow(ctx context.Context, accountID string, m domain.Modality, number string, stake int64) (domain.Bet, error) {
	date, hour := b.rules.Clock(b.now())
	return b.PlaceBet(ctx, PlaceBetInput{
		AccountID: accountID,
		Modality:  m,
		Number:    number,
		Stake:     stake,
		Date:      date,
		Hour:      hour,
	})
}

// PlaceBet valida e admite a aposta. Débito, contador de exposição, aposta
// e evento são gravados na mesma transação.
func (b *Book) PlaceBet(ctx context.Context, in PlaceBetInput) (domain.Bet, error) {
	started := time.Now()
	bet, err := b.placeBet(ctx, in)
	metrics.RecordBet(domain.Code(err), string(in.Modality), started)
	if err != nil {
		if domain.IsBusinessError(err) {
			b.log.Info("bet rejected",
				zap.String("account", in.AccountID),
				zap.String("modality", string(in.Modality)),
				zap.String("number", in.Number),
				zap.Int64("stake", in.Stake),
				zap.String("reason", domain.Code(err)))
		}
		return domain.Bet{}, err
	}
	b.log.Info("bet placed",
		zap.String("bet_id", bet.ID),
		zap.String("account", bet.AccountID),
		zap.String("modality", string(bet.Modality)),
		zap.String("number", bet.Number),
		zap.Int64("stake", bet.Stake),
		zap.String("date", bet.Date))
	return bet, nil
}

func (b *Book) placeBet(ctx context.Context, in PlaceBetInput) (domain.Bet, error) {
	// janela primeiro: fora do horário a rejeição independe do resto
	if !b.rules.InWindow(in.Hour) {
		return domain.Bet{}, domain.ErrOutsideBettingWindow
	}
	mr, err := b.rules.Modality(in.Modality)
	if err != nil {
		return domain.Bet{}, err
	}
	if err := b.rules.ValidateNumber(in.Modality, in.Number); err != nil {
		return domain.Bet{}, err
	}
	if in.Stake <= 0 {
		return domain.Bet{}, &domain.ValidationError{Field: "stake", Reason: "must be positive"}
	}
	date, err := domain.ParseDate(in.Date)
	if err != nil {
		return domain.Bet{}, err
	}
	if strings.TrimSpace(in.AccountID) == "" {
		return domain.Bet{}, &domain.ValidationError{Field: "account", Reason: "required"}
	}

	bet := domain.Bet{
		ID:        uuid.NewString(),
		AccountID: in.AccountID,
		Modality:  in.Modality,
		Number:    in.Number,
		Stake:     in.Stake,
		Date:      date,
	}

	// ordem de locks: dia -> conta -> exposição, a mesma do sorteio
	err = b.store.InTx(ctx, "place_bet", func(ctx context.Context, tx *sqlx.Tx) error {
		closed, err := repo.ShareBettingDay(ctx, tx, bet.Modality, bet.Date)
		if err != nil {
			return err
		}
		if closed {
			return domain.ErrBettingClosed
		}

		balance, err := repo.LockAccount(ctx, tx, bet.AccountID)
		if err != nil {
			return err
		}
		if bet.Stake > balance {
			return domain.ErrInsufficientFunds
		}

		staked, err := repo.LockExposure(ctx, tx, bet.Modality, bet.Number, bet.Date)
		if err != nil {
			return err
		}
		if staked+bet.Stake > mr.Cap {
			return &domain.CapExceededError{
				Modality:  bet.Modality,
				Number:    bet.Number,
				Date:      bet.Date,
				Cap:       mr.Cap,
				Staked:    staked,
				Available: max(0, mr.Cap-staked),
			}
		}

		if _, err := ledger.Debit(ctx, tx, bet.AccountID, bet.Stake, domain.ReasonBet, bet.ID); err != nil {
			return err
		}
		if err := repo.AddExposure(ctx, tx, bet.Modality, bet.Number, bet.Date, bet.Stake); err != nil {
			return err
		}
		bet.CreatedAt = time.Now()
		if err := repo.InsertBet(ctx, tx, &bet); err != nil {
			return err
		}
		return outbox.Enqueue(ctx, tx, topics.BetPlaced, bet.ID, events.BetPlaced{
			BetID:     bet.ID,
			AccountID: bet.AccountID,
			Modality:  string(bet.Modality),
			Number:    bet.Number,
			Stake:     bet.Stake,
			BetDate:   bet.Date,
			TsUnixMs:  bet.CreatedAt.UnixMilli(),
		})
	})
	if err != nil {
		return domain.Bet{}, err
	}
	return bet, nil
}

// AvailableCapacity é leitura sem lock: pode ficar defasada por apostas
// concorrentes, mas nunca serve de base para admissão.
func (b *Book) AvailableCapacity(ctx context.Context, m domain.Modality, number, date string) (domain.Capacity, error) {
	mr, err := b.rules.Modality(m)
	if err != nil {
		return domain.Capacity{}, err
	}
	if err := b.rules.ValidateNumber(m, number); err != nil {
		return domain.Capacity{}, err
	}
	if date, err = domain.ParseDate(date); err != nil {
		return domain.Capacity{}, err
	}

	var staked int64
	err = b.store.View(ctx, "available_capacity", func(ctx context.Context, q sqlx.ExtContext) error {
		var err error
		staked, err = repo.GetExposure(ctx, q, m, number, date)
		return err
	})
	if err != nil {
		return domain.Capacity{}, err
	}
	return domain.Capacity{
		Modality:  m,
		Number:    number,
		Date:      date,
		Staked:    staked,
		Available: max(0, mr.Cap-staked),
		Cap:       mr.Cap,
	}, nil
}

// AccountBets lista as apostas da conta com o resultado, se já houver.
// date vazio traz todas.
func (b *Book) AccountBets(ctx context.Context, accountID, date string) ([]domain.AccountBet, error) {
	if date != "" {
		var err error
		if date, err = domain.ParseDate(date); err != nil {
			return nil, err
		}
	}
	var out []domain.AccountBet
	err := b.store.View(ctx, "account_bets", func(ctx context.Context, q sqlx.ExtContext) error {
		var err error
		out, err = repo.ListAccountBets(ctx, q, accountID, date)
		return err
	})
	return out, err
}
