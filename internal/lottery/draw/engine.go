package draw

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
	"github.com/radieske/lottery-points-platform/internal/lottery/repo"
	"github.com/radieske/lottery-points-platform/internal/lottery/rules"
	"github.com/radieske/lottery-points-platform/internal/lottery/settlement"
	"github.com/radieske/lottery-points-platform/internal/shared/metrics"
	"github.com/radieske/lottery-points-platform/pkg/contracts/events"
)

// Notifier recebe o resultado após o commit (cache e broadcast).
// Falhas são só logadas: o sorteio já está gravado.
type Notifier interface {
	DrawSettled(ctx context.Context, e events.DrawSettled) error
}

// Engine cria sorteios e dispara a liquidação na mesma transação
type Engine struct {
	store    *repo.Store
	rules    rules.Rules
	settler  *settlement.Processor
	picker   Picker
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

type Option func(*Engine)

func WithPicker(p Picker) Option     { return func(e *Engine) { e.picker = p } }
func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store *repo.Store, r rules.Rules, settler *settlement.Processor, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		store:   store,
		rules:   r,
		settler: settler,
		picker:  RandomPicker{},
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ConductDraw sorteia o número de (modalidade, data) e liquida
func (e *Engine) ConductDraw(ctx context.Context, m domain.Modality, date string) (domain.DrawResult, error) {
	mr, err := e.rules.Modality(m)
	if err != nil {
		return domain.DrawResult{}, err
	}
	return e.conduct(ctx, m, date, e.picker.Pick(mr))
}

// AcceptDraw registra um número vencedor informado externamente
func (e *Engine) AcceptDraw(ctx context.Context, m domain.Modality, date, winningNumber string) (domain.DrawResult, error) {
	if err := e.rules.ValidateNumber(m, winningNumber); err != nil {
		return domain.DrawResult{}, err
	}
	return e.conduct(ctx, m, date, winningNumber)
}

func (e *Engine) conduct(ctx context.Context, m domain.Modality, date, number string) (domain.DrawResult, error) {
	started := time.Now()
	res, err := e.createAndSettle(ctx, m, date, number)
	metrics.RecordDraw(domain.Code(err), string(m), res.Draw.TotalAwarded, started)
	if err != nil {
		if domain.IsBusinessError(err) {
			e.log.Info("draw rejected",
				zap.String("modality", string(m)),
				zap.String("date", date),
				zap.String("reason", domain.Code(err)))
		}
		return domain.DrawResult{}, err
	}
	e.notify(ctx, res.Draw)
	return res, nil
}

func (e *Engine) createAndSettle(ctx context.Context, m domain.Modality, date, number string) (domain.DrawResult, error) {
	if _, err := e.rules.Modality(m); err != nil {
		return domain.DrawResult{}, err
	}
	date, err := domain.ParseDate(date)
	if err != nil {
		return domain.DrawResult{}, err
	}

	d := domain.Draw{Modality: m, Date: date, WinningNumber: number}
	err = e.store.InTx(ctx, "conduct_draw", func(ctx context.Context, tx *sqlx.Tx) error {
		// espera as apostas em andamento e fecha o dia antes de ler as apostas
		if _, err := repo.LockBettingDay(ctx, tx, m, date); err != nil {
			return err
		}
		if _, err := repo.GetDrawBySlot(ctx, tx, m, date); err == nil {
			return domain.ErrDuplicateDraw
		} else if !errors.Is(err, domain.ErrDrawNotFound) {
			return err
		}
		if err := repo.CloseBettingDay(ctx, tx, m, date); err != nil {
			return err
		}

		d.ID, d.Status, d.CreatedAt = "", domain.DrawPending, time.Time{}
		if err := repo.InsertDraw(ctx, tx, &d); err != nil {
			return err
		}
		return e.settler.Settle(ctx, tx, &d)
	})
	if err != nil {
		return domain.DrawResult{}, err
	}
	return domain.DrawResult{Draw: d, WinnerCount: d.WinnerCount}, nil
}

// Settle retoma um sorteio que ficou PENDING. Sorteio já liquidado
// devolve ErrAlreadySettled sem efeito algum.
func (e *Engine) Settle(ctx context.Context, drawID string) (domain.DrawResult, error) {
	var d domain.Draw
	err := e.store.InTx(ctx, "settle_draw", func(ctx context.Context, tx *sqlx.Tx) error {
		slot, err := repo.GetDraw(ctx, tx, drawID)
		if err != nil {
			return err
		}
		if _, err := repo.LockBettingDay(ctx, tx, slot.Modality, slot.Date); err != nil {
			return err
		}
		if d, err = repo.LockDraw(ctx, tx, drawID); err != nil {
			return err
		}
		if d.Status != domain.DrawPending {
			return domain.ErrAlreadySettled
		}
		if err := repo.CloseBettingDay(ctx, tx, d.Modality, d.Date); err != nil {
			return err
		}
		return e.settler.Settle(ctx, tx, &d)
	})
	if err != nil {
		return domain.DrawResult{}, err
	}
	e.notify(ctx, d)
	return domain.DrawResult{Draw: d, WinnerCount: d.WinnerCount}, nil
}

func (e *Engine) notify(ctx context.Context, d domain.Draw) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.DrawSettled(ctx, settlement.Event(d)); err != nil {
		e.log.Warn("draw notification failed", zap.String("draw_id", d.ID), zap.Error(err))
	}
}

// Results lista sorteios liquidados; modalidade e data vazias não filtram
func (e *Engine) Results(ctx context.Context, m domain.Modality, date string) ([]domain.ResultSummary, error) {
	if m != "" {
		if _, err := e.rules.Modality(m); err != nil {
			return nil, err
		}
	}
	if date != "" {
		var err error
		if date, err = domain.ParseDate(date); err != nil {
			return nil, err
		}
	}
	var out []domain.ResultSummary
	err := e.store.View(ctx, "results", func(ctx context.Context, q sqlx.ExtContext) error {
		var err error
		out, err = repo.ListResults(ctx, q, m, date)
		return err
	})
	return out, err
}

// DrawDetail devolve o sorteio e seus vencedores
func (e *Engine) DrawDetail(ctx context.Context, drawID string) (domain.DrawDetail, error) {
	var detail domain.DrawDetail
	err := e.store.View(ctx, "draw_detail", func(ctx context.Context, q sqlx.ExtContext) error {
		d, err := repo.GetDraw(ctx, q, drawID)
		if err != nil {
			return err
		}
		winners, err := repo.ListWinners(ctx, q, drawID)
		if err != nil {
			return err
		}
		detail = domain.DrawDetail{Draw: d, Winners: winners}
		return nil
	})
	return detail, err
}

// TodayStatus informa, por modalidade, se o sorteio da data já saiu.
// date vazio usa o dia corrente no fuso do jogo.
func (e *Engine) TodayStatus(ctx context.Context, date string) ([]domain.ModalityStatus, error) {
	if date == "" {
		date = e.Today()
	} else {
		var err error
		if date, err = domain.ParseDate(date); err != nil {
			return nil, err
		}
	}
	out := make([]domain.ModalityStatus, 0, len(domain.Modalities))
	err := e.store.View(ctx, "today_status", func(ctx context.Context, q sqlx.ExtContext) error {
		for _, m := range domain.Modalities {
			st := domain.ModalityStatus{Modality: m}
			d, err := repo.GetDrawBySlot(ctx, q, m, date)
			switch {
			case errors.Is(err, domain.ErrDrawNotFound):
			case err != nil:
				return err
			case d.Status == domain.DrawSettled:
				st.Drawn = true
				st.WinningNumber = d.WinningNumber
			}
			out = append(out, st)
		}
		return nil
	})
	return out, err
}

// Today é a data corrente no fuso do jogo
func (e *Engine) Today() string {
	date, _ := e.rules.Clock(e.now())
	return date
}
