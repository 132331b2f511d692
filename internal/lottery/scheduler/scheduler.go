package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
	"github.com/radieske/lottery-points-platform/internal/lottery/rules"
)

// Conductor é o lado do motor de sorteios usado pelo agendador
type Conductor interface {
	ConductDraw(ctx context.Context, m domain.Modality, date string) (domain.DrawResult, error)
	TodayStatus(ctx context.Context, date string) ([]domain.ModalityStatus, error)
}

const DefaultInterval = time.Minute

// Scheduler faz o sorteio diário de cada modalidade depois da hora do sorteio
type Scheduler struct {
	conductor Conductor
	rules     rules.Rules
	log       *zap.Logger
	interval  time.Duration
	now       func() time.Time
}

func New(c Conductor, r rules.Rules, log *zap.Logger, interval time.Duration) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{conductor: c, rules: r, log: log, interval: interval, now: time.Now}
}

// Start roda um ciclo imediato e depois um por intervalo, até ctx acabar
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.run(ctx)
	for {
		select {
		case <-ticker.C:
			s.run(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	if _, err := s.Tick(ctx); err != nil {
		s.log.Warn("scheduler: tick failed", zap.Error(err))
	}
}

// Tick sorteia as modalidades ainda sem resultado no dia, se já passou
// da hora do sorteio. Devolve as modalidades sorteadas neste ciclo.
func (s *Scheduler) Tick(ctx context.Context) (done []domain.Modality, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in scheduler tick: %v", r)
		}
	}()

	date, hour := s.rules.Clock(s.now())
	if hour < s.rules.DrawHour() {
		return nil, nil
	}

	status, err := s.conductor.TodayStatus(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load draw status: %w", err)
	}
	for _, st := range status {
		if st.Drawn {
			continue
		}
		res, err := s.conductor.ConductDraw(ctx, st.Modality, date)
		switch {
		case errors.Is(err, domain.ErrDuplicateDraw):
			// outra réplica chegou antes
			continue
		case err != nil:
			s.log.Error("scheduler: draw failed",
				zap.String("modality", string(st.Modality)),
				zap.String("date", date),
				zap.Error(err))
			continue
		}
		s.log.Info("scheduler: draw conducted",
			zap.String("modality", string(st.Modality)),
			zap.String("date", date),
			zap.String("winning_number", res.Draw.WinningNumber),
			zap.Int("winners", res.WinnerCount))
		done = append(done, st.Modality)
	}
	return done, nil
}
