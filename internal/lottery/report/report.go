package report

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
	"github.com/radieske/lottery-points-platform/internal/lottery/repo"
)

// Reporter monta os indicadores do painel administrativo
type Reporter struct {
	store *repo.Store
}

func New(store *repo.Store) *Reporter { return &Reporter{store: store} }

// Dashboard é uma foto sem lock; valores podem divergir por apostas em curso
func (r *Reporter) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	var d domain.Dashboard
	err := r.store.View(ctx, "dashboard", func(ctx context.Context, q sqlx.ExtContext) error {
		var err error
		d, err = repo.LoadDashboard(ctx, q)
		return err
	})
	return d, err
}
