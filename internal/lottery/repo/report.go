package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
)

// LoadDashboard agrega os indicadores administrativos em poucas consultas
func LoadDashboard(ctx context.Context, exec sqlx.ExtContext) (domain.Dashboard, error) {
	var d domain.Dashboard

	var bets struct {
		Count  int64 `db:"bet_count"`
		Staked int64 `db:"staked"`
	}
	if err := sqlx.GetContext(ctx, exec, &bets, `
		SELECT COUNT(*) AS bet_count, COALESCE(SUM(stake), 0) AS staked FROM bets`); err != nil {
		return d, err
	}

	var awarded int64
	if err := sqlx.GetContext(ctx, exec, &awarded, `
		SELECT COALESCE(SUM(awarded), 0) FROM settlement_outcomes`); err != nil {
		return d, err
	}

	if err := sqlx.GetContext(ctx, exec, &d.DrawsConducted, exec.Rebind(`
		SELECT COUNT(*) FROM draws WHERE status = ?`), string(domain.DrawSettled)); err != nil {
		return d, err
	}

	if err := sqlx.GetContext(ctx, exec, &d.Accounts, `SELECT COUNT(*) FROM accounts`); err != nil {
		return d, err
	}

	var perModality []struct {
		Modality string `db:"modality"`
		Winners  int64  `db:"winners"`
	}
	if err := sqlx.SelectContext(ctx, exec, &perModality, `
		SELECT d.modality AS modality, COUNT(*) AS winners
		FROM settlement_outcomes o
		JOIN draws d ON d.id = o.draw_id
		WHERE o.is_winner = TRUE
		GROUP BY d.modality`); err != nil {
		return d, err
	}

	d.TotalBets = bets.Count
	d.TotalStaked = bets.Staked
	d.TotalAwarded = awarded
	d.HouseResult = bets.Staked - awarded
	d.WinnersByModality = make(map[domain.Modality]int64, len(domain.Modalities))
	for _, m := range domain.Modalities {
		d.WinnersByModality[m] = 0
	}
	for _, row := range perModality {
		d.WinnersByModality[domain.Modality(row.Modality)] = row.Winners
	}
	return d, nil
}
