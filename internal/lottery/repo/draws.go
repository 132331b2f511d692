package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
)

const drawColumns = `id, modality, draw_date, winning_number, status, bet_count, winner_count, total_awarded, created_at, settled_at`

type drawRow struct {
	ID            string        `db:"id"`
	Modality      string        `db:"modality"`
	Date          string        `db:"draw_date"`
	WinningNumber string        `db:"winning_number"`
	Status        string        `db:"status"`
	BetCount      int           `db:"bet_count"`
	WinnerCount   int           `db:"winner_count"`
	TotalAwarded  int64         `db:"total_awarded"`
	CreatedAt     int64         `db:"created_at"`
	SettledAt     sql.NullInt64 `db:"settled_at"`
}

func (r drawRow) toDomain() domain.Draw {
	d := domain.Draw{
		ID:            r.ID,
		Modality:      domain.Modality(r.Modality),
		Date:          r.Date,
		WinningNumber: r.WinningNumber,
		Status:        domain.DrawStatus(r.Status),
		BetCount:      r.BetCount,
		WinnerCount:   r.WinnerCount,
		TotalAwarded:  r.TotalAwarded,
		CreatedAt:     fromMillis(r.CreatedAt),
	}
	if r.SettledAt.Valid {
		t := fromMillis(r.SettledAt.Int64)
		d.SettledAt = &t
	}
	return d
}

// InsertDraw grava o sorteio PENDING. A unicidade de (modalidade, data)
// vira ErrDuplicateDraw.
func InsertDraw(ctx context.Context, exec sqlx.ExtContext, d *domain.Draw) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = fromMillis(nowMillis())
	}
	if d.Status == "" {
		d.Status = domain.DrawPending
	}
	_, err := exec.ExecContext(ctx, exec.Rebind(`
		INSERT INTO draws (id, modality, draw_date, winning_number, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		d.ID, string(d.Modality), d.Date, d.WinningNumber, string(d.Status), d.CreatedAt.UnixMilli())
	if isUniqueViolation(err) {
		return domain.ErrDuplicateDraw
	}
	return err
}

func GetDraw(ctx context.Context, exec sqlx.ExtContext, id string) (domain.Draw, error) {
	return getDraw(ctx, exec, `WHERE id = ?`, lockNone, id)
}

// LockDraw lê o sorteio travando a linha
func LockDraw(ctx context.Context, exec sqlx.ExtContext, id string) (domain.Draw, error) {
	return getDraw(ctx, exec, `WHERE id = ?`, lockUpdate, id)
}

func GetDrawBySlot(ctx context.Context, exec sqlx.ExtContext, m domain.Modality, date string) (domain.Draw, error) {
	return getDraw(ctx, exec, `WHERE modality = ? AND draw_date = ?`, lockNone, string(m), date)
}

func getDraw(ctx context.Context, exec sqlx.ExtContext, where string, mode lockMode, args ...any) (domain.Draw, error) {
	var row drawRow
	err := sqlx.GetContext(ctx, exec, &row,
		exec.Rebind(`SELECT `+drawColumns+` FROM draws `+where+lockClause(exec, mode)), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Draw{}, domain.ErrDrawNotFound
	}
	if err != nil {
		return domain.Draw{}, err
	}
	return row.toDomain(), nil
}

// MarkDrawSettled fecha o sorteio com as estatísticas da liquidação
func MarkDrawSettled(ctx context.Context, exec sqlx.ExtContext, d *domain.Draw, settledAt time.Time) error {
	res, err := exec.ExecContext(ctx, exec.Rebind(`
		UPDATE draws
		SET status = ?, bet_count = ?, winner_count = ?, total_awarded = ?, settled_at = ?
		WHERE id = ? AND status = ?`),
		string(domain.DrawSettled), d.BetCount, d.WinnerCount, d.TotalAwarded, settledAt.UnixMilli(),
		d.ID, string(domain.DrawPending))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAlreadySettled
	}
	d.Status = domain.DrawSettled
	d.SettledAt = &settledAt
	return nil
}

// InsertOutcome grava o resultado de uma aposta. bet_id é único: uma
// segunda liquidação da mesma aposta vira ErrAlreadySettled.
func InsertOutcome(ctx context.Context, exec sqlx.ExtContext, o *domain.SettlementOutcome) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = fromMillis(nowMillis())
	}
	_, err := exec.ExecContext(ctx, exec.Rebind(`
		INSERT INTO settlement_outcomes (id, bet_id, draw_id, is_winner, awarded, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		o.ID, o.BetID, o.DrawID, o.IsWinner, o.Awarded, o.CreatedAt.UnixMilli())
	if isUniqueViolation(err) {
		return domain.ErrAlreadySettled
	}
	return err
}

func CountOutcomes(ctx context.Context, exec sqlx.ExtContext, drawID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, exec, &n, exec.Rebind(`
		SELECT COUNT(*) FROM settlement_outcomes WHERE draw_id = ?`), drawID)
	return n, err
}

type resultRow struct {
	drawRow
	Winners int   `db:"winners"`
	Awarded int64 `db:"awarded"`
}

// ListResults devolve sorteios liquidados com contagem de vencedores e
// prêmio total, mais recentes primeiro. Filtros vazios não restringem.
func ListResults(ctx context.Context, exec sqlx.ExtContext, m domain.Modality, date string) ([]domain.ResultSummary, error) {
	q := `
		SELECT d.id, d.modality, d.draw_date, d.winning_number, d.status, d.bet_count,
		       d.winner_count, d.total_awarded, d.created_at, d.settled_at,
		       COALESCE(SUM(CASE WHEN o.is_winner THEN 1 ELSE 0 END), 0) AS winners,
		       COALESCE(SUM(o.awarded), 0) AS awarded
		FROM draws d
		LEFT JOIN settlement_outcomes o ON o.draw_id = d.id
		WHERE d.status = ?`
	args := []any{string(domain.DrawSettled)}
	if m != "" {
		q += ` AND d.modality = ?`
		args = append(args, string(m))
	}
	if date != "" {
		q += ` AND d.draw_date = ?`
		args = append(args, date)
	}
	q += `
		GROUP BY d.id, d.modality, d.draw_date, d.winning_number, d.status, d.bet_count,
		         d.winner_count, d.total_awarded, d.created_at, d.settled_at
		ORDER BY d.draw_date DESC, d.modality`

	var rows []resultRow
	if err := sqlx.SelectContext(ctx, exec, &rows, exec.Rebind(q), args...); err != nil {
		return nil, err
	}
	out := make([]domain.ResultSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ResultSummary{
			Draw:         r.drawRow.toDomain(),
			WinnerCount:  r.Winners,
			TotalAwarded: r.Awarded,
		})
	}
	return out, nil
}

type winnerRow struct {
	BetID     string `db:"bet_id"`
	AccountID string `db:"account_id"`
	Number    string `db:"number"`
	Stake     int64  `db:"stake"`
	Awarded   int64  `db:"awarded"`
}

// ListWinners devolve as apostas premiadas do sorteio, maior prêmio primeiro
func ListWinners(ctx context.Context, exec sqlx.ExtContext, drawID string) ([]domain.Winner, error) {
	var rows []winnerRow
	err := sqlx.SelectContext(ctx, exec, &rows, exec.Rebind(`
		SELECT o.bet_id, b.account_id, b.number, b.stake, o.awarded
		FROM settlement_outcomes o
		JOIN bets b ON b.id = o.bet_id
		WHERE o.draw_id = ? AND o.is_winner = TRUE
		ORDER BY o.awarded DESC, o.bet_id`), drawID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Winner, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Winner(r))
	}
	return out, nil
}
