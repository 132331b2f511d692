package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
)

// EnsureBettingDay cria a linha de lock do dia para a modalidade
func EnsureBettingDay(ctx context.Context, exec sqlx.ExtContext, m domain.Modality, date string) error {
	_, err := exec.ExecContext(ctx, exec.Rebind(`
		INSERT INTO betting_days (modality, bet_date, closed)
		VALUES (?, ?, FALSE)
		ON CONFLICT (modality, bet_date) DO NOTHING`), string(m), date)
	return err
}

// ShareBettingDay trava o dia em modo compartilhado e informa se já fechou.
// Apostas concorrentes não se bloqueiam; o sorteio espera por elas.
func ShareBettingDay(ctx context.Context, exec sqlx.ExtContext, m domain.Modality, date string) (bool, error) {
	return lockBettingDay(ctx, exec, m, date, lockShare)
}

// LockBettingDay trava o dia exclusivamente (usado pelo sorteio)
func LockBettingDay(ctx context.Context, exec sqlx.ExtContext, m domain.Modality, date string) (bool, error) {
	return lockBettingDay(ctx, exec, m, date, lockUpdate)
}

func lockBettingDay(ctx context.Context, exec sqlx.ExtContext, m domain.Modality, date string, mode lockMode) (bool, error) {
	if err := EnsureBettingDay(ctx, exec, m, date); err != nil {
		return false, err
	}
	var closed bool
	err := sqlx.GetContext(ctx, exec, &closed, exec.Rebind(`
		SELECT closed FROM betting_days WHERE modality = ? AND bet_date = ?`+lockClause(exec, mode)),
		string(m), date)
	return closed, err
}

func CloseBettingDay(ctx context.Context, exec sqlx.ExtContext, m domain.Modality, date string) error {
	_, err := exec.ExecContext(ctx, exec.Rebind(`
		UPDATE betting_days SET closed = TRUE WHERE modality = ? AND bet_date = ?`), string(m), date)
	return err
}

// LockExposure devolve o total apostado no número, travando o contador
func LockExposure(ctx context.Context, exec sqlx.ExtContext, m domain.Modality, number, date string) (int64, error) {
	_, err := exec.ExecContext(ctx, exec.Rebind(`
		INSERT INTO exposures (modality, number, bet_date, staked)
		VALUES (?, ?, ?, 0)
		ON CONFLICT (modality, number, bet_date) DO NOTHING`), string(m), number, date)
	if err != nil {
		return 0, err
	}
	var staked int64
	err = sqlx.GetContext(ctx, exec, &staked, exec.Rebind(`
		SELECT staked FROM exposures WHERE modality = ? AND number = ? AND bet_date = ?`+lockClause(exec, lockUpdate)),
		string(m), number, date)
	return staked, err
}

func AddExposure(ctx context.Context, exec sqlx.ExtContext, m domain.Modality, number, date string, stake int64) error {
	_, err := exec.ExecContext(ctx, exec.Rebind(`
		UPDATE exposures SET staked = staked + ?
		WHERE modality = ? AND number = ? AND bet_date = ?`), stake, string(m), number, date)
	return err
}

// GetExposure é a leitura sem lock usada na consulta de capacidade
func GetExposure(ctx context.Context, exec sqlx.ExtContext, m domain.Modality, number, date string) (int64, error) {
	var staked int64
	err := sqlx.GetContext(ctx, exec, &staked, exec.Rebind(`
		SELECT staked FROM exposures WHERE modality = ? AND number = ? AND bet_date = ?`),
		string(m), number, date)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return staked, err
}

// SumStakes recalcula a exposição a partir das apostas, para conferência
func SumStakes(ctx context.Context, exec sqlx.ExtContext, m domain.Modality, number, date string) (int64, error) {
	var total int64
	err := sqlx.GetContext(ctx, exec, &total, exec.Rebind(`
		SELECT COALESCE(SUM(stake), 0) FROM bets
		WHERE modality = ? AND number = ? AND bet_date = ?`), string(m), number, date)
	return total, err
}

type betRow struct {
	ID        string `db:"id"`
	AccountID string `db:"account_id"`
	Modality  string `db:"modality"`
	Number    string `db:"number"`
	Stake     int64  `db:"stake"`
	Date      string `db:"bet_date"`
	CreatedAt int64  `db:"created_at"`
}

func (r betRow) toDomain() domain.Bet {
	return domain.Bet{
		ID:        r.ID,
		AccountID: r.AccountID,
		Modality:  domain.Modality(r.Modality),
		Number:    r.Number,
		Stake:     r.Stake,
		Date:      r.Date,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

func InsertBet(ctx context.Context, exec sqlx.ExtContext, b *domain.Bet) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = fromMillis(nowMillis())
	}
	_, err := exec.ExecContext(ctx, exec.Rebind(`
		INSERT INTO bets (id, account_id, modality, number, stake, bet_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		b.ID, b.AccountID, string(b.Modality), b.Number, b.Stake, b.Date, b.CreatedAt.UnixMilli())
	return err
}

// ListSlotBets devolve as apostas de (modalidade, data) em ordem de chegada
func ListSlotBets(ctx context.Context, exec sqlx.ExtContext, m domain.Modality, date string) ([]domain.Bet, error) {
	var rows []betRow
	err := sqlx.SelectContext(ctx, exec, &rows, exec.Rebind(`
		SELECT id, account_id, modality, number, stake, bet_date, created_at
		FROM bets
		WHERE modality = ? AND bet_date = ?
		ORDER BY created_at, id`), string(m), date)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Bet, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

type accountBetRow struct {
	betRow
	WinningNumber sql.NullString `db:"winning_number"`
	DrawStatus    sql.NullString `db:"draw_status"`
	IsWinner      sql.NullBool   `db:"is_winner"`
	Awarded       sql.NullInt64  `db:"awarded"`
}

// ListAccountBets devolve as apostas da conta com o resultado, se houver.
// date vazio lista todas as datas.
func ListAccountBets(ctx context.Context, exec sqlx.ExtContext, accountID, date string) ([]domain.AccountBet, error) {
	q := `
		SELECT b.id, b.account_id, b.modality, b.number, b.stake, b.bet_date, b.created_at,
		       d.winning_number, d.status AS draw_status, o.is_winner, o.awarded
		FROM bets b
		LEFT JOIN draws d ON d.modality = b.modality AND d.draw_date = b.bet_date
		LEFT JOIN settlement_outcomes o ON o.bet_id = b.id
		WHERE b.account_id = ?`
	args := []any{accountID}
	if date != "" {
		q += ` AND b.bet_date = ?`
		args = append(args, date)
	}
	q += ` ORDER BY b.created_at DESC, b.id DESC`

	var rows []accountBetRow
	if err := sqlx.SelectContext(ctx, exec, &rows, exec.Rebind(q), args...); err != nil {
		return nil, err
	}
	out := make([]domain.AccountBet, 0, len(rows))
	for _, r := range rows {
		ab := domain.AccountBet{Bet: r.betRow.toDomain()}
		if r.WinningNumber.Valid {
			ab.WinningNumber = r.WinningNumber.String
		}
		if r.IsWinner.Valid {
			ab.Settled = true
			ab.IsWinner = r.IsWinner.Bool
			ab.Awarded = r.Awarded.Int64
		}
		out = append(out, ab)
	}
	return out, nil
}
