package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
)

type accountRow struct {
	ID        string `db:"id"`
	Balance   int64  `db:"balance"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r accountRow) toDomain() domain.Account {
	return domain.Account{
		ID:        r.ID,
		Balance:   r.Balance,
		CreatedAt: fromMillis(r.CreatedAt),
		UpdatedAt: fromMillis(r.UpdatedAt),
	}
}

// EnsureAccount cria a conta com saldo zero se ainda não existir
func EnsureAccount(ctx context.Context, exec sqlx.ExtContext, id string) error {
	now := nowMillis()
	_, err := exec.ExecContext(ctx, exec.Rebind(`
		INSERT INTO accounts (id, balance, created_at, updated_at)
		VALUES (?, 0, ?, ?)
		ON CONFLICT (id) DO NOTHING`), id, now, now)
	return err
}

func GetAccount(ctx context.Context, exec sqlx.ExtContext, id string) (domain.Account, error) {
	var row accountRow
	err := sqlx.GetContext(ctx, exec, &row, exec.Rebind(`
		SELECT id, balance, created_at, updated_at FROM accounts WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	return row.toDomain(), nil
}

// LockAccount lê o saldo travando a linha até o fim da transação
func LockAccount(ctx context.Context, exec sqlx.ExtContext, id string) (int64, error) {
	var balance int64
	err := sqlx.GetContext(ctx, exec, &balance,
		exec.Rebind(`SELECT balance FROM accounts WHERE id = ?`+lockClause(exec, lockUpdate)), id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrAccountNotFound
	}
	return balance, err
}

// AddBalance aplica delta ao saldo e devolve o novo valor. A constraint
// CHECK (balance >= 0) é a última barreira contra saldo negativo.
func AddBalance(ctx context.Context, exec sqlx.ExtContext, id string, delta int64) (int64, error) {
	var balance int64
	err := sqlx.GetContext(ctx, exec, &balance, exec.Rebind(`
		UPDATE accounts SET balance = balance + ?, updated_at = ?
		WHERE id = ?
		RETURNING balance`), delta, nowMillis(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrAccountNotFound
	}
	return balance, err
}

type ledgerEntryRow struct {
	ID           string `db:"id"`
	AccountID    string `db:"account_id"`
	Direction    string `db:"direction"`
	Reason       string `db:"reason"`
	Amount       int64  `db:"amount"`
	BalanceAfter int64  `db:"balance_after"`
	Ref          string `db:"ref"`
	CreatedAt    int64  `db:"created_at"`
}

func InsertLedgerEntry(ctx context.Context, exec sqlx.ExtContext, e *domain.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = fromMillis(nowMillis())
	}
	_, err := exec.ExecContext(ctx, exec.Rebind(`
		INSERT INTO ledger_entries (id, account_id, direction, reason, amount, balance_after, ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.AccountID, e.Direction, e.Reason, e.Amount, e.BalanceAfter, e.Ref, e.CreatedAt.UnixMilli())
	return err
}

// ListLedgerEntries devolve o extrato mais recente primeiro
func ListLedgerEntries(ctx context.Context, exec sqlx.ExtContext, accountID string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []ledgerEntryRow
	err := sqlx.SelectContext(ctx, exec, &rows, exec.Rebind(`
		SELECT id, account_id, direction, reason, amount, balance_after, ref, created_at
		FROM ledger_entries
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`), accountID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.LedgerEntry{
			ID:           r.ID,
			AccountID:    r.AccountID,
			Direction:    r.Direction,
			Reason:       r.Reason,
			Amount:       r.Amount,
			BalanceAfter: r.BalanceAfter,
			Ref:          r.Ref,
			CreatedAt:    fromMillis(r.CreatedAt),
		})
	}
	return out, nil
}

// SumLedger devolve créditos e débitos totais da conta, para conciliação
func SumLedger(ctx context.Context, exec sqlx.ExtContext, accountID string) (credits, debits int64, err error) {
	var row struct {
		Credits int64 `db:"credits"`
		Debits  int64 `db:"debits"`
	}
	err = sqlx.GetContext(ctx, exec, &row, exec.Rebind(`
		SELECT
			COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE 0 END), 0) AS credits,
			COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE 0 END), 0) AS debits
		FROM ledger_entries WHERE account_id = ?`), domain.EntryCredit, domain.EntryDebit, accountID)
	return row.Credits, row.Debits, err
}
