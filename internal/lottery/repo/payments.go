package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
)

// ErrDuplicatePayment indica external_ref já aplicado
var ErrDuplicatePayment = errors.New("payment already applied")

type paymentRow struct {
	ID          string `db:"id"`
	AccountID   string `db:"account_id"`
	Kind        string `db:"kind"`
	Points      int64  `db:"points"`
	Amount      string `db:"amount"`
	ExternalRef string `db:"external_ref"`
	CreatedAt   int64  `db:"created_at"`
}

func (r paymentRow) toDomain() domain.Payment {
	return domain.Payment{
		ID:          r.ID,
		AccountID:   r.AccountID,
		Kind:        domain.PaymentKind(r.Kind),
		Points:      r.Points,
		Amount:      r.Amount,
		ExternalRef: r.ExternalRef,
		CreatedAt:   fromMillis(r.CreatedAt),
	}
}

func InsertPayment(ctx context.Context, exec sqlx.ExtContext, p *domain.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = fromMillis(nowMillis())
	}
	_, err := exec.ExecContext(ctx, exec.Rebind(`
		INSERT INTO payments (id, account_id, kind, points, amount, external_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.AccountID, string(p.Kind), p.Points, p.Amount, p.ExternalRef, p.CreatedAt.UnixMilli())
	if isUniqueViolation(err) {
		return ErrDuplicatePayment
	}
	return err
}

func GetPaymentByRef(ctx context.Context, exec sqlx.ExtContext, ref string) (domain.Payment, bool, error) {
	var row paymentRow
	err := sqlx.GetContext(ctx, exec, &row, exec.Rebind(`
		SELECT id, account_id, kind, points, amount, external_ref, created_at
		FROM payments WHERE external_ref = ?`), ref)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Payment{}, false, nil
	}
	if err != nil {
		return domain.Payment{}, false, err
	}
	return row.toDomain(), true, nil
}

func ListPayments(ctx context.Context, exec sqlx.ExtContext, accountID string) ([]domain.Payment, error) {
	var rows []paymentRow
	err := sqlx.SelectContext(ctx, exec, &rows, exec.Rebind(`
		SELECT id, account_id, kind, points, amount, external_ref, created_at
		FROM payments
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC`), accountID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Payment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
