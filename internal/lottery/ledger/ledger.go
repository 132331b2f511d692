package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
	"github.com/radieske/lottery-points-platform/internal/lottery/repo"
	"github.com/radieske/lottery-points-platform/internal/lottery/rules"
)

// Debit retira amount do saldo dentro da transação do chamador. A linha da
// conta fica travada até o commit, então a checagem de saldo vale até lá.
func Debit(ctx context.Context, tx sqlx.ExtContext, accountID string, amount int64, reason, ref string) (int64, error) {
	if amount <= 0 {
		return 0, &domain.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	balance, err := repo.LockAccount(ctx, tx, accountID)
	if err != nil {
		return 0, err
	}
	if amount > balance {
		return balance, domain.ErrInsufficientFunds
	}
	return apply(ctx, tx, accountID, -amount, domain.EntryDebit, reason, ref)
}

// Credit soma amount ao saldo. Zero é um no-op: não toca a conta (nem
// exige que exista), não gera lançamento e devolve saldo 0.
func Credit(ctx context.Context, tx sqlx.ExtContext, accountID string, amount int64, reason, ref string) (int64, error) {
	if amount < 0 {
		return 0, &domain.ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if amount == 0 {
		return 0, nil
	}
	if _, err := repo.LockAccount(ctx, tx, accountID); err != nil {
		return 0, err
	}
	return apply(ctx, tx, accountID, amount, domain.EntryCredit, reason, ref)
}

func apply(ctx context.Context, tx sqlx.ExtContext, accountID string, delta int64, direction, reason, ref string) (int64, error) {
	balance, err := repo.AddBalance(ctx, tx, accountID, delta)
	if err != nil {
		return 0, err
	}
	amount := delta
	if amount < 0 {
		amount = -amount
	}
	err = repo.InsertLedgerEntry(ctx, tx, &domain.LedgerEntry{
		AccountID:    accountID,
		Direction:    direction,
		Reason:       reason,
		Amount:       amount,
		BalanceAfter: balance,
		Ref:          ref,
	})
	return balance, err
}

// ParseAmount converte o valor externo (decimal em texto) em pontos,
// descartando a fração: 1 unidade = 1 ponto.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, &domain.ValidationError{Field: "amount", Reason: "not a decimal number"}
	}
	if !d.IsPositive() {
		return 0, &domain.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	points := d.Floor()
	if points.LessThan(decimal.NewFromInt(1)) {
		return 0, &domain.ValidationError{Field: "amount", Reason: "below one point"}
	}
	if points.GreaterThan(decimal.NewFromInt(1 << 53)) {
		return 0, &domain.ValidationError{Field: "amount", Reason: "too large"}
	}
	return points.IntPart(), nil
}

// Ledger expõe as operações de saldo que rodam em transação própria
type Ledger struct {
	store *repo.Store
	rules rules.Rules
	log   *zap.Logger
}

func New(store *repo.Store, r rules.Rules, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: store, rules: r, log: log}
}

// OpenAccount devolve a conta, criando-a com saldo zero se preciso
func (l *Ledger) OpenAccount(ctx context.Context, accountID string) (domain.Account, error) {
	if strings.TrimSpace(accountID) == "" {
		return domain.Account{}, &domain.ValidationError{Field: "account", Reason: "required"}
	}
	var acc domain.Account
	err := l.store.InTx(ctx, "open_account", func(ctx context.Context, tx *sqlx.Tx) error {
		if err := repo.EnsureAccount(ctx, tx, accountID); err != nil {
			return err
		}
		var err error
		acc, err = repo.GetAccount(ctx, tx, accountID)
		return err
	})
	return acc, err
}

// Balance é uma leitura avulsa; pode estar defasada em relação a
// operações concorrentes.
func (l *Ledger) Balance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := l.store.View(ctx, "balance", func(ctx context.Context, q sqlx.ExtContext) error {
		acc, err := repo.GetAccount(ctx, q, accountID)
		balance = acc.Balance
		return err
	})
	return balance, err
}

// Deposit aplica um pagamento externo confirmado. O external_ref torna a
// operação idempotente: um ref já aplicado devolve o pagamento original
// com applied=false.
func (l *Ledger) Deposit(ctx context.Context, accountID, amount, externalRef string) (domain.Payment, bool, error) {
	return l.applyPayment(ctx, domain.PaymentDeposit, accountID, amount, externalRef)
}

// Withdraw debita um saque externo, respeitando o mínimo configurado
func (l *Ledger) Withdraw(ctx context.Context, accountID, amount, externalRef string) (domain.Payment, bool, error) {
	return l.applyPayment(ctx, domain.PaymentWithdrawal, accountID, amount, externalRef)
}

func (l *Ledger) applyPayment(ctx context.Context, kind domain.PaymentKind, accountID, amount, externalRef string) (domain.Payment, bool, error) {
	if strings.TrimSpace(accountID) == "" {
		return domain.Payment{}, false, &domain.ValidationError{Field: "account", Reason: "required"}
	}
	if strings.TrimSpace(externalRef) == "" {
		return domain.Payment{}, false, &domain.ValidationError{Field: "external_ref", Reason: "required"}
	}
	points, err := ParseAmount(amount)
	if err != nil {
		return domain.Payment{}, false, err
	}
	if kind == domain.PaymentWithdrawal && points < l.rules.MinWithdrawal() {
		return domain.Payment{}, false, fmt.Errorf("%w: minimum is %d", domain.ErrBelowMinimumWithdrawal, l.rules.MinWithdrawal())
	}

	var (
		payment domain.Payment
		applied bool
	)
	err = l.store.InTx(ctx, "payment_"+string(kind), func(ctx context.Context, tx *sqlx.Tx) error {
		existing, found, err := repo.GetPaymentByRef(ctx, tx, externalRef)
		if err != nil {
			return err
		}
		if found {
			payment, applied = existing, false
			return nil
		}

		switch kind {
		case domain.PaymentDeposit:
			if err := repo.EnsureAccount(ctx, tx, accountID); err != nil {
				return err
			}
			_, err = Credit(ctx, tx, accountID, points, domain.ReasonDeposit, externalRef)
		case domain.PaymentWithdrawal:
			_, err = Debit(ctx, tx, accountID, points, domain.ReasonWithdrawal, externalRef)
		}
		if err != nil {
			return err
		}

		payment = domain.Payment{
			AccountID:   accountID,
			Kind:        kind,
			Points:      points,
			Amount:      strings.TrimSpace(amount),
			ExternalRef: externalRef,
		}
		applied = true
		return repo.InsertPayment(ctx, tx, &payment)
	})

	// outra réplica aplicou o mesmo ref entre a leitura e o insert
	if errors.Is(err, repo.ErrDuplicatePayment) {
		return l.paymentByRef(ctx, externalRef)
	}
	if err != nil {
		return domain.Payment{}, false, err
	}
	if applied {
		l.log.Info("payment applied",
			zap.String("account", accountID),
			zap.String("kind", string(kind)),
			zap.Int64("points", points),
			zap.String("ref", externalRef))
	}
	return payment, applied, nil
}

func (l *Ledger) paymentByRef(ctx context.Context, ref string) (domain.Payment, bool, error) {
	var p domain.Payment
	err := l.store.View(ctx, "payment_by_ref", func(ctx context.Context, q sqlx.ExtContext) error {
		var err error
		p, _, err = repo.GetPaymentByRef(ctx, q, ref)
		return err
	})
	return p, false, err
}

// Entries devolve o extrato da conta, mais recente primeiro
func (l *Ledger) Entries(ctx context.Context, accountID string, limit int) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	err := l.store.View(ctx, "ledger_entries", func(ctx context.Context, q sqlx.ExtContext) error {
		var err error
		out, err = repo.ListLedgerEntries(ctx, q, accountID, limit)
		return err
	})
	return out, err
}

// Payments lista depósitos e saques da conta; kind vazio traz ambos
func (l *Ledger) Payments(ctx context.Context, accountID string, kind domain.PaymentKind) ([]domain.Payment, error) {
	var all []domain.Payment
	err := l.store.View(ctx, "payments", func(ctx context.Context, q sqlx.ExtContext) error {
		var err error
		all, err = repo.ListPayments(ctx, q, accountID)
		return err
	})
	if err != nil || kind == "" {
		return all, err
	}
	out := all[:0]
	for _, p := range all {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out, nil
}
