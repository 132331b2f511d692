package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
)

// DefaultTxTimeout limita transações cujo contexto não traz deadline
const DefaultTxTimeout = 3 * time.Second

// TxFunc é o corpo de uma transação. Deve usar o ctx recebido.
type TxFunc func(ctx context.Context, tx *sqlx.Tx) error

// Store executa unidades atômicas sobre o banco
type Store struct {
	db        *sqlx.DB
	log       *zap.Logger
	txTimeout time.Duration
}

func NewStore(db *sqlx.DB, log *zap.Logger, txTimeout time.Duration) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if txTimeout <= 0 {
		txTimeout = DefaultTxTimeout
	}
	return &Store{db: db, log: log, txTimeout: txTimeout}
}

// DB expõe a conexão para leituras fora de transação
func (s *Store) DB() *sqlx.DB { return s.db }

// InTx roda fn em uma transação. Conflitos transitórios (serialização,
// deadlock, banco ocupado) são repetidos uma única vez. Erros que não são
// de regra de negócio saem como *domain.StorageError.
func (s *Store) InTx(ctx context.Context, op string, fn TxFunc) error {
	err := s.runTx(ctx, fn)
	if err != nil && isTransient(err) {
		s.log.Warn("transient conflict, retrying once", zap.String("op", op), zap.Error(err))
		err = s.runTx(ctx, fn)
	}
	return s.classify(op, err)
}

// View roda leituras sem transação, com a mesma classificação de erros
func (s *Store) View(ctx context.Context, op string, fn func(ctx context.Context, q sqlx.ExtContext) error) error {
	return s.classify(op, fn(ctx, s.db))
}

func (s *Store) classify(op string, err error) error {
	if err == nil || domain.IsBusinessError(err) {
		return err
	}
	var se *domain.StorageError
	if errors.As(err, &se) {
		return err
	}
	s.log.Error("storage failure", zap.String("op", op), zap.Error(err))
	return &domain.StorageError{Op: op, Err: err}
}

func (s *Store) runTx(ctx context.Context, fn TxFunc) error {
	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
		txCtx = c
	}

	tx, err := s.db.BeginTxx(txCtx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(txCtx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func nowMillis() int64 { return time.Now().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }
