// Package testutil monta um banco SQLite descartável com o schema aplicado.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/repo"
	"github.com/radieske/lottery-points-platform/internal/shared/db"
)

// OpenStore cria o banco em t.TempDir() e o fecha ao fim do teste
func OpenStore(t testing.TB) *repo.Store {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "lottery.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.NewStore(conn, zap.NewNop(), 10*time.Second)
}

// Fund cria a conta (se preciso) e ajusta o saldo direto no banco
func Fund(t testing.TB, store *repo.Store, accountID string, points int64) {
	t.Helper()
	err := store.InTx(context.Background(), "fund", func(ctx context.Context, tx *sqlx.Tx) error {
		if err := repo.EnsureAccount(ctx, tx, accountID); err != nil {
			return err
		}
		_, err := repo.AddBalance(ctx, tx, accountID, points)
		return err
	})
	if err != nil {
		t.Fatalf("fund %s: %v", accountID, err)
	}
}

// Balance lê o saldo atual ou falha o teste
func Balance(t testing.TB, store *repo.Store, accountID string) int64 {
	t.Helper()
	acc, err := repo.GetAccount(context.Background(), store.DB(), accountID)
	if err != nil {
		t.Fatalf("balance %s: %v", accountID, err)
	}
	return acc.Balance
}
