package db

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	// o driver modernc registra "sqlite", que o sqlx não conhece por padrão
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Connect abre o banco conforme o driver configurado
func Connect(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres, "":
		return ConnectPostgres(dsn)
	case DriverSQLite:
		return OpenSQLite(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

func ConnectPostgres(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// OpenSQLite abre um arquivo SQLite com transações IMMEDIATE: cada escrita
// pega o lock de escrita no BEGIN, serializando as transações concorrentes.
func OpenSQLite(path string) (*sqlx.DB, error) {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(10000)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")

	db, err := sqlx.Open(DriverSQLite, "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

// Migrate aplica o schema (idempotente)
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range Schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
