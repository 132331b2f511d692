package repo

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// lockMode escolhe o lock de linha. No SQLite não há FOR UPDATE: a
// transação IMMEDIATE já detém o lock de escrita do banco inteiro.
type lockMode int

const (
	lockNone lockMode = iota
	lockShare
	lockUpdate
)

func lockClause(exec sqlx.ExtContext, mode lockMode) string {
	if exec.DriverName() != "postgres" {
		return ""
	}
	switch mode {
	case lockShare:
		return " FOR SHARE"
	case lockUpdate:
		return " FOR UPDATE"
	}
	return ""
}

// isUniqueViolation reconhece violação de UNIQUE/PK nos dois drivers
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		code := sqErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// isTransient reconhece conflitos que podem passar numa nova tentativa
func isTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return true
		}
		return false
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}
