package db

// Schema devolve as instruções de criação, uma por item. O SQL é comum a
// Postgres e SQLite: datas como texto YYYY-MM-DD, instantes em unix ms.
func Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id         TEXT PRIMARY KEY,
			balance    BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id            TEXT PRIMARY KEY,
			account_id    TEXT NOT NULL REFERENCES accounts(id),
			direction     TEXT NOT NULL,
			reason        TEXT NOT NULL,
			amount        BIGINT NOT NULL CHECK (amount >= 0),
			balance_after BIGINT NOT NULL,
			ref           TEXT NOT NULL DEFAULT '',
			created_at    BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries(account_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS payments (
			id           TEXT PRIMARY KEY,
			account_id   TEXT NOT NULL REFERENCES accounts(id),
			kind         TEXT NOT NULL,
			points       BIGINT NOT NULL CHECK (points > 0),
			amount       TEXT NOT NULL,
			external_ref TEXT NOT NULL UNIQUE,
			created_at   BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_account ON payments(account_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS bets (
			id         TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			modality   TEXT NOT NULL,
			number     TEXT NOT NULL,
			stake      BIGINT NOT NULL CHECK (stake > 0),
			bet_date   TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_slot ON bets(modality, bet_date, number)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_account ON bets(account_id, created_at)`,

		// agregado de exposição mantido na mesma transação do insert da aposta
		`CREATE TABLE IF NOT EXISTS exposures (
			modality TEXT NOT NULL,
			number   TEXT NOT NULL,
			bet_date TEXT NOT NULL,
			staked   BIGINT NOT NULL DEFAULT 0 CHECK (staked >= 0),
			PRIMARY KEY (modality, number, bet_date)
		)`,

		// linha de lock: apostas leem compartilhado, o sorteio fecha exclusivo
		`CREATE TABLE IF NOT EXISTS betting_days (
			modality TEXT NOT NULL,
			bet_date TEXT NOT NULL,
			closed   BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (modality, bet_date)
		)`,

		`CREATE TABLE IF NOT EXISTS draws (
			id             TEXT PRIMARY KEY,
			modality       TEXT NOT NULL,
			draw_date      TEXT NOT NULL,
			winning_number TEXT NOT NULL,
			status         TEXT NOT NULL,
			bet_count      INTEGER NOT NULL DEFAULT 0,
			winner_count   INTEGER NOT NULL DEFAULT 0,
			total_awarded  BIGINT NOT NULL DEFAULT 0,
			created_at     BIGINT NOT NULL,
			settled_at     BIGINT,
			UNIQUE (modality, draw_date)
		)`,

		`CREATE TABLE IF NOT EXISTS settlement_outcomes (
			id         TEXT PRIMARY KEY,
			bet_id     TEXT NOT NULL UNIQUE REFERENCES bets(id),
			draw_id    TEXT NOT NULL REFERENCES draws(id),
			is_winner  BOOLEAN NOT NULL,
			awarded    BIGINT NOT NULL CHECK (awarded >= 0),
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_draw ON settlement_outcomes(draw_id)`,

		// status: 1=pendente 2=enviado 3=falhou
		`CREATE TABLE IF NOT EXISTS outbox (
			id          TEXT PRIMARY KEY,
			topic       TEXT NOT NULL,
			biz_key     TEXT NOT NULL,
			payload     TEXT NOT NULL,
			status      INTEGER NOT NULL DEFAULT 1,
			retry_count INTEGER NOT NULL DEFAULT 0,
			last_error  TEXT NOT NULL DEFAULT '',
			created_at  BIGINT NOT NULL,
			updated_at  BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(status, created_at)`,
	}
}
