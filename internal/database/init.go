package database

import (
	"context"
	"fmt"

	"github.com/yourusername/goalcast/internal/config"
)

// schema holds the tables backing run persistence. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS backtest_runs (
		id               UUID PRIMARY KEY,
		mode             TEXT NOT NULL,
		started_at       TIMESTAMPTZ NOT NULL,
		finished_at      TIMESTAMPTZ NOT NULL,
		matches          INTEGER NOT NULL,
		bets             INTEGER NOT NULL,
		turnover         DOUBLE PRECISION NOT NULL,
		total_pnl        DOUBLE PRECISION NOT NULL,
		roi              DOUBLE PRECISION NOT NULL,
		hit_rate         DOUBLE PRECISION NOT NULL,
		sharpe           DOUBLE PRECISION NOT NULL,
		max_drawdown     DOUBLE PRECISION NOT NULL,
		initial_bankroll DOUBLE PRECISION NOT NULL,
		final_bankroll   DOUBLE PRECISION NOT NULL,
		config_hash      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		run_id     UUID NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		date       TIMESTAMPTZ NOT NULL,
		league     TEXT NOT NULL,
		home       TEXT NOT NULL,
		away       TEXT NOT NULL,
		market     TEXT NOT NULL,
		selection  TEXT NOT NULL,
		line       DOUBLE PRECISION,
		odds_open  DOUBLE PRECISION NOT NULL,
		stake      DOUBLE PRECISION NOT NULL,
		result     TEXT NOT NULL,
		pnl        DOUBLE PRECISION NOT NULL,
		equity     DOUBLE PRECISION NOT NULL,
		p_model    DOUBLE PRECISION NOT NULL,
		p_mkt      DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_backtest_runs_started_at ON backtest_runs (started_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_backtest_runs_config_hash ON backtest_runs (config_hash)`,
}

// Initialize creates a connection pool and makes sure the schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the run and ledger tables when missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
