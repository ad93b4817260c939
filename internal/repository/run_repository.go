package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/goalcast/internal/database"
	"github.com/yourusername/goalcast/internal/models"
)

const errScanRun = "failed to scan backtest run: %w"

const runColumns = `id, mode, started_at, finished_at, matches, bets, turnover, total_pnl,
	roi, hit_rate, sharpe, max_drawdown, initial_bankroll, final_bankroll, config_hash`

var ledgerColumns = []string{
	"run_id", "seq", "date", "league", "home", "away", "market", "selection", "line",
	"odds_open", "stake", "result", "pnl", "equity", "p_model", "p_mkt",
}

// PostgresRunRepository implements RunRepository for PostgreSQL
type PostgresRunRepository struct {
	db *database.DB
}

// NewPostgresRunRepository creates a new run repository
func NewPostgresRunRepository(db *database.DB) RunRepository {
	return &PostgresRunRepository{db: db}
}

// SaveRun upserts a run header
func (r *PostgresRunRepository) SaveRun(ctx context.Context, run *models.BacktestRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	query := `
		INSERT INTO backtest_runs (` + runColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at, matches = EXCLUDED.matches, bets = EXCLUDED.bets,
			turnover = EXCLUDED.turnover, total_pnl = EXCLUDED.total_pnl, roi = EXCLUDED.roi,
			hit_rate = EXCLUDED.hit_rate, sharpe = EXCLUDED.sharpe, max_drawdown = EXCLUDED.max_drawdown,
			final_bankroll = EXCLUDED.final_bankroll
	`
	_, err := r.db.GetPool().Exec(ctx, query,
		run.ID, run.Mode, run.StartedAt, run.FinishedAt, run.Matches, run.Bets, run.Turnover, run.TotalPnL,
		run.ROI, run.HitRate, run.Sharpe, run.MaxDrawdown, run.InitialBankroll, run.FinalBankroll, run.ConfigHash,
	)
	if err != nil {
		return fmt.Errorf("failed to save backtest run: %w", err)
	}
	return nil
}

// SaveLedger replaces the ledger of a run using COPY
func (r *PostgresRunRepository) SaveLedger(ctx context.Context, runID uuid.UUID, entries []models.LedgerEntry) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM ledger_entries WHERE run_id = $1`, runID); err != nil {
			return fmt.Errorf("failed to clear ledger: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}

		rows := make([][]interface{}, len(entries))
		for i, e := range entries {
			rows[i] = []interface{}{
				runID, i, e.Date, e.League, e.HomeTeam, e.AwayTeam, string(e.Market), string(e.Selection), e.Line,
				e.Odds, e.Stake, string(e.Result), e.PnL, e.Equity, e.ModelProb, e.MarketProb,
			}
		}

		count, err := tx.CopyFrom(ctx, pgx.Identifier{"ledger_entries"}, ledgerColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy ledger entries: %w", err)
		}
		if count != int64(len(entries)) {
			return fmt.Errorf("inserted %d rows, expected %d", count, len(entries))
		}
		return nil
	})
}

// GetByID retrieves a run header
func (r *PostgresRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error) {
	query := `SELECT ` + runColumns + ` FROM backtest_runs WHERE id = $1`

	run, err := scanRun(r.db.GetPool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf(errScanRun, err)
	}
	return run, nil
}

// GetLatest retrieves the most recently started runs
func (r *PostgresRunRepository) GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error) {
	query := `SELECT ` + runColumns + ` FROM backtest_runs ORDER BY started_at DESC LIMIT $1`
	return r.queryRuns(ctx, query, limit)
}

// GetByConfigHash retrieves every run made with one configuration
func (r *PostgresRunRepository) GetByConfigHash(ctx context.Context, hash string) ([]*models.BacktestRun, error) {
	query := `SELECT ` + runColumns + ` FROM backtest_runs WHERE config_hash = $1 ORDER BY started_at DESC`
	return r.queryRuns(ctx, query, hash)
}

// GetLedger retrieves a run's ledger in bet order
func (r *PostgresRunRepository) GetLedger(ctx context.Context, runID uuid.UUID) ([]models.LedgerEntry, error) {
	query := `
		SELECT date, league, home, away, market, selection, line, odds_open, stake, result, pnl, equity, p_model, p_mkt
		FROM ledger_entries WHERE run_id = $1 ORDER BY seq ASC
	`
	rows, err := r.db.GetPool().Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var market, selection, result string
		if err := rows.Scan(
			&e.Date, &e.League, &e.HomeTeam, &e.AwayTeam, &market, &selection, &e.Line,
			&e.Odds, &e.Stake, &result, &e.PnL, &e.Equity, &e.ModelProb, &e.MarketProb,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Market = models.Market(market)
		e.Selection = models.Selection(selection)
		e.Result = models.Result(result)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes a run and, by cascade, its ledger
func (r *PostgresRunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.GetPool().Exec(ctx, `DELETE FROM backtest_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete backtest run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *PostgresRunRepository) queryRuns(ctx context.Context, query string, args ...interface{}) ([]*models.BacktestRun, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.BacktestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf(errScanRun, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*models.BacktestRun, error) {
	run := &models.BacktestRun{}
	err := row.Scan(
		&run.ID, &run.Mode, &run.StartedAt, &run.FinishedAt, &run.Matches, &run.Bets, &run.Turnover, &run.TotalPnL,
		&run.ROI, &run.HitRate, &run.Sharpe, &run.MaxDrawdown, &run.InitialBankroll, &run.FinalBankroll, &run.ConfigHash,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}
