package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/goalcast/internal/models"
)

// RunRepository defines the interface for backtest run persistence
type RunRepository interface {
	SaveRun(ctx context.Context, run *models.BacktestRun) error
	SaveLedger(ctx context.Context, runID uuid.UUID, entries []models.LedgerEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error)
	GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error)
	GetByConfigHash(ctx context.Context, hash string) ([]*models.BacktestRun, error)
	GetLedger(ctx context.Context, runID uuid.UUID) ([]models.LedgerEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
