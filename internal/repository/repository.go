// Package repository persists backtest runs and their ledgers in Postgres.
package repository

import (
	"fmt"

	"github.com/yourusername/goalcast/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Runs RunRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Runs: NewPostgresRunRepository(db),
	}, nil
}
