// Package cli holds the setup shared by the command line tools.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/goalcast/internal/config"
	"github.com/yourusername/goalcast/internal/database"
	"github.com/yourusername/goalcast/internal/logger"
	"github.com/yourusername/goalcast/internal/repository"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// ConfigOverrides are flag values applied over the loaded file
type ConfigOverrides struct {
	DataPath string
	LogLevel string
}

// LoadConfig reads the config file, applies overrides and AWS secrets, then validates
func LoadConfig(ctx context.Context, path string, o ConfigOverrides) (*config.Config, error) {
	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.DataPath != "" {
		cfg.Data.Path = o.DataPath
		cfg.Data.URL = ""
	}
	if o.LogLevel != "" {
		cfg.App.LogLevel = o.LogLevel
	}
	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewLogger logs to stderr so stdout stays free for reports
func NewLogger(cfg *config.Config) *logrus.Logger {
	return logger.NewLoggerWithOutput(cfg.App.LogLevel, os.Stderr)
}

// OpenRepositories connects to Postgres when the database is enabled.
// It returns nil repositories and a no-op closer otherwise.
func OpenRepositories(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*database.DB, *repository.Repositories, func(), error) {
	if !cfg.Database.Enabled {
		return nil, nil, func() {}, nil
	}
	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	log.WithFields(logrus.Fields{
		"host":     cfg.Database.Host,
		"database": cfg.Database.Name,
	}).Info("Connected to database")
	return db, repos, db.Close, nil
}
