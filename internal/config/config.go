// Package config provides configuration management for the goalcast application.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Data        DataConfig        `mapstructure:"data" validate:"required"`
	Model       ModelConfig       `mapstructure:"model" validate:"required"`
	Calibration CalibrationConfig `mapstructure:"calibration" validate:"required"`
	Backtest    BacktestConfig    `mapstructure:"backtest" validate:"required"`
	Staking     StakingConfig     `mapstructure:"staking" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	AWS         AWSConfig         `mapstructure:"aws"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DataConfig locates the historical feature table
type DataConfig struct {
	// Path is a local CSV; URL is fetched when Path is empty
	Path              string  `mapstructure:"path"`
	URL               string  `mapstructure:"url" validate:"omitempty,url"`
	League            string  `mapstructure:"league"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"gte=0"`
	RetryMax          int     `mapstructure:"retry_max" validate:"gte=0"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	DefaultOverUnder  float64 `mapstructure:"default_over_under_line" validate:"gt=0"`
	StrictRows        bool    `mapstructure:"strict_rows"`
	ExcludeBefore     string  `mapstructure:"exclude_before" validate:"omitempty,datetime"`
	ExcludeAfter      string  `mapstructure:"exclude_after" validate:"omitempty,datetime"`
}

// ModelConfig tunes the goal model fit
type ModelConfig struct {
	MaxGoals          int     `mapstructure:"max_goals" validate:"required,gte=1,lte=20"`
	MaxIterations     int     `mapstructure:"max_iterations" validate:"required,gt=0"`
	MaxEvaluations    int     `mapstructure:"max_evaluations" validate:"required,gt=0"`
	Restarts          int     `mapstructure:"restarts" validate:"gte=0"`
	SimplexSize       float64 `mapstructure:"simplex_size" validate:"gte=0"`
	GradientTolerance float64 `mapstructure:"gradient_tolerance" validate:"required,gt=0"`
}

// CalibrationConfig controls the isotonic calibration holdout
type CalibrationConfig struct {
	// Fraction is the tail share of each training slice held out for calibration
	Fraction   float64 `mapstructure:"fraction" validate:"gte=0,lt=1"`
	MinSamples int     `mapstructure:"min_samples" validate:"gte=0"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	Mode                 string  `mapstructure:"mode" validate:"required,backtestmode"`
	InitialBankroll      float64 `mapstructure:"initial_bankroll" validate:"required,gt=0"`
	SplitFraction        float64 `mapstructure:"split_fraction" validate:"gt=0,lt=1"`
	WindowSize           int     `mapstructure:"window_size" validate:"gte=0"`
	RefitEvery           int     `mapstructure:"refit_every" validate:"gte=1"`
	MinTrainingSize      int     `mapstructure:"min_training_size" validate:"gte=2"`
	MonteCarloIterations int     `mapstructure:"monte_carlo_iterations" validate:"gte=0"`
	MonteCarloSeed       int64   `mapstructure:"monte_carlo_seed"`
	OutputPath           string  `mapstructure:"output_path"`
	SummaryPath          string  `mapstructure:"summary_path"`
}

// MarketRuleConfig is the per-market staking rule
type MarketRuleConfig struct {
	EdgeThreshold   float64 `mapstructure:"edge_threshold" validate:"gte=0,lte=1"`
	MinOdds         float64 `mapstructure:"min_odds" validate:"gte=0"`
	MaxOdds         float64 `mapstructure:"max_odds" validate:"gte=0"`
	KellyMultiplier float64 `mapstructure:"kelly_multiplier" validate:"gte=0,lte=1"`
	Enabled         bool    `mapstructure:"enabled"`
}

// StakingConfig represents the staking engine configuration
type StakingConfig struct {
	OneXTwo           MarketRuleConfig `mapstructure:"one_x_two"`
	OverUnder         MarketRuleConfig `mapstructure:"over_under"`
	AsianHandicap     MarketRuleConfig `mapstructure:"asian_handicap"`
	MaxStakeFraction  float64          `mapstructure:"max_stake_fraction" validate:"gt=0,lte=1"`
	MinStake          float64          `mapstructure:"min_stake" validate:"gte=0"`
	DrawdownThreshold float64          `mapstructure:"drawdown_threshold" validate:"gte=0,lt=1"`
	DrawdownReduction float64          `mapstructure:"drawdown_reduction" validate:"gt=0,lte=1"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Host               string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required_if=Enabled true"`
	User               string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"gte=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"gte=0"`
}

// SchedulerConfig configures periodic backtest refreshes
type SchedulerConfig struct {
	BacktestCron   string `mapstructure:"backtest_cron"`
	RunOnStart     bool   `mapstructure:"run_on_start"`
	TimeoutMinutes int    `mapstructure:"timeout_minutes" validate:"gte=0"`
}

// MetricsConfig represents metrics and health endpoint configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// AWSConfig locates the optional Secrets Manager overlay
type AWSConfig struct {
	SecretsEnabled bool   `mapstructure:"secrets_enabled"`
	Region         string `mapstructure:"region"`
	SecretName     string `mapstructure:"secret_name"`
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// GetDatabaseDSN returns the PostgreSQL connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// DataTimeout returns the HTTP fetch timeout
func (c *Config) DataTimeout() time.Duration {
	return time.Duration(c.Data.TimeoutSeconds) * time.Second
}

// SchedulerTimeout bounds a single scheduled backtest
func (c *Config) SchedulerTimeout() time.Duration {
	if c.Scheduler.TimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Scheduler.TimeoutMinutes) * time.Minute
}
