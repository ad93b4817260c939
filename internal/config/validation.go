package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("backtestmode", validateBacktestMode)
	_ = v.RegisterValidation("datetime", validateDateTime)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateBacktestMode validates the backtest mode field
func validateBacktestMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "static", "walk_forward":
		return true
	default:
		return false
	}
}

// validateDateTime validates datetime strings
func validateDateTime(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Data.Path == "" && cfg.Data.URL == "" {
		return fmt.Errorf("one of data.path or data.url must be set")
	}

	if cfg.Data.ExcludeBefore != "" && cfg.Data.ExcludeAfter != "" {
		before, _ := time.Parse("2006-01-02", cfg.Data.ExcludeBefore)
		after, _ := time.Parse("2006-01-02", cfg.Data.ExcludeAfter)
		if !before.Before(after) {
			return fmt.Errorf("data.exclude_before must be before data.exclude_after")
		}
	}

	for name, rule := range map[string]MarketRuleConfig{
		"one_x_two":      cfg.Staking.OneXTwo,
		"over_under":     cfg.Staking.OverUnder,
		"asian_handicap": cfg.Staking.AsianHandicap,
	} {
		if rule.MaxOdds > 0 && rule.MinOdds > rule.MaxOdds {
			return fmt.Errorf("staking.%s.min_odds cannot exceed max_odds", name)
		}
	}

	// A bounded window must hold at least one refit interval
	if cfg.Backtest.WindowSize > 0 && cfg.Backtest.RefitEvery > cfg.Backtest.WindowSize {
		return fmt.Errorf("backtest.refit_every cannot exceed backtest.window_size")
	}
	if cfg.Backtest.WindowSize > 0 && cfg.Backtest.WindowSize < cfg.Backtest.MinTrainingSize {
		return fmt.Errorf("backtest.window_size cannot be smaller than backtest.min_training_size")
	}

	if cfg.Scheduler.BacktestCron != "" {
		if _, err := cron.ParseStandard(cfg.Scheduler.BacktestCron); err != nil {
			return fmt.Errorf("invalid scheduler.backtest_cron: %w", err)
		}
	}

	// Validate production environment requirements
	if cfg.IsProduction() && cfg.Database.Enabled && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	// Validate connection pool settings
	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' is required\n", field))
		case "url":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value))
		case "min", "max":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag))
		case "gt", "gte", "lt", "lte":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag))
		case "environment":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field))
		case "loglevel":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field))
		case "backtestmode":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' must be one of: static, walk_forward\n", field))
		case "datetime":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' must be a YYYY-MM-DD date, got '%v'\n", field, value))
		case "oneof":
			errMsg.WriteString(fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value))
		default:
			errMsg.WriteString(fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag))
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg.String())
}
