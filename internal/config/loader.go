package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "GOALCAST"

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	// Read the configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := readExpanded(v, data); err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// LoadWithDefaults loads configuration with default values for optional fields
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func LoadWithDefaults(configPath string) (*Config, error) {
	v := newViper()

	// Set configuration file path with default
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	setDefaults(v)

	// Read and expand the configuration file if it exists
	if data, err := os.ReadFile(configPath); err == nil {
		if err := readExpanded(v, data); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	// If file doesn't exist, continue with defaults and environment variables

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// Set environment variable prefix
	v.SetEnvPrefix(envPrefix)

	// Enable automatic binding of environment variables
	v.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func readExpanded(v *viper.Viper, data []byte) error {
	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every optional key. AutomaticEnv only resolves keys
// viper already knows about, so defaults also make env overrides work without a file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "goalcast")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("data.path", "")
	v.SetDefault("data.url", "")
	v.SetDefault("data.league", "")
	v.SetDefault("data.timeout_seconds", 30)
	v.SetDefault("data.retry_max", 3)
	v.SetDefault("data.requests_per_second", 1.0)
	v.SetDefault("data.default_over_under_line", 2.5)
	v.SetDefault("data.strict_rows", true)

	v.SetDefault("model.max_goals", 10)
	v.SetDefault("model.max_iterations", 4000)
	v.SetDefault("model.max_evaluations", 20000)
	v.SetDefault("model.restarts", 6)
	v.SetDefault("model.simplex_size", 0.1)
	v.SetDefault("model.gradient_tolerance", 1e-3)

	v.SetDefault("calibration.fraction", 0.2)
	v.SetDefault("calibration.min_samples", 30)

	v.SetDefault("backtest.mode", "walk_forward")
	v.SetDefault("backtest.initial_bankroll", 100.0)
	v.SetDefault("backtest.split_fraction", 0.7)
	v.SetDefault("backtest.window_size", 760)
	v.SetDefault("backtest.refit_every", 38)
	v.SetDefault("backtest.min_training_size", 200)
	v.SetDefault("backtest.monte_carlo_iterations", 0)
	v.SetDefault("backtest.monte_carlo_seed", 42)
	v.SetDefault("backtest.output_path", "")
	v.SetDefault("backtest.summary_path", "")

	v.SetDefault("staking.one_x_two.enabled", true)
	v.SetDefault("staking.one_x_two.edge_threshold", 0.05)
	v.SetDefault("staking.one_x_two.min_odds", 1.8)
	v.SetDefault("staking.one_x_two.max_odds", 6.0)
	v.SetDefault("staking.one_x_two.kelly_multiplier", 0.25)
	v.SetDefault("staking.over_under.enabled", true)
	v.SetDefault("staking.over_under.edge_threshold", 0.04)
	v.SetDefault("staking.over_under.min_odds", 1.6)
	v.SetDefault("staking.over_under.max_odds", 3.0)
	v.SetDefault("staking.over_under.kelly_multiplier", 0.25)
	v.SetDefault("staking.asian_handicap.enabled", true)
	v.SetDefault("staking.asian_handicap.edge_threshold", 0.03)
	v.SetDefault("staking.asian_handicap.min_odds", 1.6)
	v.SetDefault("staking.asian_handicap.max_odds", 3.0)
	v.SetDefault("staking.asian_handicap.kelly_multiplier", 0.3)
	v.SetDefault("staking.max_stake_fraction", 0.05)
	v.SetDefault("staking.min_stake", 0.01)
	v.SetDefault("staking.drawdown_threshold", 0.15)
	v.SetDefault("staking.drawdown_reduction", 0.5)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "goalcast")
	v.SetDefault("database.user", "goalcast")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("scheduler.backtest_cron", "0 6 * * *")
	v.SetDefault("scheduler.run_on_start", false)
	v.SetDefault("scheduler.timeout_minutes", 30)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("aws.secrets_enabled", false)
	v.SetDefault("aws.region", "eu-west-2")
	v.SetDefault("aws.secret_name", "goalcast/production")
}
