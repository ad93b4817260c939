package backtest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/goalcast/internal/config"
	"github.com/yourusername/goalcast/internal/staking"
)

func TestFromConfigDefaults(t *testing.T) {
	t.Setenv("GOALCAST_DATA_PATH", "matches.csv")
	cfg, err := config.LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	bt, rules, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), bt)
	assert.Equal(t, staking.DefaultRules(), rules)
}

func TestFromConfigDisabledMarket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := strings.Join([]string{
		"data:",
		"  path: matches.csv",
		"backtest:",
		"  mode: static",
		"  split_fraction: 0.6",
		"staking:",
		"  over_under:",
		"    enabled: false",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := config.LoadWithDefaults(path)
	require.NoError(t, err)

	bt, rules, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, ModeStatic, bt.Mode)
	assert.Equal(t, 0.6, bt.SplitFraction)
	assert.True(t, rules.OverUnder.Disabled)
	assert.False(t, rules.OneXTwo.Disabled)
	assert.Equal(t, 0.04, rules.OverUnder.EdgeThreshold)
}

func TestFromConfigRejectsInvalid(t *testing.T) {
	_, _, err := FromConfig(nil)
	assert.Error(t, err)

	cfg, err := config.LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Backtest.RefitEvery = 0
	_, _, err = FromConfig(cfg)
	assert.Error(t, err)

	cfg.Backtest.RefitEvery = 38
	cfg.Staking.MaxStakeFraction = 2
	_, _, err = FromConfig(cfg)
	assert.Error(t, err)
}

func TestDefaultConfigValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	cfg.WindowSize = 100
	assert.Error(t, cfg.Validate(), "window below minimum training size")
}
