package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigAppliesOverrides(t *testing.T) {
	path := writeConfig(t, "data:\n  url: https://example.com/E0.csv\n")

	cfg, err := LoadConfig(context.Background(), path, ConfigOverrides{DataPath: "local.csv", LogLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "local.csv", cfg.Data.Path)
	assert.Empty(t, cfg.Data.URL)
	assert.Equal(t, "debug", cfg.App.LogLevel)
}

func TestLoadConfigValidates(t *testing.T) {
	path := writeConfig(t, "backtest:\n  mode: sideways\n")

	_, err := LoadConfig(context.Background(), path, ConfigOverrides{DataPath: "local.csv"})
	assert.ErrorContains(t, err, "invalid configuration")

	_, err = LoadConfig(context.Background(), writeConfig(t, "app:\n  name: goalcast\n"), ConfigOverrides{})
	assert.Error(t, err, "no data source")
}

func TestOpenRepositoriesDisabled(t *testing.T) {
	cfg, err := LoadConfig(context.Background(), writeConfig(t, ""), ConfigOverrides{DataPath: "local.csv"})
	require.NoError(t, err)

	db, repos, closeDB, err := OpenRepositories(context.Background(), cfg, NewLogger(cfg))
	require.NoError(t, err)
	assert.Nil(t, db)
	assert.Nil(t, repos)
	closeDB()
}
