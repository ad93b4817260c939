package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerLevels(t *testing.T) {
	log := NewLoggerWithOutput("debug", &bytes.Buffer{})
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	buf := &bytes.Buffer{}
	log = NewLoggerWithOutput("loud", buf)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.Contains(t, buf.String(), "Invalid log level")
}

func TestNewLoggerProductionFormatter(t *testing.T) {
	t.Setenv("GOALCAST_APP_ENVIRONMENT", "production")
	log := NewLoggerWithOutput("info", &bytes.Buffer{})
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	t.Setenv("GOALCAST_APP_ENVIRONMENT", "development")
	log = NewLoggerWithOutput("info", &bytes.Buffer{})
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestBacktestLoggerFit(t *testing.T) {
	log, buf := setupTestLogger()
	bl := NewBacktestLogger(log).WithRun("run-1", "walk_forward")

	bl.LogFit(2, 300, 75, "FunctionConvergence", 1e-5, 812.4, 35)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "backtest", logEntry["component"])
	assert.Equal(t, "run-1", logEntry["run_id"])
	assert.Equal(t, "walk_forward", logEntry["mode"])
	assert.Equal(t, float64(300), logEntry["train_size"])
}

func TestBacktestLoggerFitRejected(t *testing.T) {
	log, buf := setupTestLogger()
	NewBacktestLogger(log).LogFitRejected(1, 120, errors.New("model fit did not converge"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, "model fit did not converge", logEntry["error"])
}

func TestBacktestLoggerBetPlaced(t *testing.T) {
	log, buf := setupTestLogger()
	NewBacktestLogger(log).LogBetPlaced("Arsenal v Wolves", "AH", "Home", 1.95, 0.04, 2.5, 2.375, 102.375)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "AH", logEntry["market"])
	assert.Equal(t, "debug", logEntry["level"])
}

func TestBacktestLoggerThrottle(t *testing.T) {
	log, buf := setupTestLogger()
	bl := NewBacktestLogger(log)

	bl.LogThrottle(true, 0.18, 0.15)
	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, true, logEntry["active"])
}

func TestBacktestLoggerSummary(t *testing.T) {
	log, buf := setupTestLogger()
	NewBacktestLogger(log).LogRunSummary(380, 41, 102.5, 3.2, 0.031, 0.08, 103.2)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(41), logEntry["bets"])
	assert.Equal(t, "Backtest completed", logEntry["msg"])
}

func TestBacktestLoggerNilBase(t *testing.T) {
	assert.NotPanics(t, func() {
		NewBacktestLogger(nil).LogSkip("A v B", "missing_odds")
	})
}
