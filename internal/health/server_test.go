package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/goalcast/internal/logger"
	"github.com/yourusername/goalcast/internal/metrics"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAndLive(t *testing.T) {
	s := NewServer(Config{ServiceName: "goalcast-scheduler", Version: "1.2.0", Logger: logger.Discard()})

	rec := get(t, s.Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "1.2.0", body.Version)

	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/live").Code)
}

func TestReadyReflectsStateAndDatabase(t *testing.T) {
	s := NewServer(Config{ServiceName: "svc", Logger: logger.Discard(), DB: fakePinger{}})

	assert.Equal(t, http.StatusServiceUnavailable, get(t, s.Handler(), "/ready").Code)

	s.SetReady(true)
	rec := get(t, s.Handler(), "/ready")
	require.Equal(t, http.StatusOK, rec.Code)
	var body ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Checks["database"])
	assert.Nil(t, body.LastRun)

	down := NewServer(Config{ServiceName: "svc", Logger: logger.Discard(), DB: fakePinger{err: errors.New("refused")}})
	down.SetReady(true)
	rec = get(t, down.Handler(), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "refused")
}

func TestReadyReportsLastRun(t *testing.T) {
	s := NewServer(Config{ServiceName: "svc", Logger: logger.Discard()})
	s.SetReady(true)
	s.RecordRun("abc", errors.New("fit failed"))

	var body ReadyResponse
	require.NoError(t, json.Unmarshal(get(t, s.Handler(), "/ready").Body.Bytes(), &body))
	require.NotNil(t, body.LastRun)
	assert.Equal(t, "abc", body.LastRun.RunID)
	assert.Equal(t, "fit failed", body.LastRun.Error)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.RecordBacktestRun("static", "success")
	s := NewServer(Config{ServiceName: "svc", Logger: logger.Discard(), Metrics: metrics.Handler()})

	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goalcast_backtest_runs_total")

	bare := NewServer(Config{ServiceName: "svc", Logger: logger.Discard()})
	assert.Equal(t, http.StatusNotFound, get(t, bare.Handler(), "/metrics").Code)
}

func TestStartAndShutdown(t *testing.T) {
	s := NewServer(Config{ServiceName: "svc", Port: "0", Logger: logger.Discard()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	_, port, err := net.SplitHostPort(s.Addr())
	require.NoError(t, err)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://127.0.0.1:" + port + "/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Shutdown())
}
