package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/goalcast/internal/logger"
)

func TestScheduleRejectsBadExpression(t *testing.T) {
	s := NewScheduler(time.Second, logger.Discard())
	_, err := s.ScheduleBacktest("not a cron", "bad", func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestStartRequiresJobs(t *testing.T) {
	s := NewScheduler(time.Second, logger.Discard())
	assert.Error(t, s.Start())
	assert.False(t, s.IsRunning())
}

func TestScheduledJobRuns(t *testing.T) {
	s := NewScheduler(time.Second, logger.Discard())
	var calls atomic.Int32
	_, err := s.ScheduleBacktest("@every 1s", "refresh", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		if hasDeadline {
			calls.Add(1)
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.False(t, s.GetNextRun().IsZero())

	_, err = s.ScheduleBacktest("@daily", "late", func(context.Context) error { return nil })
	assert.Error(t, err, "scheduling while running")
	assert.Error(t, s.Start(), "double start")

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	assert.True(t, s.GetNextRun().IsZero())
	require.NoError(t, s.Stop(ctx), "stop is idempotent")
}

func TestRunNowAppliesTimeout(t *testing.T) {
	s := NewScheduler(20*time.Millisecond, logger.Discard())
	err := s.RunNow(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	boom := errors.New("boom")
	assert.ErrorIs(t, s.RunNow(context.Background(), "fails", func(context.Context) error { return boom }), boom)
}

func TestRemoveJob(t *testing.T) {
	s := NewScheduler(0, logger.Discard())
	id, err := s.ScheduleBacktest("@hourly", "hourly", func(context.Context) error { return nil })
	require.NoError(t, err)
	require.Len(t, s.Entries(), 1)

	require.NoError(t, s.RemoveJob(id))
	assert.Empty(t, s.Entries())
	assert.Error(t, s.Start())
}

func TestOverlappingTickIsSkipped(t *testing.T) {
	s := NewScheduler(0, logger.Discard())
	release := make(chan struct{})
	var calls atomic.Int32
	job := func(context.Context) error {
		calls.Add(1)
		<-release
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.runJob(1, "slow", job)
		close(done)
	}()
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.runJob(1, "slow", job)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	<-done
}
