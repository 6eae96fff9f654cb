package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnceRunsAndForgetsJob(t *testing.T) {
	s := New(nil)
	defer s.Shutdown()

	var runs atomic.Int32
	job := s.Once("boot", 10*time.Millisecond, func() { runs.Add(1) })
	assert.True(t, s.Has("boot"))

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, s.Has("boot"))
	_, ok := job.NextRun()
	assert.False(t, ok)
}

func TestCancelIsIdempotent(t *testing.T) {
	s := New(nil)
	defer s.Shutdown()

	var runs atomic.Int32
	job := s.Once("stop", 50*time.Millisecond, func() { runs.Add(1) })
	job.Cancel()
	job.Cancel()
	s.Cancel("stop")
	s.Cancel("never-scheduled")

	var nilJob *Job
	nilJob.Cancel()

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, runs.Load())
	require.NoError(t, s.Drain(context.Background()))
}

func TestSameIDReplacesJob(t *testing.T) {
	s := New(nil)
	defer s.Shutdown()

	var first, second atomic.Int32
	s.Once("job", 30*time.Millisecond, func() { first.Add(1) })
	s.Once("job", 30*time.Millisecond, func() { second.Add(1) })

	require.NoError(t, s.Drain(context.Background()))
	assert.Zero(t, first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestEveryUntilCancelled(t *testing.T) {
	s := New(nil)
	defer s.Shutdown()

	var runs atomic.Int32
	job := s.Every("sample", 5*time.Millisecond, func() { runs.Add(1) })
	next, ok := job.NextRun()
	require.True(t, ok)
	assert.False(t, next.IsZero())

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	job.Cancel()
	time.Sleep(10 * time.Millisecond)
	stopped := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())
}

func TestDrainWaitsForOneShotJobs(t *testing.T) {
	s := New(nil)
	defer s.Shutdown()

	var done atomic.Bool
	s.Once("", 20*time.Millisecond, func() {
		time.Sleep(20 * time.Millisecond)
		done.Store(true)
	})
	s.Every("heartbeat", time.Hour, func() {})

	require.NoError(t, s.Drain(context.Background()))
	assert.True(t, done.Load())
}

func TestDrainHonoursContext(t *testing.T) {
	s := New(nil)
	defer s.Shutdown()

	s.Once("later", time.Hour, func() {})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Drain(ctx), context.DeadlineExceeded)
}

func TestShutdownRejectsNewJobs(t *testing.T) {
	s := New(nil)
	s.Once("later", time.Hour, func() {})
	s.Shutdown()

	assert.Nil(t, s.Once("after", 0, func() {}))
	assert.Nil(t, s.Every("after", time.Second, func() {}))
	require.NoError(t, s.Drain(context.Background()))
}

func TestDrainIgnoresTimers(t *testing.T) {
	s := New(nil)
	defer s.Shutdown()

	var fired atomic.Bool
	watchdog := s.Timer("watchdog", time.Hour, func() {})
	s.TimerAt("expiry", time.Now().Add(10*time.Millisecond), func() { fired.Store(true) })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Drain(ctx))

	_, ok := watchdog.NextRun()
	assert.True(t, ok)
	require.Eventually(t, fired.Load, time.Second, time.Millisecond)
}
