package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"market-stream/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := NewScheduler(context.Background(), logger.NewLogger(nil, "test"))
	t.Cleanup(s.Stop)
	return s
}

func TestStartAccountJobIsIdempotent(t *testing.T) {
	s := newTestScheduler(t)

	require.NoError(t, s.StartAccountJob(7, 10*time.Second))
	require.NoError(t, s.StartAccountJob(7, 10*time.Second))

	assert.True(t, s.HasAccountJob(7))
	assert.Equal(t, 1, s.AccountJobCount())
	assert.Len(t, s.Cron.Entries(), 1)
}

func TestStopAccountJobRemovesEntry(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.StartAccountJob(1, 10*time.Second))
	require.NoError(t, s.StartAccountJob(2, 10*time.Second))

	s.StopAccountJob(1)
	s.StopAccountJob(1)
	s.StopAccountJob(42)

	assert.False(t, s.HasAccountJob(1))
	assert.True(t, s.HasAccountJob(2))
	assert.Len(t, s.Cron.Entries(), 1)
}

func TestStartAccountJobRejectsSubSecondInterval(t *testing.T) {
	s := newTestScheduler(t)
	assert.Error(t, s.StartAccountJob(1, 500*time.Millisecond))
	assert.False(t, s.HasAccountJob(1))
}

func TestAccountJobInvokesHandler(t *testing.T) {
	s := newTestScheduler(t)
	var calls atomic.Int64
	var seen atomic.Int64
	s.SetHandler(func(ctx context.Context, accountID int64) {
		seen.Store(accountID)
		calls.Add(1)
	})

	require.NoError(t, s.StartAccountJob(99, time.Second))
	s.Start()

	assert.Eventually(t, func() bool { return calls.Load() > 0 }, 4*time.Second, 50*time.Millisecond)
	assert.Equal(t, int64(99), seen.Load())
}

func TestAddFuncRejectsBadSpec(t *testing.T) {
	s := newTestScheduler(t)
	assert.Error(t, s.AddFunc("not a spec", "broken", func(context.Context) {}))
	assert.NoError(t, s.AddEvery(time.Minute, "sweep", func(context.Context) {}))
}
