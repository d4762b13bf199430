package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ==================== Dispatcher 测试 ====================

func TestDispatcher_RunsJobsAndDrains(t *testing.T) {
	d := NewDispatcher(time.Second, zap.NewNop())

	var count int32
	for i := 0; i < 10; i++ {
		d.Go("count", func(ctx context.Context) error {
			atomic.AddInt32(&count, 1)
			return nil
		})
	}

	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, int32(10), atomic.LoadInt32(&count))
}

func TestDispatcher_PanicAndErrorDoNotEscape(t *testing.T) {
	d := NewDispatcher(time.Second, zap.NewNop())

	var after int32
	d.Go("panic", func(ctx context.Context) error {
		panic("boom")
	})
	d.Go("error", func(ctx context.Context) error {
		return errors.New("telegram down")
	})
	d.Go("ok", func(ctx context.Context) error {
		atomic.StoreInt32(&after, 1)
		return nil
	})

	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&after))
}

func TestDispatcher_JobContextHasDeadline(t *testing.T) {
	d := NewDispatcher(50*time.Millisecond, zap.NewNop())

	var hadDeadline int32
	d.Go("deadline", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			atomic.StoreInt32(&hadDeadline, 1)
		}
		<-ctx.Done()
		return ctx.Err()
	})

	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hadDeadline))
}

func TestDispatcher_DropsAfterShutdown(t *testing.T) {
	d := NewDispatcher(time.Second, zap.NewNop())
	require.NoError(t, d.Shutdown(context.Background()))

	var ran int32
	d.Go("late", func(ctx context.Context) error {
		atomic.StoreInt32(&ran, 1)
		return nil
	})
	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func TestDispatcher_ShutdownHonoursContext(t *testing.T) {
	d := NewDispatcher(time.Second, zap.NewNop())
	release := make(chan struct{})
	d.Go("slow", func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Shutdown(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, d.Shutdown(context.Background()))
}

// ==================== OrderBackfillTask 测试 ====================

type fakeBackfiller struct {
	calls  int32
	filled int
	err    error
}

func (f *fakeBackfiller) BackfillLegacyTotals(ctx context.Context) (int, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.filled, f.err
}

func TestOrderBackfillTask_RunOnce(t *testing.T) {
	f := &fakeBackfiller{filled: 3}
	task := NewOrderBackfillTask(f, "", zap.NewNop())

	assert.Equal(t, 3, task.RunOnce(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))

	f.err = errors.New("db gone")
	f.filled = 1
	assert.Equal(t, 1, task.RunOnce(context.Background()))
}

func TestOrderBackfillTask_StartValidatesSpec(t *testing.T) {
	f := &fakeBackfiller{}

	disabled := NewOrderBackfillTask(f, "", zap.NewNop())
	require.NoError(t, disabled.Start())

	bad := NewOrderBackfillTask(f, "not a cron", zap.NewNop())
	assert.Error(t, bad.Start())

	good := NewOrderBackfillTask(f, "0 0 * * * *", zap.NewNop())
	require.NoError(t, good.Start())
	good.Stop()
}
