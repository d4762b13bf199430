package task

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// ==================== Dispatcher 后台任务派发 ====================

// Dispatcher 请求之外的一次性后台任务（如订单通知）
// 每个任务独立超时，panic 被捕获后只记日志；Shutdown 后不再接收新任务
type Dispatcher struct {
	wg      conc.WaitGroup
	timeout time.Duration
	log     *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewDispatcher timeout <= 0 时使用 30 秒
func NewDispatcher(timeout time.Duration, log *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{timeout: timeout, log: log}
}

// Go 提交任务，立即返回
func (d *Dispatcher) Go(name string, fn func(ctx context.Context) error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.log.Warn("dispatcher closed, job dropped", zap.String("job", name))
		return
	}

	d.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		start := time.Now()
		var err error
		var pc panics.Catcher
		pc.Try(func() { err = fn(ctx) })

		if r := pc.Recovered(); r != nil {
			d.log.Error("background job panicked",
				zap.String("job", name),
				zap.Any("panic", r.Value),
				zap.ByteString("stack", r.Stack),
			)
			return
		}
		if err != nil {
			d.log.Warn("background job failed",
				zap.String("job", name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		d.log.Debug("background job done", zap.String("job", name), zap.Duration("elapsed", time.Since(start)))
	})
}

// Shutdown 停止接收任务并等待已提交的任务结束，ctx 到期时返回其错误
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
