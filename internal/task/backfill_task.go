package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// OrderBackfiller 旧订单美元总额回填
type OrderBackfiller interface {
	BackfillLegacyTotals(ctx context.Context) (int, error)
}

// ==================== OrderBackfillTask 旧订单回填任务 ====================

// OrderBackfillTask 定时回填缺失美元总额的旧订单
// 列表读取时也会回填，这里保证没人打开后台时数据同样收敛
type OrderBackfillTask struct {
	orders OrderBackfiller
	cron   *cron.Cron
	spec   string
	log    *zap.Logger
}

// NewOrderBackfillTask spec 为带秒字段的 cron 表达式
func NewOrderBackfillTask(orders OrderBackfiller, spec string, log *zap.Logger) *OrderBackfillTask {
	return &OrderBackfillTask{
		orders: orders,
		cron:   cron.New(cron.WithSeconds()),
		spec:   spec,
		log:    log,
	}
}

// Start 启动定时任务，spec 为空时不启动
func (t *OrderBackfillTask) Start() error {
	if t.spec == "" {
		t.log.Info("order backfill task disabled")
		return nil
	}
	if _, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.RunOnce(ctx)
	}); err != nil {
		return err
	}
	t.cron.Start()
	t.log.Info("order backfill task started", zap.String("spec", t.spec))
	return nil
}

// Stop 等待正在执行的回填结束
func (t *OrderBackfillTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.log.Info("order backfill task stopped")
}

// RunOnce 立即执行一次
func (t *OrderBackfillTask) RunOnce(ctx context.Context) int {
	filled, err := t.orders.BackfillLegacyTotals(ctx)
	if err != nil {
		t.log.Error("order backfill failed", zap.Int("filled", filled), zap.Error(err))
		return filled
	}
	if filled > 0 {
		t.log.Info("order backfill done", zap.Int("filled", filled))
	}
	return filled
}
