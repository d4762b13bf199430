package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tesla_parts_api/internal/api/dto"
	"tesla_parts_api/internal/model"
	"tesla_parts_api/internal/repository"
)

// syncRunner 同步执行，记录错误
type syncRunner struct {
	mu   sync.Mutex
	errs []error
}

func (r *syncRunner) Go(_ string, fn func(ctx context.Context) error) {
	err := fn(context.Background())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

type recordingNotifier struct {
	orders []*model.Order
	err    error
}

func (n *recordingNotifier) NotifyOrderCreated(_ context.Context, order *model.Order) error {
	n.orders = append(n.orders, order)
	return n.err
}

func newOrderService(t *testing.T, notifier OrderNotifier, runner AsyncRunner) (*OrderService, *testEnv) {
	env := newTestEnv(t)
	svc := NewOrderService(repository.NewOrderRepository(env.db), env.pricing, notifier, runner, zap.NewNop())
	return svc, env
}

func orderRequest(items ...dto.CartItem) *dto.CreateOrderRequest {
	return &dto.CreateOrderRequest{
		Items:         items,
		Customer:      dto.OrderCustomer{FirstName: "Ivan", LastName: "Petrenko", Phone: "+380501234567"},
		Delivery:      dto.OrderDelivery{City: "Kyiv", Branch: "Branch 12"},
		PaymentMethod: "cod",
	}
}

func TestOrder_CreateComputesTotals(t *testing.T) {
	notifier := &recordingNotifier{}
	runner := &syncRunner{}
	svc, _ := newOrderService(t, notifier, runner)
	ctx := context.Background()

	created, err := svc.Create(ctx, orderRequest(
		dto.CartItem{ID: "p1", Name: "Handle", PriceUSD: 12.5, Quantity: 2},
		dto.CartItem{ID: "p2", Name: "Mirror", PriceUAH: 800, Quantity: 1},
		dto.CartItem{ID: "p3", Name: "Free sticker", Quantity: 3},
	))
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusNew, created.Status)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	// 12.5*2 + 800/40 + 0
	assert.Equal(t, 45.0, got.TotalUSD)
	assert.Equal(t, 1800.0, got.TotalUAH)
	require.Len(t, got.Items, 3)
	assert.Equal(t, 12.5, got.Items[0].PriceAtPurchase)
	assert.Equal(t, 20.0, got.Items[1].PriceAtPurchase)
	assert.Equal(t, 0.0, got.Items[2].PriceAtPurchase)

	require.Len(t, notifier.orders, 1)
	assert.Equal(t, created.ID, notifier.orders[0].ID)
	assert.Equal(t, 1800.0, notifier.orders[0].TotalUAH)
}

func TestOrder_ClientTotalWins(t *testing.T) {
	svc, _ := newOrderService(t, nil, nil)
	ctx := context.Background()

	req := orderRequest(dto.CartItem{ID: "p1", PriceUSD: 10, Quantity: 1})
	req.TotalUSD = 9.999
	created, err := svc.Create(ctx, req)
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.TotalUSD)
}

func TestOrder_NotificationFailureDoesNotFailOrder(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("telegram down")}
	runner := &syncRunner{}
	svc, _ := newOrderService(t, notifier, runner)

	created, err := svc.Create(context.Background(), orderRequest(dto.CartItem{ID: "p1", PriceUSD: 1, Quantity: 1}))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	require.Len(t, runner.errs, 1)
	assert.Error(t, runner.errs[0])
}

func TestOrder_CreateRejectsBadQuantity(t *testing.T) {
	svc, _ := newOrderService(t, nil, nil)

	_, err := svc.Create(context.Background(), orderRequest(dto.CartItem{ID: "p1", PriceUSD: 1, Quantity: 0}))
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.Create(context.Background(), orderRequest())
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestOrder_LegacyBackfillPersistedOnce(t *testing.T) {
	svc, env := newOrderService(t, nil, nil)
	ctx := context.Background()

	legacy := &model.Order{
		CustomerFirstName: "Old",
		Status:            model.OrderStatusNew,
		Items: []model.OrderItem{
			{ProductID: "p1", Quantity: 2, PriceAtPurchase: 800},
			{ProductID: "p2", Quantity: 1, PriceAtPurchase: 100},
		},
	}
	require.NoError(t, repository.NewOrderRepository(env.db).Create(ctx, legacy))

	list, err := svc.List(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	// (800*2 + 100) / 40
	assert.Equal(t, 42.5, list[0].TotalUSD)
	assert.Equal(t, 1700.0, list[0].TotalUAH)

	var stored model.Order
	require.NoError(t, env.db.First(&stored, legacy.ID).Error)
	assert.Equal(t, 42.5, stored.TotalUSD)

	// 汇率变化后美元总额不再变化，格里夫纳总额重新派生
	env.setRate(t, "50")
	list, err = svc.List(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, 42.5, list[0].TotalUSD)
	assert.Equal(t, 2125.0, list[0].TotalUAH)

	filled, err := svc.BackfillLegacyTotals(ctx)
	require.NoError(t, err)
	assert.Zero(t, filled)
}

func TestOrder_BackfillLegacyTotals(t *testing.T) {
	svc, env := newOrderService(t, nil, nil)
	ctx := context.Background()
	repo := repository.NewOrderRepository(env.db)

	require.NoError(t, repo.Create(ctx, &model.Order{Items: []model.OrderItem{{ProductID: "a", Quantity: 1, PriceAtPurchase: 400}}}))
	require.NoError(t, repo.Create(ctx, &model.Order{TotalUSD: 5, Items: []model.OrderItem{{ProductID: "b", Quantity: 1, PriceAtPurchase: 5}}}))
	require.NoError(t, repo.Create(ctx, &model.Order{}))

	filled, err := svc.BackfillLegacyTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, filled)
}

func TestOrder_UpdateStatusAndTTN(t *testing.T) {
	svc, _ := newOrderService(t, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, orderRequest(dto.CartItem{ID: "p1", PriceUSD: 3, Quantity: 1}))
	require.NoError(t, err)

	got, err := svc.UpdateStatus(ctx, created.ID, "  shipped ")
	require.NoError(t, err)
	assert.Equal(t, "shipped", got.Status)

	// 同值更新不报错
	_, err = svc.UpdateStatus(ctx, created.ID, "shipped")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, created.ID, "   ")
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.UpdateStatus(ctx, 999, "shipped")
	assert.Equal(t, KindNotFound, KindOf(err))

	got, err = svc.UpdateTTN(ctx, created.ID, "20450000000000")
	require.NoError(t, err)
	require.NotNil(t, got.TTN)
	assert.Equal(t, "20450000000000", *got.TTN)

	got, err = svc.UpdateTTN(ctx, created.ID, "")
	require.NoError(t, err)
	assert.Nil(t, got.TTN)
}

func TestOrder_ListNewestFirst(t *testing.T) {
	svc, _ := newOrderService(t, nil, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, orderRequest(dto.CartItem{ID: "p1", PriceUSD: 1, Quantity: 1}))
	require.NoError(t, err)
	second, err := svc.Create(ctx, orderRequest(dto.CartItem{ID: "p2", PriceUSD: 1, Quantity: 1}))
	require.NoError(t, err)

	list, err := svc.List(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestFormatOrderMessage(t *testing.T) {
	msg := FormatOrderMessage(&model.Order{
		BaseModel:         model.BaseModel{ID: 7},
		CustomerFirstName: "Ivan",
		CustomerLastName:  "Petrenko",
		CustomerPhone:     "+380",
		DeliveryCity:      "Kyiv",
		DeliveryBranch:    "12",
		PaymentMethod:     "cod",
		TotalUSD:          10,
		TotalUAH:          400,
		Items:             []model.OrderItem{{ProductID: "p1", ProductName: "Handle", Quantity: 2, PriceAtPurchase: 5}},
	})
	assert.Contains(t, msg, "New Order #7\n")
	assert.Contains(t, msg, "Customer: Ivan Petrenko\n")
	assert.Contains(t, msg, "Total: $10.00 (400.00 UAH)\n")
	assert.Contains(t, msg, "Delivery: Kyiv, 12\n")
	assert.Contains(t, msg, "- Handle [p1] x2 ($5.00)\n")
}
