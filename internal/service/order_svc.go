package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tesla_parts_api/internal/api/dto"
	"tesla_parts_api/internal/model"
	"tesla_parts_api/internal/repository"
)

// OrderNotifier 新订单通知
type OrderNotifier interface {
	NotifyOrderCreated(ctx context.Context, order *model.Order) error
}

// AsyncRunner 后台执行器，提交后立即返回
type AsyncRunner interface {
	Go(name string, fn func(ctx context.Context) error)
}

// ==================== OrderService 订单 ====================

type OrderService struct {
	orderRepo repository.OrderRepository
	pricing   *PricingService
	notifier  OrderNotifier
	runner    AsyncRunner
	log       *zap.Logger
}

// NewOrderService 创建订单服务，notifier 为 nil 时不发送通知
func NewOrderService(orderRepo repository.OrderRepository, pricing *PricingService, notifier OrderNotifier, runner AsyncRunner, log *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		pricing:   pricing,
		notifier:  notifier,
		runner:    runner,
		log:       log,
	}
}

// Create 前台下单
// 单价：客户端美元价 > 格里夫纳价按汇率换算 > 0；总额：客户端美元总额 > 明细合计
func (s *OrderService) Create(ctx context.Context, req *dto.CreateOrderRequest) (*dto.CreateOrderResp, error) {
	if len(req.Items) == 0 {
		return nil, Validation("order must contain at least one item")
	}
	rate := s.pricing.ResolveExchangeRate(ctx)

	order := &model.Order{
		CustomerFirstName: strings.TrimSpace(req.Customer.FirstName),
		CustomerLastName:  strings.TrimSpace(req.Customer.LastName),
		CustomerPhone:     strings.TrimSpace(req.Customer.Phone),
		DeliveryCity:      strings.TrimSpace(req.Delivery.City),
		DeliveryBranch:    strings.TrimSpace(req.Delivery.Branch),
		PaymentMethod:     strings.TrimSpace(req.PaymentMethod),
		Status:            model.OrderStatusNew,
	}

	sum := decimal.Zero
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, Validation("item %s quantity must be at least 1", item.ID)
		}
		unit := UnitPriceUSD(item.PriceUSD, item.PriceUAH, rate)
		order.Items = append(order.Items, model.OrderItem{
			ProductID:       item.ID,
			ProductName:     item.Name,
			Quantity:        item.Quantity,
			PriceAtPurchase: unit,
		})
		sum = sum.Add(decimal.NewFromFloat(unit).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if req.TotalUSD > 0 {
		order.TotalUSD = Round2(req.TotalUSD)
	} else {
		order.TotalUSD, _ = sum.Round(2).Float64()
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}
	s.log.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.Float64("total_usd", order.TotalUSD),
	)

	s.dispatchNotification(order, rate)
	return &dto.CreateOrderResp{ID: order.ID, Status: order.Status}, nil
}

// dispatchNotification 提交后异步通知，失败只记日志
func (s *OrderService) dispatchNotification(order *model.Order, rate float64) {
	if s.notifier == nil || s.runner == nil {
		return
	}
	snapshot := *order
	snapshot.Items = append([]model.OrderItem(nil), order.Items...)
	snapshot.TotalUAH = Round2(snapshot.TotalUSD * rate)

	s.runner.Go("order-notify", func(ctx context.Context) error {
		return s.notifier.NotifyOrderCreated(ctx, &snapshot)
	})
}

// List 订单列表，新单在前；旧订单美元总额回填一次
func (s *OrderService) List(ctx context.Context, filter repository.OrderFilter) ([]*dto.OrderResp, error) {
	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	rate := s.pricing.ResolveExchangeRate(ctx)

	out := make([]*dto.OrderResp, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		if err := s.backfill(ctx, o, rate); err != nil {
			return nil, err
		}
		out = append(out, toOrderResp(o, rate))
	}
	return out, nil
}

// Get 单个订单
func (s *OrderService) Get(ctx context.Context, id int64) (*dto.OrderResp, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, NotFound("Order")
	}
	rate := s.pricing.ResolveExchangeRate(ctx)
	if err := s.backfill(ctx, order, rate); err != nil {
		return nil, err
	}
	return toOrderResp(order, rate), nil
}

// BackfillLegacyTotals 回填所有缺失美元总额的旧订单，返回回填数量
func (s *OrderService) BackfillLegacyTotals(ctx context.Context) (int, error) {
	orders, err := s.orderRepo.List(ctx, repository.OrderFilter{})
	if err != nil {
		return 0, err
	}
	rate := s.pricing.ResolveExchangeRate(ctx)

	filled := 0
	for i := range orders {
		o := &orders[i]
		if o.TotalUSD > 0 {
			continue
		}
		if err := s.backfill(ctx, o, rate); err != nil {
			return filled, err
		}
		if o.TotalUSD > 0 {
			filled++
		}
	}
	return filled, nil
}

// UpdateTTN 更新运单号，空字符串清空
func (s *OrderService) UpdateTTN(ctx context.Context, id int64, ttn string) (*dto.OrderResp, error) {
	var value *string
	if t := strings.TrimSpace(ttn); t != "" {
		value = &t
	}
	if err := s.updateFields(ctx, id, map[string]interface{}{"ttn": value}); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// UpdateStatus 更新状态，自由文本，去空白后不能为空
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status string) (*dto.OrderResp, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, Validation("status must not be empty")
	}
	if err := s.updateFields(ctx, id, map[string]interface{}{"status": status}); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// updateFields 先确认订单存在；MySQL 值未变化时影响行数为 0，不视为缺失
func (s *OrderService) updateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if order == nil {
		return NotFound("Order")
	}
	err = s.orderRepo.UpdateFields(ctx, id, fields)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// backfill 旧订单明细单价为格里夫纳，按当前汇率换算后落库
func (s *OrderService) backfill(ctx context.Context, o *model.Order, rate float64) error {
	if o.TotalUSD > 0 || len(o.Items) == 0 {
		return nil
	}
	total := LegacyTotalUSD(o.Items, rate)
	if total <= 0 {
		return nil
	}
	if err := s.orderRepo.UpdateTotalUSD(ctx, o.ID, total); err != nil {
		return err
	}
	o.TotalUSD = total
	s.log.Info("legacy order total backfilled", zap.Int64("order_id", o.ID), zap.Float64("total_usd", total))
	return nil
}

// UnitPriceUSD 下单单价
func UnitPriceUSD(priceUSD, priceUAH, rate float64) float64 {
	switch {
	case priceUSD > 0:
		return priceUSD
	case priceUAH > 0:
		return UAHToUSD(priceUAH, rate)
	}
	return 0
}

// LegacyTotalUSD Σ(单价 / 汇率 × 数量)，保留两位
func LegacyTotalUSD(items []model.OrderItem, rate float64) float64 {
	if rate <= 0 {
		rate = 1
	}
	r := decimal.NewFromFloat(rate)
	sum := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.PriceAtPurchase).Div(r).Mul(decimal.NewFromInt(int64(it.Quantity)))
		sum = sum.Add(line)
	}
	total, _ := sum.Round(2).Float64()
	return total
}

func toOrderResp(o *model.Order, rate float64) *dto.OrderResp {
	resp := &dto.OrderResp{
		ID:                o.ID,
		CustomerFirstName: o.CustomerFirstName,
		CustomerLastName:  o.CustomerLastName,
		CustomerPhone:     o.CustomerPhone,
		DeliveryCity:      o.DeliveryCity,
		DeliveryBranch:    o.DeliveryBranch,
		PaymentMethod:     o.PaymentMethod,
		TotalUSD:          o.TotalUSD,
		TotalUAH:          Round2(o.TotalUSD * rate),
		Status:            o.Status,
		TTN:               o.TTN,
		CreatedAt:         o.CreatedAt,
		Items:             make([]dto.OrderItemResp, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, dto.OrderItemResp{
			ID:              it.ID,
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.PriceAtPurchase,
		})
	}
	return resp
}
