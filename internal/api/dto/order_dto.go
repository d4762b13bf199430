package dto

import "time"

// ==================== 请求 DTO ====================

// CreateOrderRequest 前台下单
type CreateOrderRequest struct {
	Items         []CartItem    `json:"items" binding:"required,min=1,dive"`
	TotalUSD      float64       `json:"totalUSD"`
	TotalUAH      float64       `json:"totalUAH"`
	Customer      OrderCustomer `json:"customer" binding:"required"`
	Delivery      OrderDelivery `json:"delivery" binding:"required"`
	PaymentMethod string        `json:"paymentMethod"`
}

// CartItem 购物车行，价格为客户端展示值
type CartItem struct {
	ID       string  `json:"id" binding:"required"`
	Name     string  `json:"name"`
	PriceUSD float64 `json:"priceUSD"`
	PriceUAH float64 `json:"priceUAH"`
	Quantity int     `json:"quantity" binding:"required,min=1"`
}

type OrderCustomer struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone" binding:"required"`
}

type OrderDelivery struct {
	City   string `json:"city"`
	Branch string `json:"branch"`
}

// UpdateTTNRequest 更新运单号
type UpdateTTNRequest struct {
	TTN string `json:"ttn"`
}

// UpdateOrderStatusRequest 更新状态（自由文本）
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ==================== 响应 DTO ====================

// CreateOrderResp 下单结果
type CreateOrderResp struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// OrderResp 订单，TotalUAH 按当前汇率派生
type OrderResp struct {
	ID                int64           `json:"id"`
	CustomerFirstName string          `json:"customer_first_name"`
	CustomerLastName  string          `json:"customer_last_name"`
	CustomerPhone     string          `json:"customer_phone"`
	DeliveryCity      string          `json:"delivery_city"`
	DeliveryBranch    string          `json:"delivery_branch"`
	PaymentMethod     string          `json:"payment_method"`
	TotalUSD          float64         `json:"totalUSD"`
	TotalUAH          float64         `json:"totalUAH"`
	Status            string          `json:"status"`
	TTN               *string         `json:"ttn"`
	CreatedAt         time.Time       `json:"created_at"`
	Items             []OrderItemResp `json:"items"`
}

type OrderItemResp struct {
	ID              int64   `json:"id"`
	ProductID       string  `json:"product_id"`
	ProductName     string  `json:"product_name"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
}
