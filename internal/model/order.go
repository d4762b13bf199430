package model

// ==================== 订单状态 ====================

// OrderStatusNew 新建订单的默认状态
// 状态为自由文本，后台可写入任意值
const OrderStatusNew = "new"

// ==================== Order 订单主表 ====================

// Order 订单
// TotalUSD 为权威金额；TotalUAH 只在读取时按当前汇率派生，不落库
type Order struct {
	BaseModel

	// 客户信息
	CustomerFirstName string `gorm:"size:255"`
	CustomerLastName  string `gorm:"size:255"`
	CustomerPhone     string `gorm:"size:64"`

	// 配送信息
	DeliveryCity   string `gorm:"size:255"`
	DeliveryBranch string `gorm:"size:512"`
	PaymentMethod  string `gorm:"size:128"`

	// 金额
	TotalUSD float64 `gorm:"column:total_usd;default:0"`
	TotalUAH float64 `gorm:"-"`

	// 状态
	Status string  `gorm:"size:64;index;default:new"`
	TTN    *string `gorm:"column:ttn;size:64"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "orders"
}

// CustomerName 客户全名
func (o *Order) CustomerName() string {
	if o.CustomerLastName == "" {
		return o.CustomerFirstName
	}
	return o.CustomerFirstName + " " + o.CustomerLastName
}

// ==================== OrderItem 订单明细 ====================

// OrderItem 订单明细，创建后不可修改
// ProductID 为软引用，商品删除后仍保留
// PriceAtPurchase 为下单时的美元单价（旧数据为格里夫纳）
type OrderItem struct {
	ID              int64   `gorm:"primaryKey;autoIncrement"`
	OrderID         int64   `gorm:"index;not null"`
	ProductID       string  `gorm:"size:64;index"`
	ProductName     string  `gorm:"size:255"`
	Quantity        int     `gorm:"not null"`
	PriceAtPurchase float64 `gorm:"not null"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
