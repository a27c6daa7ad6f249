// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 订单状态常量
const (
	OrderStatusPending   = "PENDING"   // 待确认
	OrderStatusConfirmed = "CONFIRMED" // 已确认
	OrderStatusCompleted = "COMPLETED" // 已完成
	OrderStatusCancelled = "CANCELLED" // 已取消
)

// orderTransitions 合法的状态迁移
var orderTransitions = map[string][]string{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusCompleted},
}

// CanTransition 判断订单能否从 from 迁移到 to
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidOrderStatus 判断状态值是否合法
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Order 订单模型
// 对应数据库表 orders
// TotalAmount 在创建时等于所有明细 单价×数量 之和，之后不再变化
type Order struct {
	ID int64 `gorm:"primaryKey" json:"id"`

	// OrderNumber 订单号，格式 ORD-YYYYMMDD-XXXXXX
	OrderNumber string `gorm:"size:32;uniqueIndex;not null" json:"order_number"`

	CustomerID   int64  `gorm:"index;not null" json:"customer_id"`
	CustomerName string `gorm:"size:50;not null" json:"customer_name"`

	GatheringID *int64 `gorm:"index" json:"gathering_id,omitempty"`

	Remark *string `gorm:"size:500" json:"remark,omitempty"`

	Status      string          `gorm:"size:20;index;not null;default:PENDING" json:"status"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`

	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Items     []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Gathering *Gathering  `gorm:"foreignKey:GatheringID" json:"gathering,omitempty"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// OrderItem 订单明细
// DishName 和 Price 是下单时的快照，菜品后续改价不影响历史订单
type OrderItem struct {
	ID       int64           `gorm:"primaryKey" json:"id"`
	OrderID  int64           `gorm:"index;not null" json:"order_id"`
	DishID   int64           `gorm:"index;not null" json:"dish_id"`
	DishName string          `gorm:"size:100;not null" json:"dish_name"`
	Price    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity int             `gorm:"not null" json:"quantity"`
	Remark   *string         `gorm:"size:200" json:"remark,omitempty"`
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal 明细小计
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
