// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"chuan-dai/internal/model"
)

// OrderRepository 订单数据访问层
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建 OrderRepository 实例
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

// Transaction 在事务中执行 fn
// fn 返回错误时回滚，否则提交
func (r *OrderRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// Create 创建订单
// Items 会随订单一起写入
func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetByID 根据 ID 获取订单（含明细），未找到返回 nil
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Gathering").
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ListByCustomer 获取顾客的订单，最新的在前
// 参数:
//   - status: 状态过滤，为空表示全部
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID int64, status string) ([]model.Order, error) {
	var orders []model.Order
	q := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("customer_id = ?", customerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at DESC").Order("id DESC").Find(&orders).Error
	return orders, err
}

// UpdateStatus 有条件地更新订单状态
// 只有当前状态仍为 from 时才会更新，并发的两次迁移只有一个能成功
// 参数:
//   - fields: 除 status 外需要同时更新的字段（如 confirmed_at）
//
// 返回:
//   - int64: 受影响的行数，0 表示状态已被其他请求修改
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, from, to string, fields map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}
