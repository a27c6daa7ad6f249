// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"chuan-dai/internal/model"
)

// GatheringRepository 聚会数据访问层
type GatheringRepository struct {
	db *gorm.DB
}

// NewGatheringRepository 创建 GatheringRepository 实例
func NewGatheringRepository(db *gorm.DB) *GatheringRepository {
	return &GatheringRepository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *GatheringRepository) WithTx(tx *gorm.DB) *GatheringRepository {
	return &GatheringRepository{db: tx}
}

// Create 创建聚会
func (r *GatheringRepository) Create(ctx context.Context, g *model.Gathering) error {
	return r.db.WithContext(ctx).Create(g).Error
}

// GetByID 根据 ID 获取聚会，未找到返回 nil
func (r *GatheringRepository) GetByID(ctx context.Context, id int64) (*model.Gathering, error) {
	var g model.Gathering
	err := r.db.WithContext(ctx).First(&g, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

// GetByInviteCode 根据邀请码获取聚会，未找到返回 nil
func (r *GatheringRepository) GetByInviteCode(ctx context.Context, code string) (*model.Gathering, error) {
	var g model.Gathering
	err := r.db.WithContext(ctx).Where("invite_code = ?", code).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

// ExistsByInviteCode 检查邀请码是否已被使用
func (r *GatheringRepository) ExistsByInviteCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Gathering{}).Where("invite_code = ?", code).Count(&count).Error
	return count > 0, err
}

// List 获取全部聚会，日期最近的在前
func (r *GatheringRepository) List(ctx context.Context) ([]model.Gathering, error) {
	var gatherings []model.Gathering
	err := r.db.WithContext(ctx).Order("date DESC").Order("id DESC").Find(&gatherings).Error
	return gatherings, err
}
