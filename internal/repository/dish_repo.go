// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chuan-dai/internal/model"
)

// DishRepository 菜品及菜品收藏的数据访问层
type DishRepository struct {
	db *gorm.DB
}

// NewDishRepository 创建 DishRepository 实例
func NewDishRepository(db *gorm.DB) *DishRepository {
	return &DishRepository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *DishRepository) WithTx(tx *gorm.DB) *DishRepository {
	return &DishRepository{db: tx}
}

// ListAvailable 获取可售菜品，最新的在前
// 参数:
//   - category: 分类过滤，为空表示全部
func (r *DishRepository) ListAvailable(ctx context.Context, category string) ([]model.Dish, error) {
	var dishes []model.Dish
	q := r.db.WithContext(ctx).Where("is_available = ?", true)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	err := q.Order("created_at DESC").Order("id DESC").Find(&dishes).Error
	return dishes, err
}

// GetByID 根据 ID 获取菜品，未找到返回 nil
func (r *DishRepository) GetByID(ctx context.Context, id int64) (*model.Dish, error) {
	var dish model.Dish
	err := r.db.WithContext(ctx).First(&dish, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dish, nil
}

// GetByIDs 批量获取菜品
// 返回:
//   - map[int64]*model.Dish: 以菜品 ID 为键，不存在的 ID 不会出现在结果中
func (r *DishRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Dish, error) {
	var dishes []model.Dish
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&dishes).Error; err != nil {
		return nil, err
	}
	result := make(map[int64]*model.Dish, len(dishes))
	for i := range dishes {
		result[dishes[i].ID] = &dishes[i]
	}
	return result, nil
}

// Count 菜品总数
func (r *DishRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Dish{}).Count(&count).Error
	return count, err
}

// CreateBatch 批量写入菜品
func (r *DishRepository) CreateBatch(ctx context.Context, dishes []model.Dish) error {
	return r.db.WithContext(ctx).CreateInBatches(dishes, 50).Error
}

// ListByCategories 按分类获取可售菜品，排除指定 ID
func (r *DishRepository) ListByCategories(ctx context.Context, categories []string, excludeIDs []int64, limit int) ([]model.Dish, error) {
	var dishes []model.Dish
	q := r.db.WithContext(ctx).
		Where("is_available = ?", true).
		Where("category IN ?", categories)
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&dishes).Error
	return dishes, err
}

// ==================== 收藏 ====================

// FavoriteExists 检查用户是否收藏了菜品
func (r *DishRepository) FavoriteExists(ctx context.Context, userID, dishID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Favorite{}).
		Where("user_id = ? AND dish_id = ?", userID, dishID).
		Count(&count).Error
	return count > 0, err
}

// AddFavorite 添加收藏
// 唯一索引冲突时什么都不做，重复添加是幂等的
func (r *DishRepository) AddFavorite(ctx context.Context, userID, dishID int64) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "dish_id"}},
		DoNothing: true,
	}).Create(&model.Favorite{UserID: userID, DishID: dishID}).Error
}

// RemoveFavorite 取消收藏
// 返回:
//   - int64: 实际删除的行数
func (r *DishRepository) RemoveFavorite(ctx context.Context, userID, dishID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND dish_id = ?", userID, dishID).
		Delete(&model.Favorite{})
	return result.RowsAffected, result.Error
}

// FavoriteDishIDs 用户收藏的全部菜品 ID
func (r *DishRepository) FavoriteDishIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Favorite{}).
		Where("user_id = ?", userID).
		Pluck("dish_id", &ids).Error
	return ids, err
}

// ListFavorites 用户收藏的菜品，最近收藏的在前
func (r *DishRepository) ListFavorites(ctx context.Context, userID int64) ([]model.Favorite, error) {
	var favorites []model.Favorite
	err := r.db.WithContext(ctx).
		Preload("Dish").
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&favorites).Error
	return favorites, err
}
