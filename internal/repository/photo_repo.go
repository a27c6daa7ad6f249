// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chuan-dai/internal/model"
)

// PhotoRepository 照片、照片收藏和评论的数据访问层
type PhotoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository 创建 PhotoRepository 实例
func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create 保存照片
func (r *PhotoRepository) Create(ctx context.Context, photo *model.Photo) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

// GetByID 获取照片详情（含上传者和聚会），未找到返回 nil
func (r *PhotoRepository) GetByID(ctx context.Context, id int64) (*model.Photo, error) {
	var photo model.Photo
	err := r.db.WithContext(ctx).Preload("Uploader").Preload("Gathering").First(&photo, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &photo, nil
}

// Exists 检查照片是否存在
func (r *PhotoRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Photo{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// List 分页获取照片，最新的在前
// 返回:
//   - []model.Photo: 当前页照片（含上传者）
//   - int64: 照片总数
func (r *PhotoRepository) List(ctx context.Context, offset, limit int) ([]model.Photo, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Photo{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var photos []model.Photo
	err := r.db.WithContext(ctx).
		Preload("Uploader").
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&photos).Error
	return photos, total, err
}

// ==================== 收藏 ====================

// FavoriteExists 检查用户是否收藏了照片
func (r *PhotoRepository) FavoriteExists(ctx context.Context, userID, photoID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PhotoFavorite{}).
		Where("user_id = ? AND photo_id = ?", userID, photoID).
		Count(&count).Error
	return count > 0, err
}

// AddFavorite 添加照片收藏，重复添加是幂等的
func (r *PhotoRepository) AddFavorite(ctx context.Context, userID, photoID int64) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "photo_id"}},
		DoNothing: true,
	}).Create(&model.PhotoFavorite{UserID: userID, PhotoID: photoID}).Error
}

// RemoveFavorite 取消照片收藏，返回删除的行数
func (r *PhotoRepository) RemoveFavorite(ctx context.Context, userID, photoID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND photo_id = ?", userID, photoID).
		Delete(&model.PhotoFavorite{})
	return result.RowsAffected, result.Error
}

// FavoritedPhotoIDs 返回 photoIDs 中被用户收藏的那些
func (r *PhotoRepository) FavoritedPhotoIDs(ctx context.Context, userID int64, photoIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool)
	if userID == 0 || len(photoIDs) == 0 {
		return result, nil
	}
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.PhotoFavorite{}).
		Where("user_id = ? AND photo_id IN ?", userID, photoIDs).
		Pluck("photo_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

type photoCount struct {
	PhotoID int64
	Count   int64
}

// CountFavorites 统计每张照片的收藏数
func (r *PhotoRepository) CountFavorites(ctx context.Context, photoIDs []int64) (map[int64]int64, error) {
	return r.countBy(ctx, &model.PhotoFavorite{}, photoIDs)
}

// CountComments 统计每张照片的评论数
func (r *PhotoRepository) CountComments(ctx context.Context, photoIDs []int64) (map[int64]int64, error) {
	return r.countBy(ctx, &model.PhotoComment{}, photoIDs)
}

func (r *PhotoRepository) countBy(ctx context.Context, m interface{}, photoIDs []int64) (map[int64]int64, error) {
	result := make(map[int64]int64)
	if len(photoIDs) == 0 {
		return result, nil
	}
	var rows []photoCount
	err := r.db.WithContext(ctx).Model(m).
		Select("photo_id, COUNT(*) AS count").
		Where("photo_id IN ?", photoIDs).
		Group("photo_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.PhotoID] = row.Count
	}
	return result, nil
}

// ==================== 评论 ====================

// CreateComment 添加评论
func (r *PhotoRepository) CreateComment(ctx context.Context, comment *model.PhotoComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// ListComments 获取照片评论（含作者），最早的在前
func (r *PhotoRepository) ListComments(ctx context.Context, photoID int64) ([]model.PhotoComment, error) {
	var comments []model.PhotoComment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("photo_id = ?", photoID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	return comments, err
}
