// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// EmotionTag 照片情绪标签
const (
	EmotionHappy     = "HAPPY"
	EmotionExcited   = "EXCITED"
	EmotionWarm      = "WARM"
	EmotionNostalgic = "NOSTALGIC"
	EmotionFunny     = "FUNNY"
)

// ValidEmotionTag 判断情绪标签是否合法
func ValidEmotionTag(tag string) bool {
	switch tag {
	case EmotionHappy, EmotionExcited, EmotionWarm, EmotionNostalgic, EmotionFunny:
		return true
	}
	return false
}

// Photo 照片模型
// 对应数据库表 photos，收藏数和评论数由关联表统计得出
type Photo struct {
	ID int64 `gorm:"primaryKey" json:"id"`

	Title       string  `gorm:"size:100;not null" json:"title"`
	Description *string `gorm:"size:1000" json:"description,omitempty"`

	URL          string  `gorm:"size:500;not null" json:"url"`
	ThumbnailURL *string `gorm:"size:500" json:"thumbnail_url,omitempty"`
	MediumURL    *string `gorm:"size:500" json:"medium_url,omitempty"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`

	EmotionTag *string `gorm:"size:20" json:"emotion_tag,omitempty"`

	UploaderID  int64  `gorm:"index;not null" json:"uploader_id"`
	GatheringID *int64 `gorm:"index" json:"gathering_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Uploader  *User      `gorm:"foreignKey:UploaderID" json:"-"`
	Gathering *Gathering `gorm:"foreignKey:GatheringID" json:"gathering,omitempty"`
}

// TableName 指定表名
func (Photo) TableName() string {
	return "photos"
}

// PhotoFavorite 照片收藏
// (user_id, photo_id) 唯一
type PhotoFavorite struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"uniqueIndex:idx_photo_favorite_user_photo;not null" json:"user_id"`
	PhotoID   int64     `gorm:"uniqueIndex:idx_photo_favorite_user_photo;index;not null" json:"photo_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (PhotoFavorite) TableName() string {
	return "photo_favorites"
}

// PhotoComment 照片评论，只追加不修改
type PhotoComment struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"size:500;not null" json:"content"`
	PhotoID   int64     `gorm:"index;not null" json:"photo_id"`
	AuthorID  int64     `gorm:"index;not null" json:"author_id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	Author *User `gorm:"foreignKey:AuthorID" json:"-"`
}

// TableName 指定表名
func (PhotoComment) TableName() string {
	return "photo_comments"
}
