// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DishCategory 菜品分类
const (
	CategoryAppetizer  = "APPETIZER"
	CategoryMainCourse = "MAIN_COURSE"
	CategorySoup       = "SOUP"
	CategoryDessert    = "DESSERT"
	CategoryBeverage   = "BEVERAGE"
)

// ValidCategory 判断分类是否合法
func ValidCategory(c string) bool {
	switch c {
	case CategoryAppetizer, CategoryMainCourse, CategorySoup, CategoryDessert, CategoryBeverage:
		return true
	}
	return false
}

// Dish 菜品模型
// 对应数据库表 dishes，属于静态参考数据，由初始数据写入
type Dish struct {
	ID int64 `gorm:"primaryKey" json:"id"`

	// Name / NameEn 中英文名称
	Name   string `gorm:"size:100;not null" json:"name"`
	NameEn string `gorm:"size:100" json:"name_en"`

	Description *string `gorm:"size:500" json:"description,omitempty"`
	DescEn      *string `gorm:"size:500" json:"desc_en,omitempty"`

	// Price 价格，保留两位小数
	Price decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`

	Image    *string `gorm:"size:500" json:"image,omitempty"`
	Category string  `gorm:"size:20;index;not null" json:"category"`

	IsSpicy      bool `gorm:"default:false" json:"is_spicy"`
	IsVegetarian bool `gorm:"default:false" json:"is_vegetarian"`
	IsAvailable  bool `gorm:"default:true;index" json:"is_available"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Dish) TableName() string {
	return "dishes"
}

// Favorite 菜品收藏
// (user_id, dish_id) 唯一
type Favorite struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"uniqueIndex:idx_favorite_user_dish;not null" json:"user_id"`
	DishID    int64     `gorm:"uniqueIndex:idx_favorite_user_dish;index;not null" json:"dish_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Dish *Dish `gorm:"foreignKey:DishID" json:"dish,omitempty"`
}

// TableName 指定表名
func (Favorite) TableName() string {
	return "favorites"
}
