// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// Gathering 聚会
// 照片和订单可以关联到某次聚会，通过邀请码分享
type Gathering struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:100;not null" json:"title"`
	Description *string   `gorm:"size:1000" json:"description,omitempty"`
	Date        time.Time `gorm:"index;not null" json:"date"`
	Location    *string   `gorm:"size:200" json:"location,omitempty"`
	InviteCode  string    `gorm:"size:6;uniqueIndex;not null" json:"invite_code"`
	HostID      int64     `gorm:"index;not null" json:"host_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Gathering) TableName() string {
	return "gatherings"
}
