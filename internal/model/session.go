// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// Session 登录会话模型
// 对应数据库表 sessions
// ID 即浏览器 Cookie 中保存的不透明标识
type Session struct {
	// ID 会话标识，随机生成
	ID string `gorm:"primaryKey;size:64" json:"id"`

	// UserID 所属用户
	UserID int64 `gorm:"index;not null" json:"user_id"`

	// ExpiresAt 过期时间，活跃使用时会顺延
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`

	// UserAgent / IP 创建会话时的客户端信息
	UserAgent string `gorm:"size:255" json:"user_agent,omitempty"`
	IP        string `gorm:"size:64" json:"ip,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// User 所属用户（多对一关系）
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Session) TableName() string {
	return "sessions"
}

// Expired 判断会话在 now 时刻是否已过期
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
