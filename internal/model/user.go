// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// 性别常量
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
	GenderOther  = "OTHER"
)

// User 用户模型
// 对应数据库表 users
// 注册时创建，编辑资料和登录时更新，不做物理删除
type User struct {
	// ID 用户唯一标识，自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// Account 登录账号，全局唯一
	Account string `gorm:"size:20;uniqueIndex;not null" json:"account"`

	// Phone 手机号，可选，用于验证码登录
	// 使用指针类型表示可以为 NULL，唯一索引允许多个 NULL
	Phone *string `gorm:"size:20;uniqueIndex" json:"phone,omitempty"`

	// PasswordHash 密码的 bcrypt 哈希值
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	Nickname *string    `gorm:"size:20" json:"nickname,omitempty"`
	Avatar   *string    `gorm:"size:500" json:"avatar,omitempty"`
	Gender   *string    `gorm:"size:10" json:"gender,omitempty"`
	Birthday *time.Time `gorm:"type:date" json:"birthday,omitempty"`
	Bio      *string    `gorm:"size:200" json:"bio,omitempty"`

	// Status 账号状态
	// 1: 正常
	// 0: 禁用
	Status int8 `gorm:"default:1" json:"status"`

	// LastLoginAt / LastLoginIP 最近一次登录信息
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP *string    `gorm:"size:64" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// DisplayName 返回展示用的名称
// 优先昵称，其次账号，都没有时为 Guest
func (u *User) DisplayName() string {
	if u == nil {
		return "Guest"
	}
	if u.Nickname != nil && *u.Nickname != "" {
		return *u.Nickname
	}
	if u.Account != "" {
		return u.Account
	}
	return "Guest"
}

// UserBrief 列表中展示的用户摘要
type UserBrief struct {
	ID       int64   `json:"id"`
	Nickname string  `json:"nickname"`
	Avatar   *string `json:"avatar,omitempty"`
}

// Brief 转换为用户摘要
func (u *User) Brief() *UserBrief {
	if u == nil {
		return nil
	}
	return &UserBrief{ID: u.ID, Nickname: u.DisplayName(), Avatar: u.Avatar}
}
