// Package service 提供业务逻辑层的实现
// 服务层封装具体的业务逻辑，协调 Repository、缓存和外部组件
package service

import (
	"errors"
	"strings"
)

// 通知类型
const (
	NotifyOrderCreated = "order:created"
	NotifyOrderStatus  = "order:status"
	NotifyPhotoComment = "photo:comment"
)

// 通用业务错误
var (
	ErrForbidden = errors.New("无权操作")
)

// Notifier 向在线用户推送实时通知
type Notifier interface {
	NotifyUser(userID int64, msgType string, payload interface{})
}

// NopNotifier 不推送任何通知
type NopNotifier struct{}

func (NopNotifier) NotifyUser(int64, string, interface{}) {}

// ClientMeta 发起请求的客户端信息
type ClientMeta struct {
	IP        string
	UserAgent string
}

// isDuplicateKey 判断是否为唯一索引冲突
// 不同驱动的错误文本不同，开启 TranslateError 时为 gorm.ErrDuplicatedKey
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
