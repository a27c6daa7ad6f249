// Package websocket 提供 WebSocket 通信功能
// 向在线用户推送订单和评论通知
package websocket

import (
	"time"

	"chuan-dai/internal/service"
)

// MessageType 消息类型常量
const (
	// 客户端 → 服务端
	TypePing = "ping" // 心跳

	// 服务端 → 客户端
	TypeOrderCreated = service.NotifyOrderCreated // 新订单
	TypeOrderStatus  = service.NotifyOrderStatus  // 订单状态变更
	TypePhotoComment = service.NotifyPhotoComment // 照片收到评论

	// 通用
	TypeError = "error" // 错误消息
	TypePong  = "pong"  // 心跳响应
)

// Message WebSocket 消息结构
// 所有消息都使用这个统一的结构
type Message struct {
	Type      string      `json:"type"`                 // 消息类型
	Payload   interface{} `json:"payload,omitempty"`    // 消息内容
	Timestamp int64       `json:"timestamp"`            // 时间戳（毫秒）
	MessageID string      `json:"message_id,omitempty"` // 消息ID，客户端 ping 时带上，pong 原样返回
}

// NewMessage 创建新消息
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewMessageWithID 创建带消息ID的新消息
func NewMessageWithID(msgType string, payload interface{}, messageID string) *Message {
	msg := NewMessage(msgType, payload)
	msg.MessageID = messageID
	return msg
}

// ErrorPayload 错误消息 Payload
type ErrorPayload struct {
	Code    int    `json:"code"`    // 错误码
	Message string `json:"message"` // 错误信息
}

// envelope 通过 Redis 频道在实例之间转发的通知
type envelope struct {
	UserID  int64    `json:"user_id"`
	Message *Message `json:"message"`
}
