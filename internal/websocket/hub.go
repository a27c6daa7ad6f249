package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"chuan-dai/internal/cache"
)

// Hub 是 WebSocket 连接的中心管理器
// 负责：
// 1. 管理每个用户的所有连接（多设备登录）
// 2. 把服务层的通知推送给在线用户
// 3. 配置 Redis 时经由频道广播，每个实例只投递给本地连接
type Hub struct {
	// 客户端映射：userID -> 连接集合
	clients map[int64]map[*Client]struct{}

	// 注册通道
	register chan *Client

	// 注销通道
	unregister chan *Client

	// Run 退出时关闭
	done chan struct{}

	// 互斥锁，保护并发访问
	mu sync.RWMutex

	// 为 nil 时只在本进程内投递
	broker *cache.RedisCache
}

// NewHub 创建 Hub 实例
// 参数:
//   - broker: Redis 缓存，为 nil 表示单实例部署
func NewHub(broker *cache.RedisCache) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		broker:     broker,
	}
}

// Run 启动 Hub 的主循环
// 应该在单独的 goroutine 中运行，ctx 取消后关闭所有连接并退出
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// StartBroker 订阅 Redis 通知频道
// 订阅确认后才返回，之后在后台把收到的通知投递给本地连接
func (h *Hub) StartBroker(ctx context.Context) error {
	if h.broker == nil {
		return nil
	}

	sub := h.broker.Subscribe(ctx, cache.NotifyChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe %s: %w", cache.NotifyChannel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil || env.Message == nil {
					zap.L().Warn("invalid notification", zap.String("payload", m.Payload))
					continue
				}
				h.deliver(env.UserID, env.Message)
			}
		}
	}()
	return nil
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.userID] = set
	}
	set[client] = struct{}{}

	zap.L().Debug("websocket client registered",
		zap.Int64("user_id", client.userID),
		zap.Int("connections", len(set)),
	)
}

// unregisterClient 注销客户端并关闭发送通道
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.clients[client.userID]
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	client.Close()

	zap.L().Debug("websocket client unregistered", zap.Int64("user_id", client.userID))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, set := range h.clients {
		for client := range set {
			client.Close()
		}
		delete(h.clients, userID)
	}
}

// NotifyUser 向用户的所有在线连接推送通知
// 配置 Redis 时发布到频道，由各实例的订阅协程投递；发布失败时退回本地投递
func (h *Hub) NotifyUser(userID int64, msgType string, payload interface{}) {
	msg := NewMessage(msgType, payload)

	if h.broker != nil {
		data, err := json.Marshal(envelope{UserID: userID, Message: msg})
		if err == nil {
			err = h.broker.Publish(context.Background(), cache.NotifyChannel, data)
		}
		if err == nil {
			return
		}
		zap.L().Warn("publish notification failed", zap.Int64("user_id", userID), zap.Error(err))
	}

	h.deliver(userID, msg)
}

// deliver 投递给本实例上的连接
func (h *Hub) deliver(userID int64, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		zap.L().Error("marshal notification failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		client.enqueue(data)
	}
}

// Register 注册客户端（供外部调用）
// Hub 已停止时直接关闭客户端
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister 注销客户端（供外部调用）
// Hub 已停止时所有连接都已关闭，直接返回
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ConnectionCount 获取用户当前的连接数
func (h *Hub) ConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
