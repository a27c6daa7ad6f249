// Package websocket 订阅服务端推送的订单和评论通知
package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// 消息类型常量，与服务端保持一致
const (
	TypePing  = "ping"
	TypePong  = "pong"
	TypeError = "error"

	TypeOrderCreated = "order:created"
	TypeOrderStatus  = "order:status"
	TypePhotoComment = "photo:comment"
)

const heartbeatInterval = 30 * time.Second

// Message WebSocket 消息结构
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Decode 把 Payload 解析到 v
func (m *Message) Decode(v interface{}) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("消息 %s 没有 payload", m.Type)
	}
	return json.Unmarshal(m.Payload, v)
}

// Client WebSocket 客户端
type Client struct {
	conn      *websocket.Conn
	serverURL string
	sendChan  chan []byte
	done      chan struct{}
	mu        sync.Mutex
	isRunning bool
	seq       int64
	onMessage func(*Message) // 消息回调
	onConnect func()         // 连接成功回调
	onClose   func()         // 连接关闭回调
}

// NewClient 创建 WebSocket 客户端
// 参数:
//   - serverURL: HTTP 服务器地址（如 http://localhost:8080）
//   - token: 访问令牌，通过 query 传给服务端
func NewClient(serverURL, token string) *Client {
	wsURL := strings.Replace(serverURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL = strings.TrimRight(wsURL, "/") + "/ws?token=" + url.QueryEscape(token)

	return &Client{
		serverURL: wsURL,
		sendChan:  make(chan []byte, 64),
		done:      make(chan struct{}),
	}
}

// OnMessage 设置消息回调
func (c *Client) OnMessage(handler func(*Message)) {
	c.onMessage = handler
}

// OnConnect 设置连接成功回调
func (c *Client) OnConnect(handler func()) {
	c.onConnect = handler
}

// OnClose 设置连接关闭回调
func (c *Client) OnClose(handler func()) {
	c.onClose = handler
}

// Connect 连接到服务器
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return fmt.Errorf("客户端已在运行")
	}
	c.mu.Unlock()

	conn, resp, err := websocket.DefaultDialer.Dial(c.serverURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("连接失败 (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("连接失败: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.isRunning = true
	c.done = make(chan struct{})
	c.mu.Unlock()

	if c.onConnect != nil {
		c.onConnect()
	}

	go c.readPump()
	go c.writePump()

	return nil
}

// Disconnect 断开连接
func (c *Client) Disconnect() {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return
	}
	c.isRunning = false
	close(c.done)
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	onClose := c.onClose
	c.mu.Unlock()

	if onClose != nil {
		onClose()
	}
}

// Done 连接关闭时关闭
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Ping 发送心跳，服务端以同一 message_id 回复 pong
func (c *Client) Ping() error {
	c.mu.Lock()
	c.seq++
	id := fmt.Sprintf("ping-%d", c.seq)
	c.mu.Unlock()
	return c.SendMessage(&Message{Type: TypePing, MessageID: id})
}

// SendMessage 发送消息
func (c *Client) SendMessage(msg *Message) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	if !c.IsRunning() {
		return fmt.Errorf("连接已关闭")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case c.sendChan <- data:
		return nil
	case <-c.Done():
		return fmt.Errorf("连接已关闭")
	default:
		return fmt.Errorf("发送缓冲区已满")
	}
}

// readPump 读取消息
func (c *Client) readPump() {
	defer c.Disconnect()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] 读取错误: %v", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[WS] 解析消息失败: %v", err)
			continue
		}

		if msg.Type == TypePong {
			continue
		}
		if c.onMessage != nil {
			c.onMessage(&msg)
		}
	}
}

// writePump 写入消息并定时发送心跳
func (c *Client) writePump() {
	ticker := time.NewTicker(heartbeatInterval)
	defer func() {
		ticker.Stop()
		c.Disconnect()
	}()

	done := c.Done()
	for {
		select {
		case <-done:
			return

		case data := <-c.sendChan:
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("[WS] 发送消息失败: %v", err)
				return
			}

		case <-ticker.C:
			if err := c.Ping(); err != nil {
				return
			}
		}
	}
}

// IsRunning 检查是否正在运行
func (c *Client) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isRunning
}
