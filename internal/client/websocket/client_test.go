package websocket

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newEchoServer 校验 token 后把 ping 回复为 pong，并推送一条订单通知
func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" || r.URL.Query().Get("token") != "tok en" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteJSON(map[string]interface{}{
			"type":      TypeOrderStatus,
			"payload":   map[string]interface{}{"order_id": 7, "status": "CONFIRMED"},
			"timestamp": time.Now().UnixMilli(),
		})

		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == TypePing {
				conn.WriteJSON(Message{Type: TypePong, MessageID: msg.MessageID})
				conn.WriteJSON(Message{Type: "echo", MessageID: msg.MessageID})
			}
		}
	}))
}

func TestClientReceivesNotifications(t *testing.T) {
	server := newEchoServer(t)
	defer server.Close()

	received := make(chan *Message, 4)
	client := NewClient(server.URL, "tok en")
	client.OnMessage(func(msg *Message) { received <- msg })

	if err := client.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Disconnect()

	select {
	case msg := <-received:
		if msg.Type != TypeOrderStatus {
			t.Fatalf("Expected %s, got %s", TypeOrderStatus, msg.Type)
		}
		var payload struct {
			OrderID int64  `json:"order_id"`
			Status  string `json:"status"`
		}
		if err := msg.Decode(&payload); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if payload.OrderID != 7 || payload.Status != "CONFIRMED" {
			t.Errorf("Expected order 7 CONFIRMED, got %+v", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}

	// pong 被客户端吞掉，只有 echo 交给回调
	if err := client.Ping(); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	select {
	case msg := <-received:
		if msg.Type != "echo" || msg.MessageID != "ping-1" {
			t.Errorf("Expected echo for ping-1, got %s %s", msg.Type, msg.MessageID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echo")
	}
}

func TestClientRejectedWithoutToken(t *testing.T) {
	server := newEchoServer(t)
	defer server.Close()

	client := NewClient(server.URL, "wrong")
	if err := client.Connect(); err == nil {
		client.Disconnect()
		t.Fatal("Expected connect to fail")
	}
	if client.IsRunning() {
		t.Error("Expected client not running")
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	server := newEchoServer(t)
	defer server.Close()

	closed := 0
	client := NewClient(server.URL+"/", "tok en")
	client.OnClose(func() { closed++ })
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	client.Disconnect()
	client.Disconnect()
	if closed != 1 {
		t.Errorf("Expected OnClose once, got %d", closed)
	}
	select {
	case <-client.Done():
	default:
		t.Error("Expected Done to be closed")
	}

	if err := client.SendMessage(&Message{Type: TypePing}); err == nil {
		t.Error("Expected send after disconnect to fail")
	}
}
