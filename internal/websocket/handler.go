package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chuan-dai/internal/middleware"
	"chuan-dai/pkg/response"
)

// Handler 处理 WebSocket 连接
type Handler struct {
	hub      *Hub
	auth     *middleware.Authenticator
	upgrader websocket.Upgrader
}

// NewHandler 创建 WebSocket Handler
// 参数:
//   - hub: 连接管理器
//   - auth: 认证器，支持会话 Cookie 和 ?token=
//   - allowedOrigins: 允许的来源，包含 "*" 时不检查
func NewHandler(hub *Hub, auth *middleware.Authenticator, allowedOrigins []string) *Handler {
	return &Handler{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker 按 CORS 配置检查 Origin
// 没有 Origin 头的请求（CLI 等非浏览器客户端）直接放行
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[origin]
	}
}

// HandleWS 处理通知连接
// 路由: GET /ws
func (h *Handler) HandleWS(c *gin.Context) {
	if !h.auth.Authenticate(c, true) {
		response.Unauthorized(c, "请先登录")
		return
	}
	userID := middleware.GetUserID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, userID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	zap.L().Info("websocket connected", zap.Int64("user_id", userID))
}

// RegisterRoutes 注册 WebSocket 路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWS)
}
