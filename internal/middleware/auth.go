// Package middleware 提供 HTTP 请求的中间件
// 包括会话/JWT 认证、CORS 跨域、日志记录等
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chuan-dai/internal/service"
	"chuan-dai/pkg/jwt"
	"chuan-dai/pkg/response"
)

// 上下文中保存的认证信息
const (
	ctxUserID    = "user_id"
	ctxAccount   = "account"
	ctxSessionID = "session_id"
	ctxToken     = "token"
	ctxTokenExp  = "token_exp"
)

// TokenRevocationChecker 检查 Token 是否已登出
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, token string) bool
}

// Authenticator 解析请求中的登录凭据
// 浏览器使用会话 Cookie，CLI 等 API 客户端使用 Bearer Token
type Authenticator struct {
	sessions   *service.SessionService
	jwtService *jwt.JWTService
	revoked    TokenRevocationChecker
	cookieName string
	secure     bool
}

// NewAuthenticator 创建 Authenticator 实例
// 参数:
//   - sessions: 会话服务
//   - jwtService: JWT 服务
//   - revoked: Token 黑名单检查
//   - cookieName: 会话 Cookie 名称
//   - secure: 是否只通过 HTTPS 发送 Cookie（release 模式）
func NewAuthenticator(
	sessions *service.SessionService,
	jwtService *jwt.JWTService,
	revoked TokenRevocationChecker,
	cookieName string,
	secure bool,
) *Authenticator {
	return &Authenticator{
		sessions:   sessions,
		jwtService: jwtService,
		revoked:    revoked,
		cookieName: cookieName,
		secure:     secure,
	}
}

// Authenticate 解析凭据并把用户信息写入上下文
// 依次尝试会话 Cookie、Authorization 头，allowQuery 为 true 时再尝试 ?token=
// 返回:
//   - bool: 是否认证成功
func (a *Authenticator) Authenticate(c *gin.Context, allowQuery bool) bool {
	if a.fromSession(c) {
		return true
	}

	token := bearerToken(c)
	if token == "" && allowQuery {
		token = c.Query("token")
	}
	if token == "" {
		return false
	}
	return a.fromToken(c, token)
}

func (a *Authenticator) fromSession(c *gin.Context) bool {
	id, err := c.Cookie(a.cookieName)
	if err != nil || id == "" {
		return false
	}

	session, renewed, err := a.sessions.Validate(c.Request.Context(), id)
	if err != nil {
		zap.L().Error("validate session failed", zap.Error(err))
		return false
	}
	if session == nil {
		// 过期或已登出的 Cookie 直接清掉
		a.ClearSessionCookie(c)
		return false
	}
	if renewed {
		a.SetSessionCookie(c, session.ID, session.ExpiresAt)
	}

	c.Set(ctxUserID, session.UserID)
	c.Set(ctxAccount, session.User.Account)
	c.Set(ctxSessionID, session.ID)
	return true
}

func (a *Authenticator) fromToken(c *gin.Context, token string) bool {
	claims, err := a.jwtService.ValidateToken(token)
	if err != nil {
		return false
	}
	if a.revoked != nil && a.revoked.IsTokenRevoked(c.Request.Context(), token) {
		return false
	}

	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxAccount, claims.Account)
	c.Set(ctxToken, token)
	if claims.ExpiresAt != nil {
		c.Set(ctxTokenExp, claims.ExpiresAt.Time)
	}
	return true
}

// SetSessionCookie 下发会话 Cookie
func (a *Authenticator) SetSessionCookie(c *gin.Context, id string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.cookieName, id, maxAge, "/", "", a.secure, true)
}

// ClearSessionCookie 删除会话 Cookie
func (a *Authenticator) ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.cookieName, "", -1, "/", "", a.secure, true)
}

// AuthMiddleware 创建必须登录的认证中间件
// 未登录返回 401 "请先登录"
func AuthMiddleware(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Authenticate(c, false) {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware 创建可选的认证中间件
// 凭据有效时写入用户信息，否则以游客身份继续处理
func OptionalAuthMiddleware(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		a.Authenticate(c, false)
		c.Next()
	}
}

// bearerToken 从 Authorization 头读取 Bearer Token
func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetUserID 从上下文获取用户 ID
// 返回:
//   - int64: 用户 ID，如果未认证返回 0
func GetUserID(c *gin.Context) int64 {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0
	}
	return userID.(int64)
}

// GetAccount 从上下文获取账号
func GetAccount(c *gin.Context) string {
	return c.GetString(ctxAccount)
}

// GetSessionID 从上下文获取会话 ID，Token 认证时为空
func GetSessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}

// GetToken 从上下文获取 Bearer Token 及其过期时间
func GetToken(c *gin.Context) (string, time.Time) {
	return c.GetString(ctxToken), c.GetTime(ctxTokenExp)
}
