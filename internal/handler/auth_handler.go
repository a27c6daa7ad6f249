package handler

import (
	"github.com/gin-gonic/gin"

	"chuan-dai/internal/middleware"
	"chuan-dai/internal/service"
	"chuan-dai/pkg/response"
)

// AuthHandler 认证请求处理器
// 处理注册、登录、验证码、重置密码和登出
type AuthHandler struct {
	authService *service.AuthService
	auth        *middleware.Authenticator
}

// NewAuthHandler 创建 AuthHandler 实例
// 参数:
//   - authService: 认证服务
//   - auth: 用于读写会话 Cookie
func NewAuthHandler(authService *service.AuthService, auth *middleware.Authenticator) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		auth:        auth,
	}
}

// SignUp 注册
// @Summary 注册新账号
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body service.SignUpRequest true "注册信息"
// @Success 200 {object} response.Response{data=service.AuthResult}
// @Router /api/v1/auth/sign-up [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req service.SignUpRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.SignUp(c.Request.Context(), &req, clientMeta(c))
	if err != nil {
		respondError(c, err, "注册失败")
		return
	}

	h.auth.SetSessionCookie(c, result.Session.ID, result.Session.ExpiresAt)
	response.SuccessWithMessage(c, "注册成功", result)
}

// SignIn 账号密码登录
// @Summary 账号密码登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body service.SignInRequest true "登录信息"
// @Success 200 {object} response.Response{data=service.AuthResult}
// @Router /api/v1/auth/sign-in [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req service.SignInRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.SignIn(c.Request.Context(), &req, clientMeta(c))
	if err != nil {
		respondError(c, err, "登录失败")
		return
	}

	h.auth.SetSessionCookie(c, result.Session.ID, result.Session.ExpiresAt)
	response.SuccessWithMessage(c, "登录成功", result)
}

// SendOTP 发送短信验证码
// @Router /api/v1/auth/otp/send [post]
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req service.SendOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.SendOTP(c.Request.Context(), &req); err != nil {
		respondError(c, err, "验证码发送失败")
		return
	}

	response.SuccessWithMessage(c, "验证码已发送", nil)
}

// SignInWithOTP 手机验证码登录
// @Router /api/v1/auth/otp/sign-in [post]
func (h *AuthHandler) SignInWithOTP(c *gin.Context) {
	var req service.OTPSignInRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.SignInWithOTP(c.Request.Context(), &req, clientMeta(c))
	if err != nil {
		respondError(c, err, "登录失败")
		return
	}

	h.auth.SetSessionCookie(c, result.Session.ID, result.Session.ExpiresAt)
	response.SuccessWithMessage(c, "登录成功", result)
}

// ResetPassword 通过验证码重置密码
// @Router /api/v1/auth/password/reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req service.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), &req); err != nil {
		respondError(c, err, "重置密码失败")
		return
	}

	response.SuccessWithMessage(c, "密码已重置，请重新登录", nil)
}

// SignOutRequest 登出请求，请求体可省略
type SignOutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SignOut 登出
// 删除会话并把 Bearer Token 和请求体中的 Refresh Token 加入黑名单，没有登录时同样返回成功
// @Router /api/v1/auth/sign-out [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	var req SignOutRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	token, exp := middleware.GetToken(c)
	if err := h.authService.SignOut(c.Request.Context(), middleware.GetSessionID(c), token, exp, req.RefreshToken); err != nil {
		respondError(c, err, "登出失败")
		return
	}

	h.auth.ClearSessionCookie(c)
	response.SuccessWithMessage(c, "登出成功", nil)
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken 使用 Refresh Token 换取新的 Token，旧的 Refresh Token 随即作废
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err, "刷新 Token 失败")
		return
	}

	response.Success(c, result)
}
