package handler

import (
	"github.com/gin-gonic/gin"

	"chuan-dai/internal/middleware"
	"chuan-dai/internal/service"
	"chuan-dai/pkg/response"
)

// UserHandler 用户资料请求处理器
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler 创建 UserHandler 实例
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetProfile 获取当前用户资料
// @Summary 获取个人资料
// @Tags 用户
// @Security Bearer
// @Produce json
// @Success 200 {object} response.Response{data=model.User}
// @Router /api/v1/users/me [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.userService.GetProfile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "获取用户信息失败")
		return
	}

	response.Success(c, user)
}

// UpdateProfile 更新当前用户资料
// @Summary 编辑个人资料
// @Tags 用户
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body service.UpdateProfileRequest true "更新信息"
// @Success 200 {object} response.Response{data=model.User}
// @Router /api/v1/users/me [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req service.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err, "更新失败")
		return
	}

	response.SuccessWithMessage(c, "更新成功", user)
}

// ChangePassword 修改密码
// 当前会话保留，其他设备上的会话失效
// @Router /api/v1/users/me/password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req service.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	err := h.userService.ChangePassword(c.Request.Context(), middleware.GetUserID(c), middleware.GetSessionID(c), &req)
	if err != nil {
		respondError(c, err, "修改密码失败")
		return
	}

	response.SuccessWithMessage(c, "密码修改成功", nil)
}
