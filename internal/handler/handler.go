// Package handler 提供 HTTP 请求处理器
// Handler 只负责参数解析和响应，业务逻辑在 service 层
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chuan-dai/internal/middleware"
	"chuan-dai/internal/service"
	"chuan-dai/pkg/response"
	"chuan-dai/pkg/validate"
)

// bindJSON 解析请求体
// 校验失败时返回字段级错误，JSON 格式错误返回 400
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if fields := validate.FieldErrors(err); fields != nil {
			response.ValidationFailed(c, fields)
			return false
		}
		response.BadRequest(c, "请求参数格式错误")
		return false
	}
	return true
}

// parseID 解析路径中的 ID 参数
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "无效的ID")
		return 0, false
	}
	return id, true
}

// queryInt 读取整数查询参数，缺省或非法时返回 def
func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

// clientMeta 读取客户端 IP 和 User-Agent
func clientMeta(c *gin.Context) service.ClientMeta {
	return service.ClientMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// respondError 把业务错误转换为 HTTP 响应
// 未识别的错误记录日志后返回 fallback 提示
func respondError(c *gin.Context, err error, fallback string) {
	var fieldErr *service.FieldError
	if errors.As(err, &fieldErr) {
		response.ValidationFailed(c, validate.Field(fieldErr.Field, fieldErr.Message))
		return
	}

	switch {
	// 认证
	case errors.Is(err, service.ErrUserExists):
		response.UserExists(c)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.PasswordWrong(c)
	case errors.Is(err, service.ErrUserNotFound):
		response.UserNotFound(c)
	case errors.Is(err, service.ErrUserDisabled):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrPhoneExists):
		response.ErrorWithCode(c, http.StatusConflict, response.CodePhoneExists, err.Error())
	case errors.Is(err, service.ErrPhoneNotRegistered):
		response.ErrorWithCode(c, http.StatusNotFound, response.CodePhoneNotFound, err.Error())
	case errors.Is(err, service.ErrOTPInvalid):
		response.ErrorWithCode(c, http.StatusBadRequest, response.CodeOTPInvalid, err.Error())
	case errors.Is(err, service.ErrOTPRequired):
		response.ValidationFailed(c, validate.Field("code", err.Error()))
	case errors.Is(err, service.ErrOTPTooFrequent):
		response.TooManyRequests(c, err.Error())
	case errors.Is(err, service.ErrInvalidRefreshToken):
		response.Unauthorized(c, err.Error())

	// 用户资料
	case errors.Is(err, service.ErrPasswordWrong):
		response.ErrorWithCode(c, http.StatusBadRequest, response.CodePasswordWrong, err.Error())
	case errors.Is(err, service.ErrNicknameEmpty):
		response.ValidationFailed(c, validate.Field("nickname", err.Error()))
	case errors.Is(err, service.ErrInvalidGender):
		response.ValidationFailed(c, validate.Field("gender", err.Error()))
	case errors.Is(err, service.ErrInvalidBirthday):
		response.ValidationFailed(c, validate.Field("birthday", err.Error()))

	// 菜单与订单
	case errors.Is(err, service.ErrDishNotFound):
		response.ErrorWithCode(c, http.StatusNotFound, response.CodeDishNotFound, err.Error())
	case errors.Is(err, service.ErrDishUnavailable):
		response.ErrorWithCode(c, http.StatusConflict, response.CodeDishUnavailable, err.Error())
	case errors.Is(err, service.ErrInvalidCategory), errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrEmptyOrder), errors.Is(err, service.ErrInvalidQuantity):
		response.ValidationFailed(c, validate.Field("items", err.Error()))
	case errors.Is(err, service.ErrOrderNotFound):
		response.ErrorWithCode(c, http.StatusNotFound, response.CodeOrderNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		response.ErrorWithCode(c, http.StatusConflict, response.CodeInvalidTransition, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())

	// 照片与聚会
	case errors.Is(err, service.ErrPhotoNotFound):
		response.ErrorWithCode(c, http.StatusNotFound, response.CodePhotoNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidImage):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrUploadFailed):
		response.ErrorWithCode(c, http.StatusInternalServerError, response.CodeUploadFailed, service.ErrUploadFailed.Error())
	case errors.Is(err, service.ErrGatheringNotFound):
		response.ErrorWithCode(c, http.StatusNotFound, response.CodeGatheringNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidGatheringDate):
		response.ValidationFailed(c, validate.Field("date", err.Error()))

	default:
		zap.L().Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int64("user_id", middleware.GetUserID(c)),
			zap.Error(err),
		)
		if fallback == "" {
			fallback = "操作失败"
		}
		response.InternalError(c, fallback)
	}
}
