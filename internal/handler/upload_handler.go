package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chuan-dai/internal/middleware"
	"chuan-dai/internal/service"
)

// 上传接口的错误标识
const (
	UploadErrUnauthorized = "UNAUTHORIZED"
	UploadErrInvalidData  = "INVALID_DATA"
	UploadErrFailed       = "UPLOAD_FAILED"
)

// UploadResponse 图片上传接口的响应
// 该接口由上传组件直接调用，不使用统一的 {code, message, data} 结构
type UploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Key     string `json:"key,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UploadHandler 图片上传处理器
type UploadHandler struct {
	photoService *service.PhotoService
	auth         *middleware.Authenticator
}

// NewUploadHandler 创建 UploadHandler 实例
func NewUploadHandler(photoService *service.PhotoService, auth *middleware.Authenticator) *UploadHandler {
	return &UploadHandler{
		photoService: photoService,
		auth:         auth,
	}
}

// UploadImage 上传单张图片
// 请求体 {"base64Data": "data:image/...;base64,...", "subfolder": "可选"}
// @Router /api/photos/upload-image [post]
func (h *UploadHandler) UploadImage(c *gin.Context) {
	if !h.auth.Authenticate(c, false) {
		c.JSON(http.StatusUnauthorized, UploadResponse{Error: UploadErrUnauthorized})
		return
	}

	// 超过上限的请求体在读取时即报错，不会整体读入内存
	if limit := h.photoService.MaxUploadBody(); limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	var req service.UploadImageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Base64Data == "" {
		c.JSON(http.StatusBadRequest, UploadResponse{Error: UploadErrInvalidData})
		return
	}

	result, err := h.photoService.UploadImage(c.Request.Context(), &req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, UploadResponse{Success: true, URL: result.URL, Key: result.Key})
	case errors.Is(err, service.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, UploadResponse{Error: UploadErrInvalidData})
	default:
		zap.L().Error("upload image failed",
			zap.Int64("user_id", middleware.GetUserID(c)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, UploadResponse{Error: UploadErrFailed})
	}
}
