package handler

import (
	"github.com/gin-gonic/gin"

	"chuan-dai/internal/middleware"
	"chuan-dai/internal/service"
	"chuan-dai/pkg/response"
)

// PhotoHandler 照片墙请求处理器
type PhotoHandler struct {
	photoService *service.PhotoService
}

// NewPhotoHandler 创建 PhotoHandler 实例
func NewPhotoHandler(photoService *service.PhotoService) *PhotoHandler {
	return &PhotoHandler{photoService: photoService}
}

// ListPhotos 照片墙分页
// @Summary 照片墙
// @Tags 照片
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量，最大 50"
// @Success 200 {object} response.Response{data=service.PhotoPage}
// @Router /api/v1/photos [get]
func (h *PhotoHandler) ListPhotos(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 0)

	result, err := h.photoService.ListPhotos(c.Request.Context(), middleware.GetUserID(c), page, pageSize)
	if err != nil {
		respondError(c, err, "获取照片失败")
		return
	}

	response.Success(c, result)
}

// SavePhoto 保存照片（图片已上传完成）
// @Router /api/v1/photos [post]
func (h *PhotoHandler) SavePhoto(c *gin.Context) {
	var req service.SavePhotoRequest
	if !bindJSON(c, &req) {
		return
	}

	photo, err := h.photoService.SavePhoto(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err, "保存照片失败")
		return
	}

	response.Created(c, photo)
}

// GetPhoto 照片详情
// @Router /api/v1/photos/{id} [get]
func (h *PhotoHandler) GetPhoto(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	photo, err := h.photoService.GetPhoto(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err, "获取照片失败")
		return
	}

	response.Success(c, photo)
}

// ToggleFavorite 收藏或取消收藏照片
// @Router /api/v1/photos/{id}/favorite [post]
func (h *PhotoHandler) ToggleFavorite(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.photoService.TogglePhotoFavorite(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err, "")
		return
	}

	response.Success(c, result)
}

// ListComments 照片评论
// @Router /api/v1/photos/{id}/comments [get]
func (h *PhotoHandler) ListComments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	comments, err := h.photoService.ListComments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "获取评论失败")
		return
	}

	response.Success(c, comments)
}

// AddComment 发表评论
// @Router /api/v1/photos/{id}/comments [post]
func (h *PhotoHandler) AddComment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req service.AddCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.photoService.AddComment(c.Request.Context(), middleware.GetUserID(c), id, req.Content)
	if err != nil {
		respondError(c, err, "评论失败")
		return
	}

	response.Created(c, comment)
}
