package handler

import (
	"github.com/gin-gonic/gin"

	"chuan-dai/internal/middleware"
	"chuan-dai/internal/service"
	"chuan-dai/pkg/response"
)

// GatheringHandler 聚会请求处理器
type GatheringHandler struct {
	gatheringService *service.GatheringService
}

// NewGatheringHandler 创建 GatheringHandler 实例
func NewGatheringHandler(gatheringService *service.GatheringService) *GatheringHandler {
	return &GatheringHandler{gatheringService: gatheringService}
}

// Create 创建聚会
// @Router /api/v1/gatherings [post]
func (h *GatheringHandler) Create(c *gin.Context) {
	var req service.CreateGatheringRequest
	if !bindJSON(c, &req) {
		return
	}

	gathering, err := h.gatheringService.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err, "创建聚会失败")
		return
	}

	response.Created(c, gathering)
}

// List 聚会列表，按日期倒序
// @Router /api/v1/gatherings [get]
func (h *GatheringHandler) List(c *gin.Context) {
	gatherings, err := h.gatheringService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "获取聚会失败")
		return
	}

	response.Success(c, gatherings)
}

// GetByInviteCode 通过邀请码查看聚会
// @Router /api/v1/gatherings/invite/{code} [get]
func (h *GatheringHandler) GetByInviteCode(c *gin.Context) {
	gathering, err := h.gatheringService.GetByInviteCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err, "获取聚会失败")
		return
	}

	response.Success(c, gathering)
}
