package handler

import (
	"github.com/gin-gonic/gin"

	"chuan-dai/internal/middleware"
	"chuan-dai/internal/service"
	"chuan-dai/pkg/response"
)

// DishHandler 菜单请求处理器
type DishHandler struct {
	dishService *service.DishService
}

// NewDishHandler 创建 DishHandler 实例
func NewDishHandler(dishService *service.DishService) *DishHandler {
	return &DishHandler{dishService: dishService}
}

// ListDishes 获取菜单
// 未登录也可访问，此时收藏标记全部为 false
// @Summary 菜单列表
// @Tags 菜单
// @Produce json
// @Param category query string false "分类"
// @Success 200 {object} response.Response{data=[]service.DishView}
// @Router /api/v1/dishes [get]
func (h *DishHandler) ListDishes(c *gin.Context) {
	dishes, err := h.dishService.ListDishes(c.Request.Context(), middleware.GetUserID(c), c.Query("category"))
	if err != nil {
		respondError(c, err, "获取菜单失败")
		return
	}

	response.Success(c, dishes)
}

// GetDish 获取菜品详情
// @Router /api/v1/dishes/{id} [get]
func (h *DishHandler) GetDish(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	dish, err := h.dishService.GetDish(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err, "获取菜品失败")
		return
	}

	response.Success(c, dish)
}

// ToggleFavorite 收藏或取消收藏菜品
// @Router /api/v1/dishes/{id}/favorite [post]
func (h *DishHandler) ToggleFavorite(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.dishService.ToggleFavorite(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err, "")
		return
	}

	response.Success(c, result)
}

// ListFavorites 我收藏的菜品
// @Router /api/v1/dishes/favorites [get]
func (h *DishHandler) ListFavorites(c *gin.Context) {
	dishes, err := h.dishService.ListFavorites(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "获取收藏失败")
		return
	}

	response.Success(c, dishes)
}

// Recommendations 根据收藏推荐菜品
// @Router /api/v1/dishes/recommendations [get]
func (h *DishHandler) Recommendations(c *gin.Context) {
	result, err := h.dishService.Recommendations(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "获取推荐失败")
		return
	}

	response.Success(c, result)
}
