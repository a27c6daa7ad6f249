package handler

import (
	"github.com/gin-gonic/gin"

	"chuan-dai/internal/middleware"
	"chuan-dai/internal/service"
	"chuan-dai/pkg/response"
)

// OrderHandler 订单请求处理器
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler 创建 OrderHandler 实例
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrder 提交订单
// @Summary 下单
// @Tags 订单
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body service.CreateOrderRequest true "购物车内容"
// @Success 201 {object} response.Response{data=model.Order}
// @Router /api/v1/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err, "下单失败")
		return
	}

	response.Created(c, order)
}

// ListOrders 我的订单
// @Param status query string false "状态过滤"
// @Router /api/v1/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orderService.ListOrders(c.Request.Context(), middleware.GetUserID(c), c.Query("status"))
	if err != nil {
		respondError(c, err, "获取订单失败")
		return
	}

	response.Success(c, orders)
}

// GetOrder 订单详情
// @Router /api/v1/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err, "获取订单失败")
		return
	}

	response.Success(c, order)
}

// UpdateStatus 变更订单状态（确认、完成、取消）
// @Router /api/v1/orders/{id}/status [post]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), middleware.GetUserID(c), id, req.Status)
	if err != nil {
		respondError(c, err, "更新订单状态失败")
		return
	}

	response.SuccessWithMessage(c, "订单状态已更新", order)
}
