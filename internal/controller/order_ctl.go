package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"tesla_parts_api/internal/api/dto"
	"tesla_parts_api/internal/repository"
	"tesla_parts_api/internal/service"
)

// ==================== OrderController 订单 ====================

type OrderController struct {
	orderSvc *service.OrderService
}

func NewOrderController(orderSvc *service.OrderService) *OrderController {
	return &OrderController{orderSvc: orderSvc}
}

// Create 前台下单
// @Summary 创建订单
// @Description 单价优先取 priceUSD，其次 priceUAH 按汇率换算；下单成功后异步推送 Telegram 通知
// @Tags Order
// @Accept json
// @Produce json
// @Param request body dto.CreateOrderRequest true "订单"
// @Success 200 {object} Response
// @Router /orders/ [post]
func (c *OrderController) Create(ctx *gin.Context) {
	var req dto.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	resp, err := c.orderSvc.Create(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, resp)
}

// List 订单列表，新单在前
// @Param status query string false "状态"
// @Param offset query int false "偏移"
// @Param limit query int false "数量"
// @Router /orders/ [get]
func (c *OrderController) List(ctx *gin.Context) {
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "0"))
	orders, err := c.orderSvc.List(ctx.Request.Context(), repository.OrderFilter{
		Status: ctx.Query("status"),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, orders)
}

// GetByID 订单详情
// @Router /orders/{id} [get]
func (c *OrderController) GetByID(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id")
	if !ok {
		return
	}
	order, err := c.orderSvc.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, order)
}

// UpdateTTN 更新运单号，空串清除
// @Router /orders/{id}/ttn [put]
func (c *OrderController) UpdateTTN(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateTTNRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	order, err := c.orderSvc.UpdateTTN(ctx.Request.Context(), id, req.TTN)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, order)
}

// UpdateStatus 更新订单状态
// @Router /orders/{id}/status [put]
func (c *OrderController) UpdateStatus(ctx *gin.Context) {
	id, ok := paramInt64(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request: "+err.Error())
		return
	}
	order, err := c.orderSvc.UpdateStatus(ctx.Request.Context(), id, req.Status)
	if err != nil {
		respondError(ctx, err)
		return
	}
	success(ctx, order)
}
