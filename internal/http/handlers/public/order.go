package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spinshop/internal/http/response"
	"github.com/spinshop/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrderRequest 购物车转订单请求
type CreateOrderRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// CreateOrderFromCart 将当前购物车转换为订单
// 行项与总价快照落单，购物车被清空但保持启用，库存不再变动
func (h *Handler) CreateOrderFromCart(c *gin.Context) {
	email, ok := getUserEmail(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	order, err := h.OrderService.CreateFromCart(email, req.PaymentMethod)
	if err != nil {
		respondOrderCreateError(c, err)
		return
	}

	response.Success(c, gin.H{
		"order_id": order.ID,
		"order_no": order.OrderNo,
		"order":    order,
	})
}

// ListOrders 获取当前用户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	email, ok := getUserEmail(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	orderNo := strings.TrimSpace(c.Query("order_no"))

	orders, total, err := h.OrderService.ListByUser(email, orderNo, page, pageSize)
	if err != nil {
		respondWithMappedError(c, err, cartOwnerErrorRules, response.CodeInternal, "获取订单列表失败")
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, orders, pagination)
}

// GetOrderByOrderNo 按订单号获取订单详情
func (h *Handler) GetOrderByOrderNo(c *gin.Context) {
	email, ok := getUserEmail(c)
	if !ok {
		return
	}

	orderNo := strings.TrimSpace(c.Param("order_no"))
	if orderNo == "" {
		respondError(c, response.CodeBadRequest, "订单号无效", nil)
		return
	}

	order, err := h.OrderService.GetByOrderNo(email, orderNo)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "订单不存在", nil)
			return
		}
		respondWithMappedError(c, err, cartOwnerErrorRules, response.CodeInternal, "获取订单详情失败")
		return
	}

	response.Success(c, order)
}
