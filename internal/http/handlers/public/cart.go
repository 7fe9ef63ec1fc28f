package public

import (
	"github.com/spinshop/internal/http/response"

	"github.com/gin-gonic/gin"
)

// CartItemRequest 购物车行项请求
type CartItemRequest struct {
	RecordID uint `json:"record_id" binding:"required"`
	Amount   int  `json:"amount" binding:"required"`
}

// AddCartItem 加入购物车
// 成功时返回扣减后的库存与购物车 ID
func (h *Handler) AddCartItem(c *gin.Context) {
	email, ok := getUserEmail(c)
	if !ok {
		return
	}

	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	result, err := h.CartService.AddItem(email, req.RecordID, req.Amount)
	if err != nil {
		respondCartAddError(c, err)
		return
	}

	response.Success(c, result)
}

// RemoveCartItem 移出购物车
// 成功时返回归还后的库存与购物车内剩余数量
func (h *Handler) RemoveCartItem(c *gin.Context) {
	email, ok := getUserEmail(c)
	if !ok {
		return
	}

	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	result, err := h.CartService.RemoveItem(email, req.RecordID, req.Amount)
	if err != nil {
		respondCartRemoveError(c, err)
		return
	}

	response.Success(c, result)
}

// GetCartContents 获取购物车内容
// 没有启用中的购物车时返回空内容
func (h *Handler) GetCartContents(c *gin.Context) {
	email, ok := getUserEmail(c)
	if !ok {
		return
	}

	contents, err := h.CartService.Contents(email)
	if err != nil {
		respondWithMappedError(c, err, cartOwnerErrorRules, response.CodeInternal, "获取购物车失败")
		return
	}

	response.Success(c, contents)
}

// DisableCart 停用当前购物车
// 停用会清空行项并归还全部预占库存
func (h *Handler) DisableCart(c *gin.Context) {
	email, ok := getUserEmail(c)
	if !ok {
		return
	}

	cartID, err := h.CartService.Disable(email)
	if err != nil {
		respondCartLifecycleError(c, err)
		return
	}

	response.Success(c, gin.H{"cart_id": cartID})
}

// EnableCart 重新启用最近一次停用的购物车
// 启用后的购物车为空，不会恢复历史行项
func (h *Handler) EnableCart(c *gin.Context) {
	email, ok := getUserEmail(c)
	if !ok {
		return
	}

	cart, err := h.CartService.Enable(email)
	if err != nil {
		respondCartLifecycleError(c, err)
		return
	}

	response.Success(c, cart)
}
