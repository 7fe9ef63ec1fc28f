package service

import (
	"errors"
	"fmt"
)

// 业务哨兵错误，供 handler 层映射 HTTP 状态码
var (
	ErrNotFound = errors.New("resource not found")

	// 用户与认证
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrWeakPassword       = errors.New("weak password")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrUserNotFound       = errors.New("user not found")
	ErrProfileEmpty       = errors.New("nothing to update")
	ErrInvalidUserStatus  = errors.New("invalid user status")

	// 验证码
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
	ErrCaptchaVerifyFailed  = errors.New("captcha verify failed")

	// 目录
	ErrSlugExists         = errors.New("slug already exists")
	ErrNameExists         = errors.New("name already exists")
	ErrTaxonomyInvalid    = errors.New("invalid taxonomy fields")
	ErrGenreInUse         = errors.New("genre still referenced by records")
	ErrRecordGroupInUse   = errors.New("record group still referenced by records")
	ErrRecordInUse        = errors.New("record still referenced by carts or orders")
	ErrRecordNotFound     = errors.New("record not found")
	ErrRecordDiscontinued = errors.New("record discontinued")
	ErrRecordInvalid      = errors.New("invalid record fields")
	ErrRecordPriceInvalid = errors.New("invalid record price")
	ErrStockAdjustInvalid = errors.New("stock adjustment below zero")

	// 购物车
	ErrInvalidCartItem     = errors.New("invalid cart item")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrCartRoleNotAllowed  = errors.New("role cannot own a cart")
	ErrCartNotFound        = errors.New("cart not found")
	ErrCartLineNotFound    = errors.New("cart line not found")
	ErrCartEmpty           = errors.New("cart is empty")
	ErrCartAlreadyActive   = errors.New("cart already active")
	ErrCartConflict        = errors.New("cart busy, retry later")
	ErrStockInsufficient   = errors.New("insufficient stock")
	ErrCartRemovalExceeded = errors.New("removal exceeds amount in cart")

	// 订单
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrOrderNoExhausted     = errors.New("order number generation exhausted")
)

// StockInsufficientError 库存不足，携带当前可用量
type StockInsufficientError struct {
	RecordID  uint
	Requested int
	Available int
}

func (e *StockInsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock for record %d: requested %d, available %d", e.RecordID, e.Requested, e.Available)
}

func (e *StockInsufficientError) Unwrap() error {
	return ErrStockInsufficient
}

// RemovalExceededError 移除数量超过购物车持有量，携带当前持有量
type RemovalExceededError struct {
	RecordID  uint
	Requested int
	InCart    int
}

func (e *RemovalExceededError) Error() string {
	return fmt.Sprintf("cannot remove %d of record %d: only %d in cart", e.Requested, e.RecordID, e.InCart)
}

func (e *RemovalExceededError) Unwrap() error {
	return ErrCartRemovalExceeded
}
