package public

import (
	"errors"

	"github.com/spinshop/internal/http/response"
	"github.com/spinshop/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var cartOwnerErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidEmail, code: response.CodeBadRequest, msg: "邮箱格式无效"},
	{target: service.ErrUserNotFound, code: response.CodeNotFound, msg: "用户不存在"},
	{target: service.ErrCartRoleNotAllowed, code: response.CodeForbidden, msg: "管理员账号不持有购物车"},
}

var cartMutationErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidCartItem, code: response.CodeBadRequest, msg: "唱片参数无效"},
	{target: service.ErrInvalidAmount, code: response.CodeBadRequest, msg: "数量必须为正整数"},
	{target: service.ErrRecordNotFound, code: response.CodeNotFound, msg: "唱片不存在"},
	{target: service.ErrRecordDiscontinued, code: response.CodeBadRequest, msg: "唱片已下架"},
	{target: service.ErrCartNotFound, code: response.CodeNotFound, msg: "购物车不存在"},
	{target: service.ErrCartLineNotFound, code: response.CodeNotFound, msg: "购物车中没有该唱片"},
	{target: service.ErrCartConflict, code: response.CodeInternal, msg: "购物车操作冲突，请稍后重试"},
}

var cartLifecycleErrorRules = []mappedHandlerError{
	{target: service.ErrCartNotFound, code: response.CodeNotFound, msg: "购物车不存在"},
	{target: service.ErrCartAlreadyActive, code: response.CodeBadRequest, msg: "已存在启用中的购物车"},
	{target: service.ErrCartConflict, code: response.CodeInternal, msg: "购物车操作冲突，请稍后重试"},
}

var orderCreateErrorRules = []mappedHandlerError{
	{target: service.ErrCartNotFound, code: response.CodeNotFound, msg: "购物车不存在"},
	{target: service.ErrCartEmpty, code: response.CodeBadRequest, msg: "购物车为空"},
	{target: service.ErrInvalidPaymentMethod, code: response.CodeBadRequest, msg: "支付方式无效"},
	{target: service.ErrOrderNoExhausted, code: response.CodeInternal, msg: "订单号生成失败"},
}

// respondCartQuantityError 处理需要携带当前数量的库存/移除错误。
// 返回 true 表示错误已被响应。
func respondCartQuantityError(c *gin.Context, err error) bool {
	var stockErr *service.StockInsufficientError
	if errors.As(err, &stockErr) {
		response.ErrorWithData(c, response.CodeBadRequest, "库存不足", gin.H{
			"record_id":       stockErr.RecordID,
			"requested":       stockErr.Requested,
			"available_stock": stockErr.Available,
		})
		return true
	}
	var removalErr *service.RemovalExceededError
	if errors.As(err, &removalErr) {
		response.ErrorWithData(c, response.CodeBadRequest, "移除数量超过购物车现有数量", gin.H{
			"record_id": removalErr.RecordID,
			"requested": removalErr.Requested,
			"in_cart":   removalErr.InCart,
		})
		return true
	}
	return false
}

func respondCartAddError(c *gin.Context, err error) {
	if respondCartQuantityError(c, err) {
		return
	}
	respondWithMappedError(c, err, concatMappedHandlerErrors(cartOwnerErrorRules, cartMutationErrorRules), response.CodeInternal, "加入购物车失败")
}

func respondCartRemoveError(c *gin.Context, err error) {
	if respondCartQuantityError(c, err) {
		return
	}
	respondWithMappedError(c, err, concatMappedHandlerErrors(cartOwnerErrorRules, cartMutationErrorRules), response.CodeInternal, "移出购物车失败")
}

func respondCartLifecycleError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(cartOwnerErrorRules, cartLifecycleErrorRules), response.CodeInternal, "购物车操作失败")
}

func respondOrderCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(cartOwnerErrorRules, orderCreateErrorRules), response.CodeInternal, "订单创建失败")
}
