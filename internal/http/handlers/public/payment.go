package public

import (
	"github.com/coursemart/internal/http/response"

	"github.com/gin-gonic/gin"
)

// PaymentVerifyRequest 支付验签请求。
// 回调字段原样透传给服务层做提供方无关的归一化，
// order_ids 仅用于购物车批次的回退关联。
type PaymentVerifyRequest struct {
	Payload  map[string]interface{} `json:"payload" binding:"required"`
	OrderIDs []uint                 `json:"order_ids"`
}

// VerifyPayment 单课支付验签
func (h *Handler) VerifyPayment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req PaymentVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	outcome, err := h.OrderService.Verify(c.Request.Context(), userID, req.Payload)
	if err != nil {
		respondWithMappedError(c, err, paymentVerifyErrorRules, response.CodeInternal, "payment verification failed")
		return
	}
	response.Success(c, outcome)
}

// VerifyCartPayment 购物车支付验签
func (h *Handler) VerifyCartPayment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req PaymentVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	outcome, err := h.OrderService.VerifyCartPayment(c.Request.Context(), userID, req.Payload, req.OrderIDs)
	if err != nil {
		respondWithMappedError(c, err, paymentVerifyErrorRules, response.CodeInternal, "payment verification failed")
		return
	}
	response.Success(c, outcome)
}
