package public

import (
	"github.com/coursemart/internal/http/response"
	"github.com/coursemart/internal/models"

	"github.com/gin-gonic/gin"
)

// CouponValidateRequest 优惠码校验请求
type CouponValidateRequest struct {
	Code     string       `json:"code" binding:"required"`
	CourseID uint         `json:"course_id"`
	Amount   models.Money `json:"amount" binding:"required"`
}

// ValidateCoupon 结算前校验优惠码。
// 规则不通过返回 valid=false 与原因，不算错误。
func (h *Handler) ValidateCoupon(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req CouponValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	result, err := h.CouponService.Validate(req.Code, userID, req.CourseID, req.Amount)
	if err != nil {
		respondError(c, response.CodeInternal, "coupon validation failed", err)
		return
	}
	response.Success(c, result)
}
