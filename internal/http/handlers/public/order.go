package public

import (
	"strconv"

	handlershared "github.com/coursemart/internal/http/handlers/shared"
	"github.com/coursemart/internal/http/response"
	"github.com/coursemart/internal/repository"
	"github.com/coursemart/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderCreateRequest 发起单课购买请求
type OrderCreateRequest struct {
	CourseID   uint   `json:"course_id" binding:"required"`
	CouponCode string `json:"coupon_code"`
}

// CartCheckoutRequest 购物车结算请求
type CartCheckoutRequest struct {
	CouponCode string `json:"coupon_code"`
}

// CreateOrder 发起单课购买
func (h *Handler) CreateOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req OrderCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	result, err := h.OrderService.Initiate(c.Request.Context(), service.InitiateOrderInput{
		UserID:     userID,
		CourseID:   req.CourseID,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		respondWithMappedError(c, err, orderCommonErrorRules, response.CodeInternal, "create order failed")
		return
	}
	response.Success(c, result)
}

// CheckoutCart 购物车结算
func (h *Handler) CheckoutCart(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req CartCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	result, err := h.OrderService.CheckoutCart(c.Request.Context(), service.CartCheckoutInput{
		UserID:     userID,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		respondWithMappedError(c, err, orderCommonErrorRules, response.CodeInternal, "cart checkout failed")
		return
	}
	response.Success(c, result)
}

// ListOrders 我的订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	orders, total, err := h.OrderService.ListByUser(repository.OrderListFilter{
		UserID:   userID,
		Status:   c.Query("status"),
		OrderNo:  c.Query("order_no"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch orders failed", err)
		return
	}
	response.SuccessWithPage(c, orders, handlershared.BuildPagination(page, pageSize, total))
}

// GetOrder 我的订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "order id invalid", err)
		return
	}

	order, err := h.OrderService.GetByIDAndUser(uint(orderID), userID)
	if err != nil {
		respondWithMappedError(c, err, paymentVerifyErrorRules, response.CodeInternal, "fetch order failed")
		return
	}
	response.Success(c, order)
}

// CancelOrder 取消待支付订单
func (h *Handler) CancelOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "order id invalid", err)
		return
	}

	order, err := h.OrderService.Cancel(userID, uint(orderID))
	if err != nil {
		respondWithMappedError(c, err, paymentVerifyErrorRules, response.CodeInternal, "cancel order failed")
		return
	}
	response.Success(c, order)
}
