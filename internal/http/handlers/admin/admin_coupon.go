package admin

import (
	"errors"
	"strconv"
	"time"

	handlershared "github.com/coursemart/internal/http/handlers/shared"
	"github.com/coursemart/internal/http/response"
	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/repository"
	"github.com/coursemart/internal/service"

	"github.com/gin-gonic/gin"
)

// CouponRequest 优惠券创建/更新请求
type CouponRequest struct {
	Code         string       `json:"code" binding:"required"`
	Type         string       `json:"type" binding:"required"`
	Value        models.Money `json:"value" binding:"required"`
	MinAmount    models.Money `json:"min_amount"`
	MaxDiscount  models.Money `json:"max_discount"`
	UsageLimit   int          `json:"usage_limit"`
	PerUserLimit int          `json:"per_user_limit"`
	StartsAt     *time.Time   `json:"starts_at"`
	EndsAt       *time.Time   `json:"ends_at"`
	IsActive     bool         `json:"is_active"`
}

var adminCouponErrorRules = []struct {
	target error
	code   int
	msg    string
}{
	{target: service.ErrCouponCodeExists, code: response.CodeBadRequest, msg: "coupon code exists"},
	{target: service.ErrCouponTypeInvalid, code: response.CodeBadRequest, msg: "coupon type invalid"},
	{target: service.ErrCouponInvalid, code: response.CodeNotFound, msg: "coupon not found"},
}

func respondAdminCouponError(c *gin.Context, err error, fallbackMsg string) {
	for _, rule := range adminCouponErrorRules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, response.CodeInternal, fallbackMsg, err)
}

// ListCoupons 优惠券列表
func (h *Handler) ListCoupons(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	filter := repository.CouponListFilter{
		Code:     c.Query("code"),
		Page:     page,
		PageSize: pageSize,
	}
	if raw := c.Query("is_active"); raw != "" {
		active := raw == "true" || raw == "1"
		filter.IsActive = &active
	}

	coupons, total, err := h.CouponService.AdminList(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch coupons failed", err)
		return
	}
	response.SuccessWithPage(c, coupons, handlershared.BuildPagination(page, pageSize, total))
}

// CreateCoupon 创建优惠券
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	coupon := &models.Coupon{
		Code:         req.Code,
		Type:         req.Type,
		Value:        req.Value,
		MinAmount:    req.MinAmount,
		MaxDiscount:  req.MaxDiscount,
		UsageLimit:   req.UsageLimit,
		PerUserLimit: req.PerUserLimit,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		IsActive:     req.IsActive,
	}
	if err := h.CouponService.AdminCreate(coupon); err != nil {
		respondAdminCouponError(c, err, "create coupon failed")
		return
	}
	requestLog(c).Infow("coupon_created", "coupon_id", coupon.ID, "code", coupon.Code)
	response.Success(c, coupon)
}

// UpdateCoupon 更新优惠券
func (h *Handler) UpdateCoupon(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "coupon id invalid", err)
		return
	}
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	coupon, err := h.CouponService.AdminGetByID(uint(id))
	if err != nil {
		respondAdminCouponError(c, err, "fetch coupon failed")
		return
	}

	coupon.Code = req.Code
	coupon.Type = req.Type
	coupon.Value = req.Value
	coupon.MinAmount = req.MinAmount
	coupon.MaxDiscount = req.MaxDiscount
	coupon.UsageLimit = req.UsageLimit
	coupon.PerUserLimit = req.PerUserLimit
	coupon.StartsAt = req.StartsAt
	coupon.EndsAt = req.EndsAt
	coupon.IsActive = req.IsActive

	if err := h.CouponService.AdminUpdate(coupon); err != nil {
		respondAdminCouponError(c, err, "update coupon failed")
		return
	}
	response.Success(c, coupon)
}

// DeleteCoupon 删除优惠券
func (h *Handler) DeleteCoupon(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "coupon id invalid", err)
		return
	}
	if err := h.CouponService.AdminDelete(uint(id)); err != nil {
		respondError(c, response.CodeInternal, "delete coupon failed", err)
		return
	}
	response.Success(c, nil)
}
