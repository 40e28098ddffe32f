package service

import (
	"strings"
	"time"

	"github.com/coursemart/internal/constants"
	"github.com/coursemart/internal/logger"
	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CouponValidation 优惠券校验结果。业务规则不通过是正常结果而非错误。
type CouponValidation struct {
	Valid       bool           `json:"valid"`
	Reason      string         `json:"reason,omitempty"`
	Message     string         `json:"message,omitempty"`
	Discount    models.Money   `json:"discount"`
	FinalAmount models.Money   `json:"final_amount"`
	Coupon      *models.Coupon `json:"-"`
}

// CouponService 优惠券服务
type CouponService struct {
	enabled    bool
	couponRepo repository.CouponRepository
	usageRepo  repository.CouponUsageRepository
}

// NewCouponService 创建优惠券服务。enabled 为全局开关，关闭时所有校验直接拒绝。
func NewCouponService(enabled bool, couponRepo repository.CouponRepository, usageRepo repository.CouponUsageRepository) *CouponService {
	return &CouponService{
		enabled:    enabled,
		couponRepo: couponRepo,
		usageRepo:  usageRepo,
	}
}

// NormalizeCode 优惠码归一化（去空格、大写）
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func invalidCoupon(reason, message string) *CouponValidation {
	return &CouponValidation{Valid: false, Reason: reason, Message: message}
}

// Validate 校验优惠码并计算折扣。
// 规则按序短路：全局开关 → 存在 → 启用 → 生效期 → 失效期 → 总量上限 → 每人上限 → 最低金额。
// 返回 error 仅代表基础设施故障。
func (s *CouponService) Validate(code string, userID uint, courseID uint, amount models.Money) (*CouponValidation, error) {
	if !s.enabled {
		return invalidCoupon(constants.CouponReasonDisabled, "coupons are currently disabled"), nil
	}

	normalized := NormalizeCode(code)
	if normalized == "" {
		return invalidCoupon(constants.CouponReasonNotFound, "coupon code is required"), nil
	}

	coupon, err := s.couponRepo.GetByCode(normalized)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return invalidCoupon(constants.CouponReasonNotFound, "coupon not found"), nil
	}
	if !coupon.IsActive {
		return invalidCoupon(constants.CouponReasonInactive, "coupon is inactive"), nil
	}

	now := time.Now()
	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return invalidCoupon(constants.CouponReasonNotStarted, "coupon is not active yet"), nil
	}
	if coupon.EndsAt != nil && now.After(*coupon.EndsAt) {
		return invalidCoupon(constants.CouponReasonExpired, "coupon has expired"), nil
	}
	if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
		return invalidCoupon(constants.CouponReasonUsageLimit, "coupon usage limit reached"), nil
	}
	if coupon.PerUserLimit > 0 && userID != 0 {
		count, err := s.usageRepo.CountByUser(coupon.ID, userID)
		if err != nil {
			return nil, err
		}
		if int(count) >= coupon.PerUserLimit {
			return invalidCoupon(constants.CouponReasonPerUserLimit, "coupon per-user limit reached"), nil
		}
	}
	if coupon.MinAmount.Decimal.IsPositive() && amount.Decimal.Cmp(coupon.MinAmount.Decimal) < 0 {
		return invalidCoupon(constants.CouponReasonMinAmountNotMet, "order amount below coupon minimum"), nil
	}

	discount := calculateDiscount(coupon, amount)
	final := models.NewMoneyFromDecimal(amount.Decimal.Sub(discount.Decimal))
	return &CouponValidation{
		Valid:       true,
		Discount:    discount,
		FinalAmount: final,
		Coupon:      coupon,
	}, nil
}

// calculateDiscount 计算折扣：percentage 按比例并受 MaxDiscount 封顶；fixed 取面值。
// 折扣不得超过订单金额，结果保留 2 位小数。
func calculateDiscount(coupon *models.Coupon, amount models.Money) models.Money {
	var discount decimal.Decimal
	switch coupon.Type {
	case constants.CouponTypePercentage:
		discount = amount.Decimal.Mul(coupon.Value.Decimal).Div(decimal.NewFromInt(100))
		if coupon.MaxDiscount.Decimal.IsPositive() && discount.Cmp(coupon.MaxDiscount.Decimal) > 0 {
			discount = coupon.MaxDiscount.Decimal
		}
	case constants.CouponTypeFixed:
		discount = coupon.Value.Decimal
	default:
		discount = decimal.Zero
	}
	if discount.Cmp(amount.Decimal) > 0 {
		discount = amount.Decimal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return models.NewMoneyFromDecimal(discount)
}

// Consume 在调用方事务内核销优惠券。仅在支付验签成功后调用。
// 以 order_id 唯一的使用记录作幂等锚点：记录已存在时直接返回。
func (s *CouponService) Consume(tx *gorm.DB, couponID, userID, orderID uint, discount models.Money) error {
	couponRepo := s.couponRepo.WithTx(tx)
	usageRepo := s.usageRepo.WithTx(tx)

	coupon, err := couponRepo.GetByID(couponID)
	if err != nil {
		return err
	}
	if coupon == nil {
		return ErrCouponInvalid
	}

	existing, err := usageRepo.GetByOrderID(orderID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	ok, err := couponRepo.IncrementUsedCount(coupon.ID)
	if err != nil {
		return err
	}
	if !ok {
		// 校验与支付之间总量被并发耗尽。用户已按折后价完成支付，
		// 记录使用但不再递增计数。
		logger.Warnw("coupon_usage_limit_exceeded_at_consume",
			"coupon_id", coupon.ID,
			"order_id", orderID,
		)
	}

	return usageRepo.Create(&models.CouponUsage{
		CouponID:       coupon.ID,
		UserID:         userID,
		OrderID:        orderID,
		DiscountAmount: discount,
	})
}
