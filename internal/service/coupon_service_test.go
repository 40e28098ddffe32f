package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/coursemart/internal/constants"
	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupCouponServiceTest(t *testing.T) (*CouponService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&models.Coupon{}, &models.CouponUsage{}); err != nil {
		t.Fatalf("迁移测试表失败: %v", err)
	}
	models.DB = db
	svc := NewCouponService(true,
		repository.NewCouponRepository(db),
		repository.NewCouponUsageRepository(db),
	)
	return svc, db
}

func createTestCoupon(t *testing.T, db *gorm.DB, code, couponType, value, maxDiscount string) *models.Coupon {
	t.Helper()
	v, err := models.NewMoneyFromString(value)
	if err != nil {
		t.Fatalf("解析优惠值失败: %v", err)
	}
	max, err := models.NewMoneyFromString(maxDiscount)
	if err != nil {
		t.Fatalf("解析封顶金额失败: %v", err)
	}
	coupon := &models.Coupon{
		Code:        code,
		Type:        couponType,
		Value:       v,
		MaxDiscount: max,
		IsActive:    true,
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("创建测试优惠券失败: %v", err)
	}
	return coupon
}

func money(t *testing.T, s string) models.Money {
	t.Helper()
	m, err := models.NewMoneyFromString(s)
	if err != nil {
		t.Fatalf("解析金额失败: %v", err)
	}
	return m
}

func TestValidatePercentageCappedByMaxDiscount(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	createTestCoupon(t, db, "SAVE20", constants.CouponTypePercentage, "20", "50")

	// 499 的 20% 是 99.80，被封顶到 50
	result, err := svc.Validate("save20", 1, 1, money(t, "499.00"))
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if !result.Valid {
		t.Fatalf("期望有效, 原因 %s", result.Reason)
	}
	if result.Discount.String() != "50.00" {
		t.Fatalf("折扣应封顶 50.00, 实际 %s", result.Discount.String())
	}
	if result.FinalAmount.String() != "449.00" {
		t.Fatalf("折后金额应为 449.00, 实际 %s", result.FinalAmount.String())
	}
}

func TestValidatePercentageWithoutCap(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	createTestCoupon(t, db, "HALF", constants.CouponTypePercentage, "50", "0")

	result, err := svc.Validate("HALF", 1, 1, money(t, "199.99"))
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if result.Discount.String() != "100.00" {
		t.Fatalf("折扣应为 100.00 (四舍五入到 2 位), 实际 %s", result.Discount.String())
	}
}

func TestValidateFixedClampedToAmount(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	createTestCoupon(t, db, "FLAT500", constants.CouponTypeFixed, "500", "0")

	result, err := svc.Validate("FLAT500", 1, 1, money(t, "299.00"))
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if result.Discount.String() != "299.00" {
		t.Fatalf("固定折扣应被钳制到订单金额, 实际 %s", result.Discount.String())
	}
	if result.FinalAmount.String() != "0.00" {
		t.Fatalf("折后金额应为 0.00, 实际 %s", result.FinalAmount.String())
	}
}

func TestValidateNormalizesCode(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	createTestCoupon(t, db, "SAVE20", constants.CouponTypePercentage, "20", "0")

	result, err := svc.Validate("  save20  ", 1, 1, money(t, "100.00"))
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if !result.Valid {
		t.Fatalf("大小写与空白应归一化, 原因 %s", result.Reason)
	}
}

func TestValidateRuleChain(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	inactive := createTestCoupon(t, db, "OFF", constants.CouponTypeFixed, "10", "0")
	db.Model(inactive).Update("is_active", false)

	notStarted := createTestCoupon(t, db, "SOON", constants.CouponTypeFixed, "10", "0")
	db.Model(notStarted).Update("starts_at", future)

	expired := createTestCoupon(t, db, "OLD", constants.CouponTypeFixed, "10", "0")
	db.Model(expired).Update("ends_at", past)

	exhausted := createTestCoupon(t, db, "GONE", constants.CouponTypeFixed, "10", "0")
	db.Model(exhausted).Updates(map[string]interface{}{"usage_limit": 1, "used_count": 1})

	threshold := createTestCoupon(t, db, "BIG", constants.CouponTypeFixed, "10", "0")
	db.Model(threshold).Update("min_amount", "1000.00")

	cases := []struct {
		code   string
		reason string
	}{
		{"MISSING", constants.CouponReasonNotFound},
		{"OFF", constants.CouponReasonInactive},
		{"SOON", constants.CouponReasonNotStarted},
		{"OLD", constants.CouponReasonExpired},
		{"GONE", constants.CouponReasonUsageLimit},
		{"BIG", constants.CouponReasonMinAmountNotMet},
	}
	for _, tc := range cases {
		result, err := svc.Validate(tc.code, 1, 1, money(t, "100.00"))
		if err != nil {
			t.Fatalf("[%s] 校验失败: %v", tc.code, err)
		}
		if result.Valid {
			t.Fatalf("[%s] 期望无效", tc.code)
		}
		if result.Reason != tc.reason {
			t.Fatalf("[%s] 期望原因 %s, 实际 %s", tc.code, tc.reason, result.Reason)
		}
	}
}

func TestValidatePerUserLimit(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	coupon := createTestCoupon(t, db, "ONCE", constants.CouponTypeFixed, "10", "0")
	db.Model(coupon).Update("per_user_limit", 1)
	if err := db.Create(&models.CouponUsage{
		CouponID:       coupon.ID,
		UserID:         7,
		OrderID:        100,
		DiscountAmount: money(t, "10.00"),
	}).Error; err != nil {
		t.Fatalf("创建使用记录失败: %v", err)
	}

	result, err := svc.Validate("ONCE", 7, 1, money(t, "100.00"))
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if result.Valid || result.Reason != constants.CouponReasonPerUserLimit {
		t.Fatalf("期望每人上限拒绝, 实际 valid=%v reason=%s", result.Valid, result.Reason)
	}

	// 其他用户不受影响
	other, err := svc.Validate("ONCE", 8, 1, money(t, "100.00"))
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if !other.Valid {
		t.Fatalf("其他用户应可用, 原因 %s", other.Reason)
	}
}

func TestValidateGloballyDisabled(t *testing.T) {
	_, db := setupCouponServiceTest(t)
	createTestCoupon(t, db, "SAVE20", constants.CouponTypePercentage, "20", "0")

	disabled := NewCouponService(false,
		repository.NewCouponRepository(db),
		repository.NewCouponUsageRepository(db),
	)
	result, err := disabled.Validate("SAVE20", 1, 1, money(t, "100.00"))
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if result.Valid || result.Reason != constants.CouponReasonDisabled {
		t.Fatalf("全局关闭应拒绝, 实际 valid=%v reason=%s", result.Valid, result.Reason)
	}
}

func TestConsumeIsIdempotentPerOrder(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	coupon := createTestCoupon(t, db, "SAVE20", constants.CouponTypePercentage, "20", "0")

	discount := money(t, "20.00")
	for i := 0; i < 3; i++ {
		if err := svc.Consume(db, coupon.ID, 1, 42, discount); err != nil {
			t.Fatalf("第 %d 次核销失败: %v", i+1, err)
		}
	}

	var refreshed models.Coupon
	if err := db.First(&refreshed, coupon.ID).Error; err != nil {
		t.Fatalf("查询优惠券失败: %v", err)
	}
	if refreshed.UsedCount != 1 {
		t.Fatalf("同一订单重复核销应只计 1 次, 实际 %d", refreshed.UsedCount)
	}
	var usageCount int64
	db.Model(&models.CouponUsage{}).Where("order_id = ?", 42).Count(&usageCount)
	if usageCount != 1 {
		t.Fatalf("应只有 1 条使用记录, 实际 %d", usageCount)
	}
}

func TestConsumeRecordsUsageEvenWhenLimitExhausted(t *testing.T) {
	svc, db := setupCouponServiceTest(t)
	coupon := createTestCoupon(t, db, "LAST", constants.CouponTypeFixed, "10", "0")
	db.Model(coupon).Updates(map[string]interface{}{"usage_limit": 1, "used_count": 1})

	// 校验与支付之间总量被并发耗尽：用户已付款，仍记录使用
	if err := svc.Consume(db, coupon.ID, 1, 99, money(t, "10.00")); err != nil {
		t.Fatalf("核销失败: %v", err)
	}

	var refreshed models.Coupon
	if err := db.First(&refreshed, coupon.ID).Error; err != nil {
		t.Fatalf("查询优惠券失败: %v", err)
	}
	if refreshed.UsedCount != 1 {
		t.Fatalf("总量用尽时不应继续递增, 实际 %d", refreshed.UsedCount)
	}
	var usageCount int64
	db.Model(&models.CouponUsage{}).Where("order_id = ?", 99).Count(&usageCount)
	if usageCount != 1 {
		t.Fatalf("仍应记录使用, 实际 %d 条", usageCount)
	}
}
