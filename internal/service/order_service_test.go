package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/coursemart/internal/constants"
	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/payment"
	"github.com/coursemart/internal/queue"
	"github.com/coursemart/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeProvider struct {
	name        string
	createErr   error
	verifyErr   error
	valid       bool
	createCalls int
	lastCreate  payment.CreateOrderInput
}

func (p *fakeProvider) Name() string {
	return p.name
}

func (p *fakeProvider) CreateOrder(ctx context.Context, input payment.CreateOrderInput) (*payment.CreateOrderResult, error) {
	p.createCalls++
	p.lastCreate = input
	if p.createErr != nil {
		return nil, p.createErr
	}
	return &payment.CreateOrderResult{
		GatewayOrderID: fmt.Sprintf("gw_order_%d", p.createCalls),
		Amount:         input.Amount,
		Currency:       input.Currency,
		Provider:       p.name,
	}, nil
}

func (p *fakeProvider) VerifyPayment(ctx context.Context, input payment.VerifyInput) (*payment.VerifyResult, error) {
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	return &payment.VerifyResult{
		Valid:     p.valid,
		PaymentID: input.GatewayPaymentID,
		Signature: input.Signature,
	}, nil
}

func setupOrderServiceTest(t *testing.T) (*OrderService, *fakeProvider, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Course{},
		&models.Enrollment{},
		&models.CartItem{},
		&models.Order{},
		&models.Payment{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("迁移测试表失败: %v", err)
	}
	models.DB = db

	provider := &fakeProvider{name: constants.PaymentProviderRazorpay, valid: true}
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("创建队列客户端失败: %v", err)
	}
	couponService := NewCouponService(true,
		repository.NewCouponRepository(db),
		repository.NewCouponUsageRepository(db),
	)
	selector := NewProviderSelector(repository.NewSettingRepository(db), constants.PaymentProviderRazorpay, provider)
	svc := NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewCourseRepository(db),
		repository.NewEnrollmentRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewCartRepository(db),
		repository.NewUserRepository(db),
		couponService,
		selector,
		queueClient,
		60, 15, "INR",
	)
	return svc, provider, db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		DisplayName:  "Test User",
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("创建测试用户失败: %v", err)
	}
	return user
}

func createTestCourse(t *testing.T, db *gorm.DB, slug, price string, published bool) *models.Course {
	t.Helper()
	amount, err := models.NewMoneyFromString(price)
	if err != nil {
		t.Fatalf("解析测试金额失败: %v", err)
	}
	course := &models.Course{
		Slug:          slug,
		Title:         "Course " + slug,
		PriceAmount:   amount,
		PriceCurrency: "INR",
		IsPublished:   published,
	}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("创建测试课程失败: %v", err)
	}
	return course
}

func verifyPayload(gatewayOrderID string) map[string]interface{} {
	return map[string]interface{}{
		"razorpay_order_id":   gatewayOrderID,
		"razorpay_payment_id": "pay_test_1",
		"razorpay_signature":  "deadbeef",
	}
}

func TestInitiateCreatesPendingOrderWithGatewayID(t *testing.T) {
	svc, provider, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	course := createTestCourse(t, db, "go-basics", "499.00", true)

	result, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: course.ID})
	if err != nil {
		t.Fatalf("发起购买失败: %v", err)
	}
	if result.Order.Status != constants.OrderStatusPending {
		t.Fatalf("期望订单状态 pending, 实际 %s", result.Order.Status)
	}
	if result.Order.GatewayOrderID == nil || *result.Order.GatewayOrderID != result.Gateway.GatewayOrderID {
		t.Fatalf("订单未回填网关订单号")
	}
	if !strings.HasPrefix(result.Order.OrderNo, constants.OrderNoPrefix) {
		t.Fatalf("订单号前缀错误: %s", result.Order.OrderNo)
	}
	if provider.lastCreate.Amount.String() != "499.00" {
		t.Fatalf("网关下单金额错误: %s", provider.lastCreate.Amount.String())
	}
}

func TestInitiateRejectsUnpublishedAndFreeCourses(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	draft := createTestCourse(t, db, "draft", "100.00", false)
	free := createTestCourse(t, db, "free", "0.00", true)

	if _, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: draft.ID}); !errors.Is(err, ErrCourseNotPublished) {
		t.Fatalf("未上架课程期望 ErrCourseNotPublished, 实际 %v", err)
	}
	if _, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: free.ID}); !errors.Is(err, ErrCourseFreeNoPayment) {
		t.Fatalf("免费课程期望 ErrCourseFreeNoPayment, 实际 %v", err)
	}
	if _, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: 9999}); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("不存在课程期望 ErrCourseNotFound, 实际 %v", err)
	}
}

func TestInitiateRejectsEnrolledUser(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	course := createTestCourse(t, db, "go-basics", "499.00", true)
	if err := db.Create(&models.Enrollment{UserID: user.ID, CourseID: course.ID, OrderID: 1}).Error; err != nil {
		t.Fatalf("创建报名记录失败: %v", err)
	}

	if _, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: course.ID}); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("已报名用户期望 ErrAlreadyEnrolled, 实际 %v", err)
	}
}

func TestInitiateRejectsWithinPendingRetryWindow(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	course := createTestCourse(t, db, "go-basics", "499.00", true)

	if _, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: course.ID}); err != nil {
		t.Fatalf("首次发起购买失败: %v", err)
	}

	_, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: course.ID})
	if !errors.Is(err, ErrOrderRetryTooSoon) {
		t.Fatalf("窗口期内重复下单期望 ErrOrderRetryTooSoon, 实际 %v", err)
	}
	var retryErr *RetryAfterError
	if !errors.As(err, &retryErr) {
		t.Fatalf("期望 RetryAfterError 类型, 实际 %T", err)
	}
	if retryErr.After <= 0 || retryErr.After > 60*time.Second {
		t.Fatalf("重试等待时长超出窗口: %v", retryErr.After)
	}
}

func TestInitiateAllowsAfterRetryWindowExpired(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	course := createTestCourse(t, db, "go-basics", "499.00", true)

	stale := &models.Order{
		OrderNo:     generateOrderNo(),
		UserID:      user.ID,
		CourseID:    course.ID,
		Status:      constants.OrderStatusPending,
		Provider:    constants.PaymentProviderRazorpay,
		Currency:    "INR",
		Amount:      course.PriceAmount,
		FinalAmount: course.PriceAmount,
	}
	if err := db.Create(stale).Error; err != nil {
		t.Fatalf("创建过期待支付订单失败: %v", err)
	}
	if err := db.Model(stale).Update("created_at", time.Now().Add(-2*time.Minute)).Error; err != nil {
		t.Fatalf("回拨订单创建时间失败: %v", err)
	}

	if _, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: course.ID}); err != nil {
		t.Fatalf("窗口过期后下单应放行, 实际 %v", err)
	}
}

func TestInitiateGatewayFailureMarksOrderFailed(t *testing.T) {
	svc, provider, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	course := createTestCourse(t, db, "go-basics", "499.00", true)
	provider.createErr = errors.New("gateway unavailable")

	if _, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: course.ID}); err == nil {
		t.Fatalf("网关失败应向上传播")
	}

	var order models.Order
	if err := db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&order).Error; err != nil {
		t.Fatalf("查询订单失败: %v", err)
	}
	if order.Status != constants.OrderStatusFailed {
		t.Fatalf("网关失败后订单应为 failed, 实际 %s", order.Status)
	}
	if order.FailureReason == "" {
		t.Fatalf("失败订单应记录失败原因")
	}
}

func TestInitiateAppliesCoupon(t *testing.T) {
	svc, provider, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	course := createTestCourse(t, db, "go-basics", "499.00", true)
	createTestCoupon(t, db, "SAVE20", constants.CouponTypePercentage, "20", "50")

	result, err := svc.Initiate(context.Background(), InitiateOrderInput{
		UserID:     user.ID,
		CourseID:   course.ID,
		CouponCode: "save20",
	})
	if err != nil {
		t.Fatalf("带券下单失败: %v", err)
	}
	if result.Order.FinalAmount.String() != "449.00" {
		t.Fatalf("折后金额错误: %s", result.Order.FinalAmount.String())
	}
	if result.Order.CouponCode != "SAVE20" {
		t.Fatalf("订单应记录归一化后的优惠码, 实际 %q", result.Order.CouponCode)
	}
	if provider.lastCreate.Amount.String() != "449.00" {
		t.Fatalf("网关下单应使用折后金额, 实际 %s", provider.lastCreate.Amount.String())
	}
}

func TestVerifyCompletesOrderAtomically(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	course := createTestCourse(t, db, "go-basics", "499.00", true)
	if err := db.Create(&models.CartItem{UserID: user.ID, CourseID: course.ID}).Error; err != nil {
		t.Fatalf("创建购物车项失败: %v", err)
	}

	result, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: course.ID})
	if err != nil {
		t.Fatalf("发起购买失败: %v", err)
	}

	outcome, err := svc.Verify(context.Background(), user.ID, verifyPayload(result.Gateway.GatewayOrderID))
	if err != nil {
		t.Fatalf("验签失败: %v", err)
	}
	if outcome.Order.Status != constants.OrderStatusCompleted {
		t.Fatalf("订单应为 completed, 实际 %s", outcome.Order.Status)
	}
	if outcome.Order.PaidAt == nil {
		t.Fatalf("完成订单应记录支付时间")
	}

	var enrollmentCount, paymentCount, cartCount int64
	db.Model(&models.Enrollment{}).Where("user_id = ? AND course_id = ?", user.ID, course.ID).Count(&enrollmentCount)
	db.Model(&models.Payment{}).Where("order_id = ?", result.Order.ID).Count(&paymentCount)
	db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&cartCount)
	if enrollmentCount != 1 {
		t.Fatalf("应创建 1 条报名记录, 实际 %d", enrollmentCount)
	}
	if paymentCount != 1 {
		t.Fatalf("应创建 1 条支付凭证, 实际 %d", paymentCount)
	}
	if cartCount != 0 {
		t.Fatalf("完成后应移出购物车, 实际剩余 %d", cartCount)
	}
}

func TestVerifyIsIdempotent(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	course := createTestCourse(t, db, "go-basics", "499.00", true)

	result, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: course.ID})
	if err != nil {
		t.Fatalf("发起购买失败: %v", err)
	}
	payload := verifyPayload(result.Gateway.GatewayOrderID)

	if _, err := svc.Verify(context.Background(), user.ID, payload); err != nil {
		t.Fatalf("首次验签失败: %v", err)
	}
	outcome, err := svc.Verify(context.Background(), user.ID, payload)
	if err != nil {
		t.Fatalf("重复验签应返回成功: %v", err)
	}
	if !outcome.AlreadyCompleted {
		t.Fatalf("重复验签应标记已完成")
	}

	var enrollmentCount int64
	db.Model(&models.Enrollment{}).Where("user_id = ?", user.ID).Count(&enrollmentCount)
	if enrollmentCount != 1 {
		t.Fatalf("重复验签不应重复报名, 实际 %d 条", enrollmentCount)
	}
}

func TestVerifyInvalidSignatureMarksFailedForever(t *testing.T) {
	svc, provider, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	course := createTestCourse(t, db, "go-basics", "499.00", true)

	result, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: course.ID})
	if err != nil {
		t.Fatalf("发起购买失败: %v", err)
	}
	payload := verifyPayload(result.Gateway.GatewayOrderID)

	provider.valid = false
	if _, err := svc.Verify(context.Background(), user.ID, payload); !errors.Is(err, ErrPaymentVerificationFailed) {
		t.Fatalf("篡改签名期望 ErrPaymentVerificationFailed, 实际 %v", err)
	}

	var order models.Order
	if err := db.First(&order, result.Order.ID).Error; err != nil {
		t.Fatalf("查询订单失败: %v", err)
	}
	if order.Status != constants.OrderStatusFailed {
		t.Fatalf("签名失败订单应为 failed, 实际 %s", order.Status)
	}
	var enrollmentCount int64
	db.Model(&models.Enrollment{}).Where("user_id = ?", user.ID).Count(&enrollmentCount)
	if enrollmentCount != 0 {
		t.Fatalf("签名失败不应创建报名")
	}

	// failed 为终态：即便换回有效签名也拒绝
	provider.valid = true
	if _, err := svc.Verify(context.Background(), user.ID, payload); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("failed 订单再验签期望 ErrOrderStatusInvalid, 实际 %v", err)
	}
}

func TestVerifyRejectsIncompleteCallback(t *testing.T) {
	svc, _, _ := setupOrderServiceTest(t)
	payload := map[string]interface{}{
		"razorpay_order_id": "gw_order_1",
	}
	if _, err := svc.Verify(context.Background(), 1, payload); !errors.Is(err, ErrCallbackIncomplete) {
		t.Fatalf("缺字段回调期望 ErrCallbackIncomplete, 实际 %v", err)
	}
}

func TestVerifyUnknownGatewayOrderID(t *testing.T) {
	svc, _, _ := setupOrderServiceTest(t)
	if _, err := svc.Verify(context.Background(), 1, verifyPayload("gw_unknown")); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("未知网关订单号期望 ErrOrderNotFound, 实际 %v", err)
	}
}

func TestVerifyInfraErrorLeavesOrderPending(t *testing.T) {
	svc, provider, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	course := createTestCourse(t, db, "go-basics", "499.00", true)

	result, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: course.ID})
	if err != nil {
		t.Fatalf("发起购买失败: %v", err)
	}

	provider.verifyErr = errors.New("gateway timeout")
	if _, err := svc.Verify(context.Background(), user.ID, verifyPayload(result.Gateway.GatewayOrderID)); err == nil {
		t.Fatalf("基础设施故障应向上传播")
	}

	var order models.Order
	if err := db.First(&order, result.Order.ID).Error; err != nil {
		t.Fatalf("查询订单失败: %v", err)
	}
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("基础设施故障后订单应保持 pending, 实际 %s", order.Status)
	}

	// 故障恢复后可重新验签完成
	provider.verifyErr = nil
	if _, err := svc.Verify(context.Background(), user.ID, verifyPayload(result.Gateway.GatewayOrderID)); err != nil {
		t.Fatalf("故障恢复后验签应成功: %v", err)
	}
}

func TestVerifyConsumesCouponOnce(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	course := createTestCourse(t, db, "go-basics", "499.00", true)
	coupon := createTestCoupon(t, db, "SAVE20", constants.CouponTypePercentage, "20", "50")

	result, err := svc.Initiate(context.Background(), InitiateOrderInput{
		UserID:     user.ID,
		CourseID:   course.ID,
		CouponCode: "SAVE20",
	})
	if err != nil {
		t.Fatalf("带券下单失败: %v", err)
	}
	payload := verifyPayload(result.Gateway.GatewayOrderID)

	if _, err := svc.Verify(context.Background(), user.ID, payload); err != nil {
		t.Fatalf("验签失败: %v", err)
	}
	if _, err := svc.Verify(context.Background(), user.ID, payload); err != nil {
		t.Fatalf("重复验签失败: %v", err)
	}

	var refreshed models.Coupon
	if err := db.First(&refreshed, coupon.ID).Error; err != nil {
		t.Fatalf("查询优惠券失败: %v", err)
	}
	if refreshed.UsedCount != 1 {
		t.Fatalf("优惠券应只核销一次, 实际 used_count=%d", refreshed.UsedCount)
	}
	var usageCount int64
	db.Model(&models.CouponUsage{}).Where("order_id = ?", result.Order.ID).Count(&usageCount)
	if usageCount != 1 {
		t.Fatalf("应只有 1 条使用记录, 实际 %d", usageCount)
	}
}

func TestCancelPendingOrder(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	course := createTestCourse(t, db, "go-basics", "499.00", true)

	result, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: course.ID})
	if err != nil {
		t.Fatalf("发起购买失败: %v", err)
	}

	canceled, err := svc.Cancel(user.ID, result.Order.ID)
	if err != nil {
		t.Fatalf("取消订单失败: %v", err)
	}
	if canceled.Status != constants.OrderStatusFailed {
		t.Fatalf("取消后订单应为 failed, 实际 %s", canceled.Status)
	}
}

func TestCancelCompletedOrderIsNoop(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	course := createTestCourse(t, db, "go-basics", "499.00", true)

	result, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: course.ID})
	if err != nil {
		t.Fatalf("发起购买失败: %v", err)
	}
	if _, err := svc.Verify(context.Background(), user.ID, verifyPayload(result.Gateway.GatewayOrderID)); err != nil {
		t.Fatalf("验签失败: %v", err)
	}

	order, err := svc.Cancel(user.ID, result.Order.ID)
	if err != nil {
		t.Fatalf("取消已完成订单应为幂等空操作: %v", err)
	}
	if order.Status != constants.OrderStatusCompleted {
		t.Fatalf("已完成订单状态不应被取消改写, 实际 %s", order.Status)
	}
}

func TestCancelForeignOrderRejected(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	owner := createTestUser(t, db, "owner@example.com")
	other := createTestUser(t, db, "other@example.com")
	course := createTestCourse(t, db, "go-basics", "499.00", true)

	result, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: owner.ID, CourseID: course.ID})
	if err != nil {
		t.Fatalf("发起购买失败: %v", err)
	}

	if _, err := svc.Cancel(other.ID, result.Order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("非本人订单取消期望 ErrOrderNotFound, 实际 %v", err)
	}
}

func TestInitiateRejectsFullyDiscountedOrder(t *testing.T) {
	svc, provider, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	course := createTestCourse(t, db, "go-basics", "299.00", true)
	createTestCoupon(t, db, "FLAT500", constants.CouponTypeFixed, "500.00", "0")

	_, err := svc.Initiate(context.Background(), InitiateOrderInput{
		UserID:     user.ID,
		CourseID:   course.ID,
		CouponCode: "FLAT500",
	})
	if !errors.Is(err, ErrNothingToCharge) {
		t.Fatalf("折扣吃掉全款期望 ErrNothingToCharge, 实际 %v", err)
	}
	if provider.createCalls != 0 {
		t.Fatalf("零金额不应调用网关, 实际 %d 次", provider.createCalls)
	}

	var orderCount int64
	db.Model(&models.Order{}).Where("user_id = ?", user.ID).Count(&orderCount)
	if orderCount != 0 {
		t.Fatalf("零金额不应建单, 实际 %d", orderCount)
	}
}

func TestVerifyReusesExistingEnrollment(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	user := createTestUser(t, db, "buyer@example.com")
	course := createTestCourse(t, db, "go-basics", "499.00", true)

	result, err := svc.Initiate(context.Background(), InitiateOrderInput{UserID: user.ID, CourseID: course.ID})
	if err != nil {
		t.Fatalf("发起购买失败: %v", err)
	}

	// 并发验签赢家已先落了报名记录
	if err := db.Create(&models.Enrollment{UserID: user.ID, CourseID: course.ID, OrderID: result.Order.ID}).Error; err != nil {
		t.Fatalf("预置报名记录失败: %v", err)
	}

	outcome, err := svc.Verify(context.Background(), user.ID, verifyPayload(result.Gateway.GatewayOrderID))
	if err != nil {
		t.Fatalf("已有报名记录时验签应成功: %v", err)
	}
	if outcome.Order.Status != constants.OrderStatusCompleted {
		t.Fatalf("订单应完成, 实际 %s", outcome.Order.Status)
	}

	var enrollmentCount int64
	db.Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", user.ID, course.ID).
		Count(&enrollmentCount)
	if enrollmentCount != 1 {
		t.Fatalf("报名记录应复用不应重复创建, 实际 %d", enrollmentCount)
	}
}
