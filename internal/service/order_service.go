package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/coursemart/internal/constants"
	"github.com/coursemart/internal/logger"
	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/payment"
	"github.com/coursemart/internal/queue"
	"github.com/coursemart/internal/repository"

	"gorm.io/gorm"
)

// OrderService 订单服务。状态机：pending → completed | pending → failed，终态不可再转移。
type OrderService struct {
	orderRepo      repository.OrderRepository
	courseRepo     repository.CourseRepository
	enrollmentRepo repository.EnrollmentRepository
	paymentRepo    repository.PaymentRepository
	cartRepo       repository.CartRepository
	userRepo       repository.UserRepository
	couponService  *CouponService
	selector       *ProviderSelector
	queueClient    *queue.Client
	retryWindow    time.Duration
	gatewayTimeout time.Duration
	currency       string
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, courseRepo repository.CourseRepository, enrollmentRepo repository.EnrollmentRepository, paymentRepo repository.PaymentRepository, cartRepo repository.CartRepository, userRepo repository.UserRepository, couponService *CouponService, selector *ProviderSelector, queueClient *queue.Client, retryWindowSeconds, gatewayTimeoutSeconds int, currency string) *OrderService {
	if retryWindowSeconds <= 0 {
		retryWindowSeconds = 60
	}
	if gatewayTimeoutSeconds <= 0 {
		gatewayTimeoutSeconds = 15
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = constants.DefaultCurrency
	}
	return &OrderService{
		orderRepo:      orderRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		paymentRepo:    paymentRepo,
		cartRepo:       cartRepo,
		userRepo:       userRepo,
		couponService:  couponService,
		selector:       selector,
		queueClient:    queueClient,
		retryWindow:    time.Duration(retryWindowSeconds) * time.Second,
		gatewayTimeout: time.Duration(gatewayTimeoutSeconds) * time.Second,
		currency:       currency,
	}
}

// InitiateOrderInput 发起单课购买输入
type InitiateOrderInput struct {
	UserID     uint
	CourseID   uint
	CouponCode string
}

// InitiateOrderResult 发起购买结果：本地订单 + 网关下单信息（前端拉起收银台用）
type InitiateOrderResult struct {
	Order   *models.Order              `json:"order"`
	Gateway *payment.CreateOrderResult `json:"gateway"`
}

// VerifyOutcome 验签处理结果
type VerifyOutcome struct {
	Order            *models.Order `json:"order"`
	AlreadyCompleted bool          `json:"already_completed"`
}

// Initiate 发起单课购买
func (s *OrderService) Initiate(ctx context.Context, input InitiateOrderInput) (*InitiateOrderResult, error) {
	course, err := s.purchasableCourse(input.UserID, input.CourseID)
	if err != nil {
		return nil, err
	}

	// 重复下单保护：存在窗口期内的待支付订单时拒绝，避免重复网关扣款。
	// 超过窗口的旧单视为废弃，允许新建（不自动取消）。
	if err := s.checkPendingRetryWindow(input.UserID, input.CourseID); err != nil {
		return nil, err
	}

	amount := course.PriceAmount
	finalAmount := amount
	discount := models.ZeroMoney()
	var couponID *uint
	couponCode := ""
	if strings.TrimSpace(input.CouponCode) != "" {
		validation, err := s.couponService.Validate(input.CouponCode, input.UserID, course.ID, amount)
		if err != nil {
			return nil, err
		}
		if !validation.Valid {
			return nil, fmt.Errorf("%w: %s", ErrCouponInvalid, validation.Message)
		}
		discount = validation.Discount
		finalAmount = validation.FinalAmount
		couponID = &validation.Coupon.ID
		couponCode = validation.Coupon.Code
	}
	// 折扣吃掉全款时网关无可扣金额，按业务错误拒绝而不是让网关报错
	if !finalAmount.IsPositive() {
		return nil, ErrNothingToCharge
	}

	provider := s.selector.Active()
	if provider == nil {
		return nil, ErrProviderNotSupported
	}

	order := &models.Order{
		OrderNo:        generateOrderNo(),
		UserID:         input.UserID,
		CourseID:       course.ID,
		Status:         constants.OrderStatusPending,
		Provider:       provider.Name(),
		Currency:       s.orderCurrency(course),
		Amount:         amount,
		DiscountAmount: discount,
		FinalAmount:    finalAmount,
		CouponID:       couponID,
		CouponCode:     couponCode,
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}

	gateway, err := s.createGatewayOrder(ctx, provider, order, course.Title)
	if err != nil {
		return nil, err
	}

	logger.Infow("order_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"user_id", order.UserID,
		"course_id", order.CourseID,
		"provider", order.Provider,
		"final_amount", order.FinalAmount.String(),
	)
	return &InitiateOrderResult{Order: order, Gateway: gateway}, nil
}

// Verify 验签并完成订单。
// 只按网关订单号定位本地订单，不信任客户端的内部订单ID。
func (s *OrderService) Verify(ctx context.Context, userID uint, payload map[string]interface{}) (*VerifyOutcome, error) {
	cb := payment.NormalizeCallback(payload)
	if cb.GatewayOrderID == "" || cb.GatewayPaymentID == "" || cb.Signature == "" {
		return nil, ErrCallbackIncomplete
	}

	order, err := s.orderRepo.GetByGatewayOrderID(cb.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if userID != 0 && order.UserID != userID {
		return nil, ErrOrderNotFound
	}

	// 幂等：已完成的订单直接返回成功，不重复处理
	if order.Status == constants.OrderStatusCompleted {
		return &VerifyOutcome{Order: order, AlreadyCompleted: true}, nil
	}
	// 失败为终态，不允许复活，需重新下单
	if order.Status == constants.OrderStatusFailed {
		return nil, ErrOrderStatusInvalid
	}

	valid, err := s.verifyWithPinnedProvider(ctx, order, cb)
	if err != nil {
		return nil, err
	}
	if !valid {
		s.markFailed(order.ID, "signature verification failed")
		logger.Warnw("payment_signature_invalid",
			"order_id", order.ID,
			"gateway_order_id", cb.GatewayOrderID,
		)
		return nil, ErrPaymentVerificationFailed
	}

	if err := s.completeOrders(ctx, []models.Order{*order}, cb); err != nil {
		return nil, err
	}

	completed, err := s.orderRepo.GetByID(order.ID)
	if err != nil {
		return nil, err
	}
	logger.Infow("payment_verified",
		"order_id", order.ID,
		"gateway_order_id", cb.GatewayOrderID,
		"gateway_payment_id", cb.GatewayPaymentID,
	)
	return &VerifyOutcome{Order: completed}, nil
}

// Cancel 取消待支付订单。订单已离开 pending 时为幂等空操作（客户端可能与验签竞争）。
func (s *OrderService) Cancel(userID, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPending {
		return order, nil
	}
	ok, err := s.orderRepo.TransitionStatus(order.ID, constants.OrderStatusPending, constants.OrderStatusFailed, map[string]interface{}{
		"failure_reason": "canceled by user",
	})
	if err != nil {
		return nil, err
	}
	if ok {
		logger.Infow("order_canceled", "order_id", order.ID, "user_id", userID)
	}
	return s.orderRepo.GetByID(order.ID)
}

// purchasableCourse 校验课程可购买并返回课程
func (s *OrderService) purchasableCourse(userID, courseID uint) (*models.Course, error) {
	course, err := s.courseRepo.GetByID(courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	if !course.IsPublished {
		return nil, ErrCourseNotPublished
	}
	// 免费课程不走支付通道
	if !course.PriceAmount.IsPositive() {
		return nil, ErrCourseFreeNoPayment
	}
	enrolled, err := s.enrollmentRepo.ExistsByUserAndCourse(userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}
	return course, nil
}

func (s *OrderService) checkPendingRetryWindow(userID, courseID uint) error {
	pending, err := s.orderRepo.GetLatestPendingByUserAndCourse(userID, courseID)
	if err != nil {
		return err
	}
	if pending == nil {
		return nil
	}
	age := time.Since(pending.CreatedAt)
	if age < s.retryWindow {
		return NewRetryAfterError(s.retryWindow - age)
	}
	return nil
}

// createGatewayOrder 调用网关下单并回填网关订单号。
// 网关失败时本地订单立即转失败，不留下超出窗口仍无网关单的 pending 订单。
func (s *OrderService) createGatewayOrder(ctx context.Context, provider payment.Provider, order *models.Order, courseTitle string) (*payment.CreateOrderResult, error) {
	buyer := s.buyerInfo(order.UserID)

	gatewayCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	gateway, err := provider.CreateOrder(gatewayCtx, payment.CreateOrderInput{
		OrderNo:     order.OrderNo,
		Amount:      order.FinalAmount,
		Currency:    order.Currency,
		CourseTitle: courseTitle,
		Buyer:       buyer,
	})
	if err != nil {
		s.markFailed(order.ID, "gateway order creation failed")
		logger.Errorw("gateway_order_create_failed",
			"order_id", order.ID,
			"provider", provider.Name(),
			"error", err,
		)
		return nil, err
	}

	if err := s.orderRepo.SetGatewayOrderID(order.ID, gateway.GatewayOrderID); err != nil {
		s.markFailed(order.ID, "gateway order id persist failed")
		return nil, err
	}
	order.GatewayOrderID = &gateway.GatewayOrderID
	return gateway, nil
}

// verifyWithPinnedProvider 用下单时固定的提供方验签（而非当前激活的提供方）
func (s *OrderService) verifyWithPinnedProvider(ctx context.Context, order *models.Order, cb payment.VerifyInput) (bool, error) {
	provider, err := s.selector.ByName(order.Provider)
	if err != nil {
		return false, err
	}
	verifyCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	result, err := provider.VerifyPayment(verifyCtx, cb)
	if err != nil {
		// 基础设施故障不做状态转移，留待重新验签
		return false, err
	}
	return result.Valid, nil
}

// completeOrders 在单个事务内完成一批订单：
// 状态转移、创建报名、落支付凭证、移出购物车、核销优惠券。
// 报名/凭证的唯一约束冲突按并发重复验签的成功路径恢复。
func (s *OrderService) completeOrders(ctx context.Context, orders []models.Order, cb payment.VerifyInput) error {
	now := time.Now()
	var enqueued []queue.EnrollmentEmailPayload

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		enrollmentRepo := s.enrollmentRepo.WithTx(tx)
		paymentRepo := s.paymentRepo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		for i := range orders {
			order := &orders[i]
			ok, err := orderRepo.TransitionStatus(order.ID, constants.OrderStatusPending, constants.OrderStatusCompleted, map[string]interface{}{
				"paid_at": now,
			})
			if err != nil {
				return err
			}
			if !ok {
				// 竞争输家：确认赢家已完成则继续，其他状态为异常
				current, err := orderRepo.GetByID(order.ID)
				if err != nil {
					return err
				}
				if current == nil || current.Status != constants.OrderStatusCompleted {
					return ErrOrderStatusInvalid
				}
				continue
			}

			enrollment := &models.Enrollment{
				UserID:   order.UserID,
				CourseID: order.CourseID,
				OrderID:  order.ID,
			}
			if err := enrollmentRepo.Create(enrollment); err != nil {
				if !errors.Is(err, gorm.ErrDuplicatedKey) {
					return err
				}
				logger.Debugw("enrollment_already_exists",
					"user_id", order.UserID,
					"course_id", order.CourseID,
				)
				// 并发重复验签的输家复用已有报名记录，保证邮件任务带真实ID
				existing, err := enrollmentRepo.GetByUserAndCourse(order.UserID, order.CourseID)
				if err != nil {
					return err
				}
				if existing != nil {
					enrollment = existing
				}
			}

			receipt := &models.Payment{
				OrderID:          order.ID,
				UserID:           order.UserID,
				Provider:         order.Provider,
				Amount:           order.FinalAmount,
				Currency:         order.Currency,
				GatewayOrderID:   cb.GatewayOrderID,
				GatewayPaymentID: cb.GatewayPaymentID,
				Signature:        cb.Signature,
			}
			if err := paymentRepo.Create(receipt); err != nil {
				if !errors.Is(err, gorm.ErrDuplicatedKey) {
					return err
				}
			}

			if err := cartRepo.DeleteByUserAndCourse(order.UserID, order.CourseID); err != nil {
				return err
			}

			if order.CouponID != nil {
				if err := s.couponService.Consume(tx, *order.CouponID, order.UserID, order.ID, order.DiscountAmount); err != nil {
					return err
				}
			}

			if enrollment.ID != 0 {
				enqueued = append(enqueued, queue.EnrollmentEmailPayload{
					OrderID:      order.ID,
					EnrollmentID: enrollment.ID,
				})
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// 邮件通知为发后即忘，失败不影响订单完成
	for _, payload := range enqueued {
		if err := s.queueClient.EnqueueEnrollmentEmail(payload); err != nil {
			logger.Warnw("enrollment_email_enqueue_failed", "order_id", payload.OrderID, "error", err)
		}
	}
	return nil
}

func (s *OrderService) markFailed(orderID uint, reason string) {
	ok, err := s.orderRepo.TransitionStatus(orderID, constants.OrderStatusPending, constants.OrderStatusFailed, map[string]interface{}{
		"failure_reason": reason,
	})
	if err != nil {
		logger.Errorw("order_mark_failed_error", "order_id", orderID, "error", err)
		return
	}
	if !ok {
		logger.Debugw("order_mark_failed_skipped", "order_id", orderID, "reason", reason)
	}
}

func (s *OrderService) buyerInfo(userID uint) payment.Buyer {
	buyer := payment.Buyer{}
	if s.userRepo == nil {
		return buyer
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		logger.Warnw("buyer_lookup_failed", "user_id", userID, "error", err)
		return buyer
	}
	if user != nil {
		buyer.Name = user.DisplayName
		buyer.Email = user.Email
	}
	return buyer
}

func (s *OrderService) orderCurrency(course *models.Course) string {
	currency := strings.ToUpper(strings.TrimSpace(course.PriceCurrency))
	if currency == "" {
		return s.currency
	}
	return currency
}

// ListByUser 获取用户订单列表
func (s *OrderService) ListByUser(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListByUser(filter)
}

// AdminList 管理端订单列表
func (s *OrderService) AdminList(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// GetByIDAndUser 获取用户订单详情
func (s *OrderService) GetByIDAndUser(orderID, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("%s%s%s", constants.OrderNoPrefix, now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
