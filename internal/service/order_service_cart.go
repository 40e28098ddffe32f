package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/coursemart/internal/constants"
	"github.com/coursemart/internal/logger"
	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/payment"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartCheckoutInput 购物车结算输入
type CartCheckoutInput struct {
	UserID     uint
	CouponCode string
}

// CartCheckoutResult 购物车结算结果：每课程一张订单，整车一次网关扣款
type CartCheckoutResult struct {
	Orders  []models.Order             `json:"orders"`
	Gateway *payment.CreateOrderResult `json:"gateway"`
}

// CartVerifyOutcome 购物车验签处理结果
type CartVerifyOutcome struct {
	Orders           []models.Order `json:"orders"`
	AlreadyCompleted bool           `json:"already_completed"`
}

// CheckoutCart 购物车结算。
// 逐项校验全部购物车课程并一次性汇报所有不可购买项；通过后按课程各建一张
// 待支付订单，对合计金额发起单次网关扣款。网关订单号只写在首单上，
// 同批其余订单靠验签时的订单ID回退路径关联。
func (s *OrderService) CheckoutCart(ctx context.Context, input CartCheckoutInput) (*CartCheckoutResult, error) {
	items, err := s.cartRepo.ListByUser(input.UserID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}

	courses, err := s.validateCartItems(input.UserID, items)
	if err != nil {
		return nil, err
	}

	total := models.ZeroMoney()
	for _, course := range courses {
		total = models.NewMoneyFromDecimal(total.Decimal.Add(course.PriceAmount.Decimal))
	}

	discount := models.ZeroMoney()
	var couponID *uint
	couponCode := ""
	if strings.TrimSpace(input.CouponCode) != "" {
		validation, err := s.couponService.Validate(input.CouponCode, input.UserID, 0, total)
		if err != nil {
			return nil, err
		}
		if !validation.Valid {
			return nil, fmt.Errorf("%w: %s", ErrCouponInvalid, validation.Message)
		}
		discount = validation.Discount
		couponID = &validation.Coupon.ID
		couponCode = validation.Coupon.Code
	}
	chargeTotal := models.NewMoneyFromDecimal(total.Decimal.Sub(discount.Decimal))
	// 折扣吃掉全款时网关无可扣金额，按业务错误拒绝而不是让网关报错
	if !chargeTotal.IsPositive() {
		return nil, ErrNothingToCharge
	}

	provider := s.selector.Active()
	if provider == nil {
		return nil, ErrProviderNotSupported
	}

	orders := make([]models.Order, 0, len(courses))
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		for i, course := range courses {
			order := models.Order{
				OrderNo:     generateOrderNo(),
				UserID:      input.UserID,
				CourseID:    course.ID,
				Status:      constants.OrderStatusPending,
				Provider:    provider.Name(),
				Currency:    s.orderCurrency(&course),
				Amount:      course.PriceAmount,
				FinalAmount: course.PriceAmount,
			}
			// 折扣整体记在首单上，整车扣款金额已按合计扣减
			if i == 0 && couponID != nil {
				order.CouponID = couponID
				order.CouponCode = couponCode
				order.DiscountAmount = discount
				final := course.PriceAmount.Decimal.Sub(discount.Decimal)
				if final.IsNegative() {
					final = decimal.Zero
				}
				order.FinalAmount = models.NewMoneyFromDecimal(final)
			}
			if err := orderRepo.Create(&order); err != nil {
				return err
			}
			orders = append(orders, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	buyer := s.buyerInfo(input.UserID)
	gatewayCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	gateway, err := provider.CreateOrder(gatewayCtx, payment.CreateOrderInput{
		OrderNo:     orders[0].OrderNo,
		Amount:      chargeTotal,
		Currency:    orders[0].Currency,
		CourseTitle: fmt.Sprintf("Cart checkout (%d courses)", len(orders)),
		Buyer:       buyer,
	})
	if err != nil {
		for _, order := range orders {
			s.markFailed(order.ID, "gateway order creation failed")
		}
		logger.Errorw("cart_gateway_order_create_failed",
			"user_id", input.UserID,
			"order_count", len(orders),
			"provider", provider.Name(),
			"error", err,
		)
		return nil, err
	}

	if err := s.orderRepo.SetGatewayOrderID(orders[0].ID, gateway.GatewayOrderID); err != nil {
		for _, order := range orders {
			s.markFailed(order.ID, "gateway order id persist failed")
		}
		return nil, err
	}
	orders[0].GatewayOrderID = &gateway.GatewayOrderID

	logger.Infow("cart_checkout_created",
		"user_id", input.UserID,
		"order_count", len(orders),
		"charge_total", chargeTotal.String(),
		"provider", provider.Name(),
	)
	return &CartCheckoutResult{Orders: orders, Gateway: gateway}, nil
}

// VerifyCartPayment 购物车支付验签。
// 先按网关订单号找同批订单；网关订单号只在首单上，客户端提交的订单ID列表
// 作为回退补全同批，且一律重新校验归属与待支付状态。验签一次，
// 全部订单在同一事务内完成，购物车只清理涉及的课程。
func (s *OrderService) VerifyCartPayment(ctx context.Context, userID uint, payload map[string]interface{}, clientOrderIDs []uint) (*CartVerifyOutcome, error) {
	cb := payment.NormalizeCallback(payload)
	if cb.GatewayOrderID == "" || cb.GatewayPaymentID == "" || cb.Signature == "" {
		return nil, ErrCallbackIncomplete
	}

	anchor, err := s.orderRepo.GetByGatewayOrderID(cb.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	if anchor == nil || (userID != 0 && anchor.UserID != userID) {
		return nil, ErrOrderNotFound
	}

	siblings, err := s.collectSiblings(anchor, cb.GatewayOrderID, clientOrderIDs)
	if err != nil {
		return nil, err
	}

	// 幂等：锚定订单已完成说明整批已处理过
	if anchor.Status == constants.OrderStatusCompleted {
		return &CartVerifyOutcome{Orders: siblings, AlreadyCompleted: true}, nil
	}
	if anchor.Status == constants.OrderStatusFailed {
		return nil, ErrOrderStatusInvalid
	}

	valid, err := s.verifyWithPinnedProvider(ctx, anchor, cb)
	if err != nil {
		return nil, err
	}
	if !valid {
		for _, order := range siblings {
			s.markFailed(order.ID, "signature verification failed")
		}
		logger.Warnw("cart_payment_signature_invalid",
			"gateway_order_id", cb.GatewayOrderID,
			"order_count", len(siblings),
		)
		return nil, ErrPaymentVerificationFailed
	}

	if err := s.completeOrders(ctx, siblings, cb); err != nil {
		return nil, err
	}

	completed := make([]models.Order, 0, len(siblings))
	for _, order := range siblings {
		refreshed, err := s.orderRepo.GetByID(order.ID)
		if err != nil {
			return nil, err
		}
		if refreshed != nil {
			completed = append(completed, *refreshed)
		}
	}
	logger.Infow("cart_payment_verified",
		"gateway_order_id", cb.GatewayOrderID,
		"gateway_payment_id", cb.GatewayPaymentID,
		"order_count", len(completed),
	)
	return &CartVerifyOutcome{Orders: completed}, nil
}

// collectSiblings 汇集与锚定订单同批的订单。
// 先按共享网关订单号查同批；该号通常只写在首单上，查回单行时再回退到
// 客户端提交的订单ID列表。回退路径只接受同用户、同提供方、仍待支付的
// 订单，杜绝客户端夹带无关订单。
func (s *OrderService) collectSiblings(anchor *models.Order, gatewayOrderID string, clientOrderIDs []uint) ([]models.Order, error) {
	siblings := []models.Order{*anchor}
	seen := map[uint]bool{anchor.ID: true}

	shared, err := s.orderRepo.ListByGatewayOrderID(gatewayOrderID, anchor.UserID)
	if err != nil {
		return nil, err
	}
	for _, order := range shared {
		if seen[order.ID] || order.Provider != anchor.Provider {
			continue
		}
		seen[order.ID] = true
		siblings = append(siblings, order)
	}
	if len(siblings) > 1 || len(clientOrderIDs) == 0 {
		return siblings, nil
	}

	extra, err := s.orderRepo.ListPendingByIDsAndUser(clientOrderIDs, anchor.UserID)
	if err != nil {
		return nil, err
	}
	for _, order := range extra {
		if seen[order.ID] {
			continue
		}
		if order.Provider != anchor.Provider {
			continue
		}
		seen[order.ID] = true
		siblings = append(siblings, order)
	}
	return siblings, nil
}

// validateCartItems 批量校验购物车课程。任何一项不可购买都不结算，
// 把所有问题项的标题一次性返回给用户。
func (s *OrderService) validateCartItems(userID uint, items []models.CartItem) ([]models.Course, error) {
	courses := make([]models.Course, 0, len(items))
	var offending []string
	for _, item := range items {
		course, err := s.courseRepo.GetByID(item.CourseID)
		if err != nil {
			return nil, err
		}
		if course == nil {
			offending = append(offending, itemTitle(item))
			continue
		}
		if !course.IsPublished || !course.PriceAmount.IsPositive() {
			offending = append(offending, course.Title)
			continue
		}
		enrolled, err := s.enrollmentRepo.ExistsByUserAndCourse(userID, course.ID)
		if err != nil {
			return nil, err
		}
		if enrolled {
			offending = append(offending, course.Title)
			continue
		}
		courses = append(courses, *course)
	}
	if len(offending) > 0 {
		return nil, &CartValidationError{Titles: offending}
	}
	return courses, nil
}

func itemTitle(item models.CartItem) string {
	if item.Course != nil && item.Course.Title != "" {
		return item.Course.Title
	}
	return fmt.Sprintf("course #%d", item.CourseID)
}
