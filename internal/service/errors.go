package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// 业务错误定义
var (
	// 课程
	ErrCourseNotFound      = errors.New("course not found")
	ErrCourseNotPublished  = errors.New("course not published")
	ErrCoursePriceInvalid  = errors.New("course price invalid")
	ErrCourseFreeNoPayment = errors.New("free course does not require payment")

	// 报名
	ErrAlreadyEnrolled = errors.New("already enrolled")

	// 订单
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderStatusInvalid = errors.New("order status invalid")
	ErrOrderRetryTooSoon  = errors.New("pending order exists, retry later")
	ErrNothingToCharge    = errors.New("order total fully discounted, nothing to charge")

	// 支付
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrCallbackIncomplete        = errors.New("payment callback payload incomplete")
	ErrProviderNotSupported      = errors.New("payment provider not supported")

	// 优惠券
	ErrCouponInvalid = errors.New("coupon invalid")

	// 购物车
	ErrCartEmpty      = errors.New("cart is empty")
	ErrCartItemExists = errors.New("course already in cart")

	// 用户与认证
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrUserNotFound       = errors.New("user not found")

	// 邮件
	ErrEmailDisabled = errors.New("email disabled")
)

// RetryAfterError 重复下单保护：告知客户端多久之后可重试。
// errors.Is(err, ErrOrderRetryTooSoon) 成立。
type RetryAfterError struct {
	After time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("pending order exists, retry after %d seconds", int(e.After.Seconds()))
}

func (e *RetryAfterError) Is(target error) bool {
	return target == ErrOrderRetryTooSoon
}

// NewRetryAfterError 构造重试保护错误
func NewRetryAfterError(after time.Duration) *RetryAfterError {
	if after < time.Second {
		after = time.Second
	}
	return &RetryAfterError{After: after}
}

// CartValidationError 购物车批量校验错误：一次性汇报所有不可购买的课程标题。
// errors.Is(err, ErrCourseNotPublished) 等单项判定不适用，调用方按该类型整体处理。
type CartValidationError struct {
	Titles []string
}

func (e *CartValidationError) Error() string {
	return "courses not purchasable: " + strings.Join(e.Titles, ", ")
}
