package constants

// 订单状态常量
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusFailed    = "failed"
)

// 支付提供方常量
const (
	PaymentProviderRazorpay = "razorpay"
	PaymentProviderStripe   = "stripe"
	PaymentProviderPaypal   = "paypal"
)

// DefaultPaymentProvider 未配置时的兜底提供方
const DefaultPaymentProvider = PaymentProviderRazorpay

// DefaultCurrency 默认结算币种
const DefaultCurrency = "INR"

// 优惠券类型常量
const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"
)

// 优惠券校验失败原因常量
const (
	CouponReasonDisabled        = "disabled"
	CouponReasonNotFound        = "not_found"
	CouponReasonInactive        = "inactive"
	CouponReasonNotStarted      = "not_started"
	CouponReasonExpired         = "expired"
	CouponReasonUsageLimit      = "usage_limit_reached"
	CouponReasonPerUserLimit    = "per_user_limit_reached"
	CouponReasonMinAmountNotMet = "min_amount_not_met"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 设置键常量
const (
	SettingKeySiteConfig    = "site_config"
	SettingKeyPaymentConfig = "payment_config"
)

// 设置字段常量
const (
	SettingFieldActiveProvider = "active_provider"
)

// 队列名称常量
const (
	QueueDefault = "default"
)

// 异步任务类型常量
const (
	TaskEnrollmentEmail = "email:enrollment_confirmed"
)

// OrderNoPrefix 订单编号前缀
const OrderNoPrefix = "CM"
