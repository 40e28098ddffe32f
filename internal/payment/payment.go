package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coursemart/internal/models"
)

// ErrNotImplemented 提供方未接入时所有调用返回该错误
var ErrNotImplemented = errors.New("payment provider not implemented")

// ProviderError 网关基础设施错误（网络失败/凭证缺失/网关拒绝）
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError 构造提供方错误
func NewProviderError(provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// Buyer 下单用户信息（传给网关生成收据）
type Buyer struct {
	Name  string
	Email string
}

// CreateOrderInput 创建网关订单输入
type CreateOrderInput struct {
	OrderNo     string
	Amount      models.Money
	Currency    string
	CourseTitle string
	Buyer       Buyer
}

// CreateOrderResult 创建网关订单结果
type CreateOrderResult struct {
	GatewayOrderID string       `json:"gateway_order_id"`
	Amount         models.Money `json:"amount"`
	Currency       string       `json:"currency"`
	KeyID          string       `json:"key_id"`
	Provider       string       `json:"provider"`
}

// VerifyInput 验签输入
type VerifyInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// VerifyResult 验签结果。签名不匹配是正常的否定结果，不是错误。
type VerifyResult struct {
	Valid     bool
	PaymentID string
	Signature string
}

// Provider 支付提供方统一接口
type Provider interface {
	// CreateOrder 在网关创建支付订单
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	// VerifyPayment 校验支付回执签名；仅基础设施故障返回 error
	VerifyPayment(ctx context.Context, input VerifyInput) (*VerifyResult, error)
	// Name 提供方标识
	Name() string
}

// 回调字段别名（不同网关对同一概念使用不同字段名，按优先级取第一个非空值）
var (
	callbackOrderFields     = []string{"razorpay_order_id", "gateway_order_id", "order_id"}
	callbackPaymentFields   = []string{"razorpay_payment_id", "gateway_payment_id", "payment_id"}
	callbackSignatureFields = []string{"razorpay_signature", "gateway_signature", "signature"}
)

// NormalizeCallback 将网关回调的自由字段包归一化为固定验签输入。
// 网关特有的字段名不允许越过该边界。
func NormalizeCallback(payload map[string]interface{}) VerifyInput {
	return VerifyInput{
		GatewayOrderID:   firstStringField(payload, callbackOrderFields),
		GatewayPaymentID: firstStringField(payload, callbackPaymentFields),
		Signature:        firstStringField(payload, callbackSignatureFields),
	}
}

func firstStringField(payload map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if v, ok := payload[key].(string); ok {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	return ""
}
