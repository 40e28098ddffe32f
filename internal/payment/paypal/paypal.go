package paypal

import (
	"context"

	"github.com/coursemart/internal/constants"
	"github.com/coursemart/internal/payment"
)

// Provider PayPal 适配器（未接入，所有调用返回 NotImplemented）
type Provider struct{}

// New 创建 PayPal 适配器
func New() *Provider {
	return &Provider{}
}

// Name 提供方标识
func (p *Provider) Name() string {
	return constants.PaymentProviderPaypal
}

// CreateOrder 未接入
func (p *Provider) CreateOrder(ctx context.Context, input payment.CreateOrderInput) (*payment.CreateOrderResult, error) {
	return nil, payment.NewProviderError(p.Name(), "create_order", payment.ErrNotImplemented)
}

// VerifyPayment 未接入
func (p *Provider) VerifyPayment(ctx context.Context, input payment.VerifyInput) (*payment.VerifyResult, error) {
	return nil, payment.NewProviderError(p.Name(), "verify_payment", payment.ErrNotImplemented)
}
