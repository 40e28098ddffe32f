package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coursemart/internal/constants"
	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/payment"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid   = errors.New("razorpay config invalid")
	ErrRequestFailed   = errors.New("razorpay request failed")
	ErrResponseInvalid = errors.New("razorpay response invalid")
)

const defaultBaseURL = "https://api.razorpay.com"

// Config Razorpay 渠道配置
type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

// Provider Razorpay 支付适配器
type Provider struct {
	cfg    Config
	client *http.Client
}

// New 创建 Razorpay 适配器
func New(cfg Config) *Provider {
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	cfg.KeySecret = strings.TrimSpace(cfg.KeySecret)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name 提供方标识
func (p *Provider) Name() string {
	return constants.PaymentProviderRazorpay
}

// CreateOrder 在 Razorpay 创建订单（金额以最小货币单位上送）
func (p *Provider) CreateOrder(ctx context.Context, input payment.CreateOrderInput) (*payment.CreateOrderResult, error) {
	if p.cfg.KeyID == "" || p.cfg.KeySecret == "" {
		return nil, payment.NewProviderError(p.Name(), "create_order",
			fmt.Errorf("%w: key_id and key_secret are required", ErrConfigInvalid))
	}
	if !input.Amount.IsPositive() {
		return nil, payment.NewProviderError(p.Name(), "create_order",
			fmt.Errorf("%w: amount must be positive", ErrConfigInvalid))
	}

	body := map[string]interface{}{
		"amount":   toMinorUnits(input.Amount),
		"currency": input.Currency,
		"receipt":  input.OrderNo,
		"notes": map[string]string{
			"course":      input.CourseTitle,
			"buyer_name":  input.Buyer.Name,
			"buyer_email": input.Buyer.Email,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, payment.NewProviderError(p.Name(), "create_order", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, payment.NewProviderError(p.Name(), "create_order", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(p.cfg.KeyID, p.cfg.KeySecret)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, payment.NewProviderError(p.Name(), "create_order",
			fmt.Errorf("%w: %v", ErrRequestFailed, err))
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, payment.NewProviderError(p.Name(), "create_order",
			fmt.Errorf("%w: %v", ErrRequestFailed, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, payment.NewProviderError(p.Name(), "create_order",
			fmt.Errorf("%w: http status %d: %s", ErrRequestFailed, resp.StatusCode, truncate(respBytes, 200)))
	}

	var gatewayOrder struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(respBytes, &gatewayOrder); err != nil {
		return nil, payment.NewProviderError(p.Name(), "create_order",
			fmt.Errorf("%w: %v", ErrResponseInvalid, err))
	}
	if gatewayOrder.ID == "" {
		return nil, payment.NewProviderError(p.Name(), "create_order",
			fmt.Errorf("%w: missing order id", ErrResponseInvalid))
	}

	return &payment.CreateOrderResult{
		GatewayOrderID: gatewayOrder.ID,
		Amount:         fromMinorUnits(gatewayOrder.Amount),
		Currency:       gatewayOrder.Currency,
		KeyID:          p.cfg.KeyID,
		Provider:       p.Name(),
	}, nil
}

// VerifyPayment 校验回执签名。签名不匹配返回 Valid=false，不作为错误。
func (p *Provider) VerifyPayment(ctx context.Context, input payment.VerifyInput) (*payment.VerifyResult, error) {
	if p.cfg.KeySecret == "" {
		return nil, payment.NewProviderError(p.Name(), "verify_payment",
			fmt.Errorf("%w: key_secret is required", ErrConfigInvalid))
	}

	expected := Sign(p.cfg.KeySecret, input.GatewayOrderID, input.GatewayPaymentID)
	valid := hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(input.Signature))))
	return &payment.VerifyResult{
		Valid:     valid,
		PaymentID: input.GatewayPaymentID,
		Signature: input.Signature,
	}, nil
}

// Sign 计算回执签名：HMAC-SHA256(orderID + "|" + paymentID)，十六进制小写
func Sign(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// toMinorUnits 金额转最小货币单位（如 INR 的 paise）
func toMinorUnits(amount models.Money) int64 {
	return amount.Decimal.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func fromMinorUnits(minor int64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromInt(minor).Div(decimal.NewFromInt(100)))
}

func truncate(b []byte, limit int) string {
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}
