package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coursemart/internal/models"
	"github.com/coursemart/internal/payment"

	"github.com/shopspring/decimal"
)

func TestSignDeterministic(t *testing.T) {
	got := Sign("secret", "order_abc", "pay_xyz")
	again := Sign("secret", "order_abc", "pay_xyz")
	if got != again {
		t.Fatalf("signature not deterministic: %s vs %s", got, again)
	}
	if got == Sign("other-secret", "order_abc", "pay_xyz") {
		t.Fatalf("different secrets should produce different signatures")
	}
}

func TestVerifyPaymentValidSignature(t *testing.T) {
	p := New(Config{KeyID: "rzp_test_key", KeySecret: "secret"})
	sig := Sign("secret", "order_abc", "pay_xyz")

	result, err := p.VerifyPayment(context.Background(), payment.VerifyInput{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_xyz",
		Signature:        sig,
	})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid signature")
	}
	if result.PaymentID != "pay_xyz" {
		t.Fatalf("unexpected payment id: %s", result.PaymentID)
	}
}

func TestVerifyPaymentTamperedSignatureIsNotError(t *testing.T) {
	p := New(Config{KeyID: "rzp_test_key", KeySecret: "secret"})

	result, err := p.VerifyPayment(context.Background(), payment.VerifyInput{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_xyz",
		Signature:        "deadbeef",
	})
	if err != nil {
		t.Fatalf("tampered signature must not be an error: %v", err)
	}
	if result.Valid {
		t.Fatalf("expected invalid signature result")
	}
}

func TestVerifyPaymentMissingSecretIsProviderError(t *testing.T) {
	p := New(Config{KeyID: "rzp_test_key"})

	_, err := p.VerifyPayment(context.Background(), payment.VerifyInput{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_xyz",
		Signature:        "deadbeef",
	})
	if err == nil {
		t.Fatalf("expected provider error for missing secret")
	}
	var perr *payment.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *payment.ProviderError, got %T", err)
	}
}

func TestCreateOrderSendsMinorUnits(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_test_key" || pass != "secret" {
			t.Errorf("unexpected basic auth: %s/%s", user, pass)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body failed: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       "order_new123",
			"amount":   249900,
			"currency": "INR",
		})
	}))
	defer server.Close()

	p := New(Config{KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: server.URL})
	result, err := p.CreateOrder(context.Background(), payment.CreateOrderInput{
		OrderNo:     "CM20240101ABCDEF",
		Amount:      models.NewMoneyFromDecimal(decimal.NewFromFloat(2499)),
		Currency:    "INR",
		CourseTitle: "Intro to Databases",
		Buyer:       payment.Buyer{Name: "Asha", Email: "asha@example.com"},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if result.GatewayOrderID != "order_new123" {
		t.Fatalf("unexpected gateway order id: %s", result.GatewayOrderID)
	}
	if result.KeyID != "rzp_test_key" {
		t.Fatalf("unexpected key id: %s", result.KeyID)
	}
	if result.Amount.String() != "2499.00" {
		t.Fatalf("unexpected amount: %s", result.Amount.String())
	}
	if amount, ok := gotBody["amount"].(float64); !ok || int64(amount) != 249900 {
		t.Fatalf("expected amount in minor units, got %v", gotBody["amount"])
	}
	if gotBody["receipt"] != "CM20240101ABCDEF" {
		t.Fatalf("unexpected receipt: %v", gotBody["receipt"])
	}
}

func TestCreateOrderGatewayRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"description":"amount too small"}}`))
	}))
	defer server.Close()

	p := New(Config{KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: server.URL})
	_, err := p.CreateOrder(context.Background(), payment.CreateOrderInput{
		OrderNo:  "CM20240101ABCDEF",
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(1)),
		Currency: "INR",
	})
	if err == nil {
		t.Fatalf("expected provider error on gateway rejection")
	}
	var perr *payment.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *payment.ProviderError, got %T", err)
	}
}

func TestCreateOrderMissingCredentials(t *testing.T) {
	p := New(Config{})
	_, err := p.CreateOrder(context.Background(), payment.CreateOrderInput{
		OrderNo:  "CM20240101ABCDEF",
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		Currency: "INR",
	})
	if err == nil {
		t.Fatalf("expected error for missing credentials")
	}
}
