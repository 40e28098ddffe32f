package payment

import (
	"errors"
	"testing"
)

func TestNormalizeCallbackRazorpayFields(t *testing.T) {
	input := NormalizeCallback(map[string]interface{}{
		"razorpay_order_id":   "order_abc",
		"razorpay_payment_id": "pay_xyz",
		"razorpay_signature":  "sig123",
		"unrelated":           "noise",
	})
	if input.GatewayOrderID != "order_abc" {
		t.Fatalf("unexpected gateway order id: %s", input.GatewayOrderID)
	}
	if input.GatewayPaymentID != "pay_xyz" {
		t.Fatalf("unexpected gateway payment id: %s", input.GatewayPaymentID)
	}
	if input.Signature != "sig123" {
		t.Fatalf("unexpected signature: %s", input.Signature)
	}
}

func TestNormalizeCallbackGenericFieldsFallback(t *testing.T) {
	input := NormalizeCallback(map[string]interface{}{
		"order_id":   "order_generic",
		"payment_id": "pay_generic",
		"signature":  "sig_generic",
	})
	if input.GatewayOrderID != "order_generic" || input.GatewayPaymentID != "pay_generic" || input.Signature != "sig_generic" {
		t.Fatalf("generic fields not normalized: %+v", input)
	}
}

func TestNormalizeCallbackPriorityOrder(t *testing.T) {
	input := NormalizeCallback(map[string]interface{}{
		"razorpay_order_id": "order_specific",
		"order_id":          "order_generic",
	})
	if input.GatewayOrderID != "order_specific" {
		t.Fatalf("provider-specific field should win: %s", input.GatewayOrderID)
	}
}

func TestNormalizeCallbackIgnoresNonStringAndBlank(t *testing.T) {
	input := NormalizeCallback(map[string]interface{}{
		"razorpay_order_id": 42,
		"order_id":          "  ",
	})
	if input.GatewayOrderID != "" {
		t.Fatalf("expected empty gateway order id, got %s", input.GatewayOrderID)
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	err := NewProviderError("stripe", "create_order", ErrNotImplemented)
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected unwrap to ErrNotImplemented")
	}
}
