package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder("order-1", "buyer-1", "buyer@example.com", "paypal", decimal.NewFromFloat(100))
	if err != nil {
		t.Fatalf("NewOrder returned error: %v", err)
	}
	return order
}

func TestNewOrderValidation(t *testing.T) {
	if _, err := NewOrder("", "buyer-1", "b@example.com", "paypal", decimal.NewFromInt(10)); err == nil {
		t.Error("expected error for missing order id")
	}
	if _, err := NewOrder("order-1", "buyer-1", "b@example.com", "paypal", decimal.NewFromInt(-1)); err == nil {
		t.Error("expected error for negative total")
	}
}

func TestMarkCompletedIsIdempotent(t *testing.T) {
	order := newTestOrder(t)
	if err := order.MarkCompleted(); err != nil {
		t.Fatalf("first MarkCompleted failed: %v", err)
	}
	if err := order.MarkCompleted(); err != nil {
		t.Fatalf("second MarkCompleted should be a no-op, got: %v", err)
	}
	if order.Status != OrderStatusCompleted {
		t.Errorf("expected status %s, got %s", OrderStatusCompleted, order.Status)
	}
}

func TestCannotCompleteCancelledOrder(t *testing.T) {
	order := newTestOrder(t)
	if err := order.MarkCancelled(); err != nil {
		t.Fatalf("MarkCancelled failed: %v", err)
	}
	if err := order.MarkCompleted(); err == nil {
		t.Error("expected error completing a cancelled order")
	}
}

func TestCannotCancelCompletedOrder(t *testing.T) {
	order := newTestOrder(t)
	if err := order.MarkCompleted(); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	if err := order.MarkCancelled(); err == nil {
		t.Error("expected error cancelling a completed order")
	}
}

func TestVerificationTransitions(t *testing.T) {
	order := newTestOrder(t)
	order.VerificationStatus = VerificationPending
	if err := order.MarkVerified(); err != nil {
		t.Fatalf("MarkVerified failed: %v", err)
	}
	if err := order.MarkRejected(); err == nil {
		t.Error("expected error rejecting an already verified order")
	}
}

func TestMarkSellerPaid(t *testing.T) {
	order := newTestOrder(t)
	if err := order.MarkSellerPaid(); err == nil {
		t.Error("expected error paying out a pending order")
	}
	if err := order.MarkCompleted(); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	if err := order.MarkSellerPaid(); err != nil {
		t.Fatalf("MarkSellerPaid failed: %v", err)
	}
	if err := order.MarkSellerPaid(); err == nil {
		t.Error("expected error on repeated payout")
	}
}

func TestItemsTotalMatchesSnapshots(t *testing.T) {
	items := []*OrderItem{
		{UnitPrice: decimal.NewFromFloat(19.99), Quantity: 2},
		{UnitPrice: decimal.NewFromFloat(5.00), Quantity: 3},
	}
	got := ItemsTotal(items)
	want := decimal.NewFromFloat(54.98)
	if !got.Equal(want) {
		t.Errorf("expected total %s, got %s", want, got)
	}
}

func TestDecodeProviderConfig(t *testing.T) {
	gw := &PaymentGateway{Name: "paypal", Kind: GatewayKindOnline, Provider: ProviderRedirect}
	raw := []byte(`{"base_url":"https://api.sandbox.example.com","client_id":"id","client_secret":"secret"}`)
	if err := gw.DecodeProviderConfig(raw); err != nil {
		t.Fatalf("DecodeProviderConfig failed: %v", err)
	}
	if gw.Redirect == nil || gw.Redirect.ClientID != "id" {
		t.Error("redirect config not populated")
	}

	missing := []byte(`{"base_url":"https://api.sandbox.example.com"}`)
	gw2 := &PaymentGateway{Name: "paypal", Kind: GatewayKindOnline, Provider: ProviderRedirect}
	if err := gw2.DecodeProviderConfig(missing); err == nil {
		t.Error("expected error for missing credentials")
	}

	otc := &PaymentGateway{Name: "bank-transfer", Kind: GatewayKindOTC, Provider: ProviderNone}
	if err := otc.DecodeProviderConfig(nil); err != nil {
		t.Errorf("OTC gateway should not require provider config: %v", err)
	}

	online := &PaymentGateway{Name: "broken", Kind: GatewayKindOnline, Provider: ProviderNone}
	if err := online.DecodeProviderConfig(nil); err == nil {
		t.Error("online gateway without provider must be rejected")
	}
}
