package checkout

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/gateway"
	"storefront/internal/repository/outbox_repo"
)

type fakeOrderRepo struct {
	orders map[string]*domain.Order
	items  map[string][]*domain.OrderItem
	outbox []*outbox_repo.OutboxMessage
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[string]*domain.Order),
		items:  make(map[string][]*domain.OrderItem),
	}
}

func (f *fakeOrderRepo) CreateOrderWithItems(_ context.Context, order *domain.Order, items []*domain.OrderItem) error {
	f.orders[order.ID] = order
	f.items[order.ID] = items
	return nil
}

func (f *fakeOrderRepo) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return order, nil
}

func (f *fakeOrderRepo) GetOrderByExternalReference(_ context.Context, ref string) (*domain.Order, error) {
	for _, order := range f.orders {
		if order.ExternalReference == ref {
			return order, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeOrderRepo) GetOrdersByBuyerID(_ context.Context, buyerID string) ([]*domain.Order, error) {
	var orders []*domain.Order
	for _, order := range f.orders {
		if order.BuyerID == buyerID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (f *fakeOrderRepo) GetOrderItems(_ context.Context, orderID string) ([]*domain.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeOrderRepo) ListPendingVerification(_ context.Context) ([]*domain.Order, error) {
	var orders []*domain.Order
	for _, order := range f.orders {
		if order.Status == domain.OrderStatusPending && order.VerificationStatus == domain.VerificationPending {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (f *fakeOrderRepo) SetExternalReference(_ context.Context, orderID, ref string, billingInfo []byte) error {
	order, ok := f.orders[orderID]
	if !ok {
		return sql.ErrNoRows
	}
	order.ExternalReference = ref
	order.BillingInfo = billingInfo
	return nil
}

func (f *fakeOrderRepo) CompleteOrder(_ context.Context, orderID string, verification domain.VerificationStatus, msg *outbox_repo.OutboxMessage) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return false, sql.ErrNoRows
	}
	if order.Status != domain.OrderStatusPending {
		return false, nil
	}
	order.Status = domain.OrderStatusCompleted
	if verification != domain.VerificationNone {
		order.VerificationStatus = verification
	}
	if msg != nil {
		f.outbox = append(f.outbox, msg)
	}
	return true, nil
}

func (f *fakeOrderRepo) CancelOrder(_ context.Context, orderID string, verification domain.VerificationStatus) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return false, sql.ErrNoRows
	}
	if order.Status != domain.OrderStatusPending {
		return false, nil
	}
	order.Status = domain.OrderStatusCancelled
	if verification != domain.VerificationNone {
		order.VerificationStatus = verification
	}
	return true, nil
}

type fakeProductRepo struct {
	products map[string]*domain.Product
}

func (f *fakeProductRepo) GetProductsByIDs(_ context.Context, ids []string) (map[string]*domain.Product, error) {
	found := make(map[string]*domain.Product)
	for _, id := range ids {
		if product, ok := f.products[id]; ok {
			found[id] = product
		}
	}
	return found, nil
}

type fakeGatewayRepo struct {
	gateways map[string]*domain.PaymentGateway
}

func (f *fakeGatewayRepo) GetGatewayByName(_ context.Context, name string) (*domain.PaymentGateway, error) {
	gw, ok := f.gateways[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return gw, nil
}

func (f *fakeGatewayRepo) ListActiveGateways(_ context.Context) ([]*domain.PaymentGateway, error) {
	var gateways []*domain.PaymentGateway
	for _, gw := range f.gateways {
		if gw.Active {
			gateways = append(gateways, gw)
		}
	}
	return gateways, nil
}

type fakeAdapter struct {
	name         string
	createErr    error
	confirmErr   error
	createCalls  int
	confirmCalls int
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) CreatePayment(_ context.Context, req *gateway.CreateRequest) (*gateway.Redirect, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &gateway.Redirect{
		ExternalRef: "EXT-" + req.OrderID,
		URL:         "https://provider.example.com/approve/" + req.OrderID,
	}, nil
}

func (f *fakeAdapter) ConfirmPayment(_ context.Context, externalRef string) (*gateway.Confirmation, error) {
	f.confirmCalls++
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return &gateway.Confirmation{ExternalRef: externalRef}, nil
}

type testEnv struct {
	service  CheckoutService
	orders   *fakeOrderRepo
	adapter  *fakeAdapter
	gateways *fakeGatewayRepo
}

func newTestEnv() *testEnv {
	orders := newFakeOrderRepo()
	adapter := &fakeAdapter{name: "paypal"}
	products := &fakeProductRepo{products: map[string]*domain.Product{
		"prod-1": {ID: "prod-1", SellerID: "seller-1", Name: "e-book", Price: decimal.NewFromInt(100), DownloadURL: "https://cdn.example.com/ebook.pdf", Active: true},
		"prod-2": {ID: "prod-2", SellerID: "seller-1", Name: "icon pack", Price: decimal.RequireFromString("19.99"), Active: true},
	}}
	gateways := &fakeGatewayRepo{gateways: map[string]*domain.PaymentGateway{
		"paypal": {
			Name: "paypal", Kind: domain.GatewayKindOnline, Provider: domain.ProviderRedirect, Active: true,
			Fees: domain.FeeSchedule{Fixed: decimal.RequireFromString("0.30"), Percent: decimal.NewFromInt(3)},
		},
		"bank-transfer": {
			Name: "bank-transfer", Kind: domain.GatewayKindOTC, Active: true,
			Fees:         domain.FeeSchedule{Fixed: decimal.Zero, Percent: decimal.Zero},
			Instructions: "Wire the total to account 12345 and quote your order id.",
		},
		"disabled": {
			Name: "disabled", Kind: domain.GatewayKindOnline, Provider: domain.ProviderRedirect, Active: false,
		},
	}}
	service := NewCheckoutService(orders, products, gateways,
		map[string]gateway.Adapter{"paypal": adapter},
		decimal.RequireFromString("0.10"), "USD", zap.NewNop())
	return &testEnv{service: service, orders: orders, adapter: adapter, gateways: gateways}
}

func startOnlineCheckout(t *testing.T, env *testEnv) *CheckoutResponse {
	t.Helper()
	resp, err := env.service.StartCheckout(context.Background(), &CheckoutRequest{
		BuyerID:     "buyer-1",
		BuyerEmail:  "buyer@example.com",
		GatewayName: "paypal",
		Items:       []CartItem{{ProductID: "prod-1", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("StartCheckout failed: %v", err)
	}
	return resp
}

func TestStartCheckoutValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.service.StartCheckout(ctx, &CheckoutRequest{BuyerID: "b", BuyerEmail: "b@e.com", GatewayName: "paypal"})
	if !errors.Is(err, ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart, got %v", err)
	}

	_, err = env.service.StartCheckout(ctx, &CheckoutRequest{
		BuyerID: "b", BuyerEmail: "b@e.com", GatewayName: "missing",
		Items: []CartItem{{ProductID: "prod-1", Quantity: 1}},
	})
	if !errors.Is(err, ErrGatewayNotFound) {
		t.Errorf("expected ErrGatewayNotFound, got %v", err)
	}

	_, err = env.service.StartCheckout(ctx, &CheckoutRequest{
		BuyerID: "b", BuyerEmail: "b@e.com", GatewayName: "disabled",
		Items: []CartItem{{ProductID: "prod-1", Quantity: 1}},
	})
	if !errors.Is(err, ErrGatewayInactive) {
		t.Errorf("expected ErrGatewayInactive, got %v", err)
	}

	_, err = env.service.StartCheckout(ctx, &CheckoutRequest{
		BuyerID: "b", BuyerEmail: "b@e.com", GatewayName: "paypal",
		Items: []CartItem{{ProductID: "ghost", Quantity: 1}},
	})
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}

	if env.adapter.createCalls != 0 {
		t.Errorf("adapter must not be called for rejected checkouts, got %d calls", env.adapter.createCalls)
	}
}

func TestStartCheckoutOnlineGateway(t *testing.T) {
	env := newTestEnv()
	resp := startOnlineCheckout(t, env)

	if resp.RedirectURL == "" {
		t.Error("expected a redirect URL for an online gateway")
	}
	if resp.Status != string(domain.OrderStatusPending) {
		t.Errorf("expected pending status, got %s", resp.Status)
	}

	order := env.orders.orders[resp.OrderID]
	if order == nil {
		t.Fatal("order not persisted")
	}
	if order.ExternalReference != "EXT-"+resp.OrderID {
		t.Errorf("external reference not stored, got %q", order.ExternalReference)
	}
	if order.VerificationStatus != domain.VerificationNone {
		t.Errorf("online order must not enter manual verification, got %q", order.VerificationStatus)
	}

	// $100 subtotal, $0.30 + 3% gateway, 10% platform.
	if want := "3.30"; order.GatewayFee.StringFixed(2) != want {
		t.Errorf("gateway fee: want %s, got %s", want, order.GatewayFee.StringFixed(2))
	}
	if want := "10.00"; order.PlatformFee.StringFixed(2) != want {
		t.Errorf("platform fee: want %s, got %s", want, order.PlatformFee.StringFixed(2))
	}
	if want := "86.70"; order.SellerFee.StringFixed(2) != want {
		t.Errorf("seller amount: want %s, got %s", want, order.SellerFee.StringFixed(2))
	}

	items := env.orders.items[resp.OrderID]
	if !domain.ItemsTotal(items).Equal(order.TotalAmount) {
		t.Error("order total must equal sum of item snapshots")
	}
}

func TestStartCheckoutOTCGateway(t *testing.T) {
	env := newTestEnv()
	resp, err := env.service.StartCheckout(context.Background(), &CheckoutRequest{
		BuyerID:     "buyer-1",
		BuyerEmail:  "buyer@example.com",
		GatewayName: "bank-transfer",
		Items:       []CartItem{{ProductID: "prod-2", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("StartCheckout failed: %v", err)
	}

	if resp.Instructions == "" {
		t.Error("expected manual payment instructions")
	}
	if resp.RedirectURL != "" {
		t.Error("OTC checkout must not redirect")
	}
	order := env.orders.orders[resp.OrderID]
	if order.Status != domain.OrderStatusPending {
		t.Errorf("expected pending order, got %s", order.Status)
	}
	if order.VerificationStatus != domain.VerificationPending {
		t.Errorf("expected pending verification, got %q", order.VerificationStatus)
	}
	if env.adapter.createCalls != 0 {
		t.Error("OTC checkout must not contact a provider")
	}
}

func TestStartCheckoutRejectsBrokenFeeConfig(t *testing.T) {
	env := newTestEnv()
	env.gateways.gateways["paypal"].Fees.Fixed = decimal.NewFromInt(500)

	_, err := env.service.StartCheckout(context.Background(), &CheckoutRequest{
		BuyerID: "b", BuyerEmail: "b@e.com", GatewayName: "paypal",
		Items: []CartItem{{ProductID: "prod-1", Quantity: 1}},
	})
	if !errors.Is(err, ErrInvalidFeeConfig) {
		t.Errorf("expected ErrInvalidFeeConfig, got %v", err)
	}
}

func TestConfirmReturnCompletesOrder(t *testing.T) {
	env := newTestEnv()
	resp := startOnlineCheckout(t, env)
	ref := "EXT-" + resp.OrderID

	conf, err := env.service.ConfirmReturn(context.Background(), ref)
	if err != nil {
		t.Fatalf("ConfirmReturn failed: %v", err)
	}
	if conf.Status != string(domain.OrderStatusCompleted) {
		t.Errorf("expected completed, got %s", conf.Status)
	}
	if len(env.orders.outbox) != 1 {
		t.Fatalf("expected exactly one fulfillment message, got %d", len(env.orders.outbox))
	}
	if env.orders.outbox[0].Topic != FulfillmentTopic {
		t.Errorf("unexpected outbox topic %s", env.orders.outbox[0].Topic)
	}
}

func TestConfirmReturnIsIdempotent(t *testing.T) {
	env := newTestEnv()
	resp := startOnlineCheckout(t, env)
	ref := "EXT-" + resp.OrderID

	if _, err := env.service.ConfirmReturn(context.Background(), ref); err != nil {
		t.Fatalf("first ConfirmReturn failed: %v", err)
	}
	order := env.orders.orders[resp.OrderID]
	gatewayFee := order.GatewayFee

	conf, err := env.service.ConfirmReturn(context.Background(), ref)
	if err != nil {
		t.Fatalf("replayed ConfirmReturn must not error: %v", err)
	}
	if conf.Status != string(domain.OrderStatusCompleted) {
		t.Errorf("expected completed on replay, got %s", conf.Status)
	}
	if env.adapter.confirmCalls != 1 {
		t.Errorf("replay must not re-capture, adapter called %d times", env.adapter.confirmCalls)
	}
	if len(env.orders.outbox) != 1 {
		t.Errorf("replay must not enqueue a second fulfillment message, got %d", len(env.orders.outbox))
	}
	if !order.GatewayFee.Equal(gatewayFee) {
		t.Error("fee fields changed on replay")
	}
}

func TestConfirmReturnCaptureDeclined(t *testing.T) {
	env := newTestEnv()
	resp := startOnlineCheckout(t, env)
	env.adapter.confirmErr = gateway.ErrCaptureFailed

	_, err := env.service.ConfirmReturn(context.Background(), "EXT-"+resp.OrderID)
	if !errors.Is(err, ErrPaymentFailed) {
		t.Errorf("expected ErrPaymentFailed, got %v", err)
	}
	if got := env.orders.orders[resp.OrderID].Status; got != domain.OrderStatusCancelled {
		t.Errorf("declined capture must cancel the order, got %s", got)
	}
	if len(env.orders.outbox) != 0 {
		t.Error("declined capture must not enqueue fulfillment")
	}
}

func TestConfirmReturnProviderUnavailableKeepsOrderPending(t *testing.T) {
	env := newTestEnv()
	resp := startOnlineCheckout(t, env)
	env.adapter.confirmErr = gateway.ErrProviderUnavailable

	_, err := env.service.ConfirmReturn(context.Background(), "EXT-"+resp.OrderID)
	if !errors.Is(err, ErrPaymentFailed) {
		t.Errorf("expected ErrPaymentFailed, got %v", err)
	}
	if got := env.orders.orders[resp.OrderID].Status; got != domain.OrderStatusPending {
		t.Errorf("provider outage must leave the order pending, got %s", got)
	}

	// A fresh checkout attempt succeeds independently of the stuck order.
	env.adapter.confirmErr = nil
	second := startOnlineCheckout(t, env)
	if second.OrderID == resp.OrderID {
		t.Error("retry must create a new order")
	}
	if _, err := env.service.ConfirmReturn(context.Background(), "EXT-"+second.OrderID); err != nil {
		t.Fatalf("second checkout confirmation failed: %v", err)
	}
}

func TestConfirmReturnUnpaidSessionKeepsOrderPending(t *testing.T) {
	env := newTestEnv()
	resp := startOnlineCheckout(t, env)
	env.adapter.confirmErr = gateway.ErrPaymentNotCompleted

	_, err := env.service.ConfirmReturn(context.Background(), "EXT-"+resp.OrderID)
	if !errors.Is(err, ErrPaymentFailed) {
		t.Errorf("expected ErrPaymentFailed, got %v", err)
	}
	if got := env.orders.orders[resp.OrderID].Status; got != domain.OrderStatusPending {
		t.Errorf("unpaid session must leave the order pending, got %s", got)
	}
	if len(env.orders.outbox) != 0 {
		t.Error("unpaid session must not enqueue fulfillment")
	}
}

func TestConfirmReturnUnknownReference(t *testing.T) {
	env := newTestEnv()
	_, err := env.service.ConfirmReturn(context.Background(), "EXT-unknown")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestCancelReturn(t *testing.T) {
	env := newTestEnv()
	resp := startOnlineCheckout(t, env)

	conf, err := env.service.CancelReturn(context.Background(), "EXT-"+resp.OrderID)
	if err != nil {
		t.Fatalf("CancelReturn failed: %v", err)
	}
	if conf.Status != string(domain.OrderStatusCancelled) {
		t.Errorf("expected cancelled, got %s", conf.Status)
	}
}
