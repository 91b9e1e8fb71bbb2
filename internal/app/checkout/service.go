package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/fees"
	"storefront/internal/gateway"
	"storefront/internal/repository/gateway_repo"
	"storefront/internal/repository/order_repo"
	"storefront/internal/repository/outbox_repo"
	"storefront/internal/repository/product_repo"
	"storefront/internal/util"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrGatewayNotFound    = errors.New("payment gateway not found")
	ErrGatewayInactive    = errors.New("payment gateway is not active")
	ErrProductNotFound    = errors.New("product not found")
	ErrInvalidFeeConfig   = errors.New("fee configuration rejected")
	ErrOrderNotFound      = errors.New("order not found")
	ErrPaymentStartFailed = errors.New("could not start payment")
	ErrPaymentFailed      = errors.New("payment failed")
)

const FulfillmentTopic = "order_fulfillment"

type CheckoutService interface {
	// StartCheckout persists the order and, for online gateways, hands off
	// to the provider. The returned redirect URL is navigated by the
	// browser, not followed by the server.
	StartCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error)
	// ConfirmReturn finishes a checkout when the buyer returns from the
	// provider. Replaying the same reference on a completed order is a
	// successful no-op.
	ConfirmReturn(ctx context.Context, externalRef string) (*ConfirmResponse, error)
	// CancelReturn handles the buyer aborting at the provider.
	CancelReturn(ctx context.Context, externalRef string) (*ConfirmResponse, error)
	GetOrder(ctx context.Context, orderID string) (*OrderResponse, error)
	GetOrdersByBuyerID(ctx context.Context, buyerID string) ([]*OrderResponse, error)
}

type checkoutService struct {
	orderRepo    order_repo.OrderRepository
	productRepo  product_repo.ProductRepository
	gatewayRepo  gateway_repo.GatewayRepository
	adapters     map[string]gateway.Adapter
	platformRate decimal.Decimal
	currency     string
	logger       *zap.Logger
}

func NewCheckoutService(
	orderRepo order_repo.OrderRepository,
	productRepo product_repo.ProductRepository,
	gatewayRepo gateway_repo.GatewayRepository,
	adapters map[string]gateway.Adapter,
	platformRate decimal.Decimal,
	currency string,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		gatewayRepo:  gatewayRepo,
		adapters:     adapters,
		platformRate: platformRate,
		currency:     currency,
		logger:       logger,
	}
}

func (s *checkoutService) StartCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", ErrEmptyCart)
		}
	}

	gw, err := s.gatewayRepo.GetGatewayByName(ctx, req.GatewayName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGatewayNotFound
		}
		s.logger.Error("Failed to load gateway", zap.String("gateway", req.GatewayName), zap.Error(err))
		return nil, errors.New("internal server error")
	}
	if !gw.Active {
		return nil, ErrGatewayInactive
	}

	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.GetProductsByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to load cart products", zap.Error(err))
		return nil, errors.New("internal server error")
	}

	orderID := util.GenerateUUID()
	items := make([]*domain.OrderItem, 0, len(req.Items))
	lineItems := make([]gateway.LineItem, 0, len(req.Items))
	for _, cartItem := range req.Items {
		product, ok := products[cartItem.ProductID]
		if !ok || !product.Active {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, cartItem.ProductID)
		}
		item, err := domain.NewOrderItem(util.GenerateUUID(), orderID, product.ID, product.Name, cartItem.Quantity, product.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid cart item %s: %w", cartItem.ProductID, err)
		}
		items = append(items, item)
		lineItems = append(lineItems, gateway.LineItem{Name: product.Name, Quantity: cartItem.Quantity, UnitPrice: product.Price})
	}

	subtotal := domain.ItemsTotal(items)
	breakdown, err := fees.Compute(subtotal, gw.Fees, s.platformRate)
	if err != nil {
		s.logger.Warn("Fee computation rejected checkout",
			zap.String("gateway", gw.Name),
			zap.String("subtotal", subtotal.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeeConfig, err)
	}
	breakdown = breakdown.Round(subtotal)

	order, err := domain.NewOrder(orderID, req.BuyerID, req.BuyerEmail, gw.Name, subtotal.Round(2))
	if err != nil {
		return nil, err
	}
	order.GatewayFee = breakdown.GatewayFee
	order.PlatformFee = breakdown.PlatformFee
	order.SellerFee = breakdown.SellerFee
	if gw.Kind == domain.GatewayKindOTC {
		order.VerificationStatus = domain.VerificationPending
	}

	// The order is durable before any provider call, so a crash between the
	// two steps leaves a recoverable pending order, never a lost one.
	if err := s.orderRepo.CreateOrderWithItems(ctx, order, items); err != nil {
		s.logger.Error("Failed to persist order", zap.String("order_id", order.ID), zap.Error(err))
		return nil, errors.New("failed to create order")
	}
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("gateway", gw.Name),
		zap.String("total", order.TotalAmount.StringFixed(2)))

	if gw.Kind == domain.GatewayKindOTC {
		return &CheckoutResponse{
			OrderID:      order.ID,
			Status:       string(order.Status),
			TotalAmount:  money(order.TotalAmount),
			Instructions: gw.Instructions,
		}, nil
	}

	adapter, ok := s.adapters[gw.Name]
	if !ok {
		s.logger.Error("No adapter registered for online gateway", zap.String("gateway", gw.Name))
		return nil, ErrPaymentStartFailed
	}

	redirect, err := adapter.CreatePayment(ctx, &gateway.CreateRequest{
		OrderID:     order.ID,
		Amount:      order.TotalAmount,
		Currency:    s.currency,
		Description: fmt.Sprintf("Order %s", order.ID),
		BuyerEmail:  order.BuyerEmail,
		Items:       lineItems,
	})
	if err != nil {
		// The pending order is kept; the buyer retries with a fresh
		// checkout attempt.
		s.logger.Error("Provider handoff failed",
			zap.String("order_id", order.ID),
			zap.String("gateway", gw.Name),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentStartFailed, err)
	}

	if err := s.orderRepo.SetExternalReference(ctx, order.ID, redirect.ExternalRef, redirect.RawPayload); err != nil {
		s.logger.Error("Failed to store provider reference",
			zap.String("order_id", order.ID),
			zap.String("external_ref", redirect.ExternalRef),
			zap.Error(err))
		return nil, errors.New("failed to create order")
	}

	return &CheckoutResponse{
		OrderID:     order.ID,
		Status:      string(order.Status),
		TotalAmount: money(order.TotalAmount),
		RedirectURL: redirect.URL,
	}, nil
}

func (s *checkoutService) ConfirmReturn(ctx context.Context, externalRef string) (*ConfirmResponse, error) {
	order, err := s.orderRepo.GetOrderByExternalReference(ctx, externalRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("No order for provider reference", zap.String("external_ref", externalRef))
			return nil, ErrOrderNotFound
		}
		s.logger.Error("Failed to resolve provider reference", zap.String("external_ref", externalRef), zap.Error(err))
		return nil, errors.New("internal server error")
	}

	// Duplicate callback delivery: the order already completed, fee fields
	// are untouched and no error is surfaced.
	if order.Status == domain.OrderStatusCompleted {
		s.logger.Info("Order already completed, confirmation replay ignored",
			zap.String("order_id", order.ID),
			zap.String("external_ref", externalRef))
		return &ConfirmResponse{OrderID: order.ID, Status: string(order.Status)}, nil
	}
	if order.Status != domain.OrderStatusPending {
		return nil, fmt.Errorf("%w: order %s is %s", ErrPaymentFailed, order.ID, order.Status)
	}

	adapter, ok := s.adapters[order.GatewayName]
	if !ok {
		s.logger.Error("No adapter registered for gateway", zap.String("gateway", order.GatewayName))
		return nil, errors.New("internal server error")
	}

	if _, err := adapter.ConfirmPayment(ctx, externalRef); err != nil {
		switch {
		case errors.Is(err, gateway.ErrCaptureFailed):
			// Explicit decline: the order is closed out.
			if _, cancelErr := s.orderRepo.CancelOrder(ctx, order.ID, domain.VerificationNone); cancelErr != nil {
				s.logger.Error("Failed to cancel order after declined capture",
					zap.String("order_id", order.ID), zap.Error(cancelErr))
			}
			s.logger.Warn("Capture declined",
				zap.String("order_id", order.ID),
				zap.String("external_ref", externalRef),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		case errors.Is(err, gateway.ErrPaymentNotCompleted):
			// Not paid (yet): the order stays pending and is never
			// advanced.
			s.logger.Warn("Payment not completed",
				zap.String("order_id", order.ID),
				zap.String("external_ref", externalRef),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		default:
			// Network trouble is not a decline; the order stays pending.
			s.logger.Error("Provider communication failed during confirmation",
				zap.String("order_id", order.ID),
				zap.String("external_ref", externalRef),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
	}

	completed, err := s.completeWithFulfillment(ctx, order.ID, domain.VerificationNone)
	if err != nil {
		return nil, err
	}
	if !completed {
		// Lost the race with a concurrent confirmation; re-read to report
		// the settled state.
		current, err := s.orderRepo.GetOrderByID(ctx, order.ID)
		if err != nil {
			s.logger.Error("Failed to re-read order after completion race", zap.String("order_id", order.ID), zap.Error(err))
			return nil, errors.New("internal server error")
		}
		if current.Status != domain.OrderStatusCompleted {
			return nil, fmt.Errorf("%w: order %s is %s", ErrPaymentFailed, current.ID, current.Status)
		}
		return &ConfirmResponse{OrderID: current.ID, Status: string(current.Status)}, nil
	}

	s.logger.Info("Order completed",
		zap.String("order_id", order.ID),
		zap.String("external_ref", externalRef))
	return &ConfirmResponse{OrderID: order.ID, Status: string(domain.OrderStatusCompleted)}, nil
}

func (s *checkoutService) completeWithFulfillment(ctx context.Context, orderID string, verification domain.VerificationStatus) (bool, error) {
	payload, err := json.Marshal(&FulfillmentEvent{OrderID: orderID})
	if err != nil {
		s.logger.Error("Failed to marshal fulfillment event", zap.String("order_id", orderID), zap.Error(err))
		return false, errors.New("internal server error")
	}
	msg := &outbox_repo.OutboxMessage{
		ID:        util.GenerateUUID(),
		Topic:     FulfillmentTopic,
		Payload:   payload,
		Status:    outbox_repo.StatusPending,
		CreatedAt: time.Now(),
	}
	completed, err := s.orderRepo.CompleteOrder(ctx, orderID, verification, msg)
	if err != nil {
		s.logger.Error("Failed to complete order", zap.String("order_id", orderID), zap.Error(err))
		return false, errors.New("failed to complete order")
	}
	return completed, nil
}

func (s *checkoutService) CancelReturn(ctx context.Context, externalRef string) (*ConfirmResponse, error) {
	order, err := s.orderRepo.GetOrderByExternalReference(ctx, externalRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		s.logger.Error("Failed to resolve provider reference", zap.String("external_ref", externalRef), zap.Error(err))
		return nil, errors.New("internal server error")
	}

	if _, err := s.orderRepo.CancelOrder(ctx, order.ID, domain.VerificationNone); err != nil {
		s.logger.Error("Failed to cancel order", zap.String("order_id", order.ID), zap.Error(err))
		return nil, errors.New("failed to cancel order")
	}
	s.logger.Info("Checkout aborted by buyer", zap.String("order_id", order.ID))

	current, err := s.orderRepo.GetOrderByID(ctx, order.ID)
	if err != nil {
		return nil, errors.New("internal server error")
	}
	return &ConfirmResponse{OrderID: current.ID, Status: string(current.Status)}, nil
}

func (s *checkoutService) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		s.logger.Error("Failed to get order", zap.String("order_id", orderID), zap.Error(err))
		return nil, errors.New("internal server error")
	}
	items, err := s.orderRepo.GetOrderItems(ctx, orderID)
	if err != nil {
		s.logger.Error("Failed to get order items", zap.String("order_id", orderID), zap.Error(err))
		return nil, errors.New("internal server error")
	}
	return mapOrderToResponse(order, items), nil
}

func (s *checkoutService) GetOrdersByBuyerID(ctx context.Context, buyerID string) ([]*OrderResponse, error) {
	orders, err := s.orderRepo.GetOrdersByBuyerID(ctx, buyerID)
	if err != nil {
		s.logger.Error("Failed to get orders for buyer", zap.String("buyer_id", buyerID), zap.Error(err))
		return nil, errors.New("internal server error")
	}
	responses := make([]*OrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = mapOrderToResponse(order, nil)
	}
	return responses, nil
}

func mapOrderToResponse(order *domain.Order, items []*domain.OrderItem) *OrderResponse {
	resp := &OrderResponse{
		ID:                 order.ID,
		BuyerID:            order.BuyerID,
		GatewayName:        order.GatewayName,
		TotalAmount:        money(order.TotalAmount),
		GatewayFee:         money(order.GatewayFee),
		PlatformFee:        money(order.PlatformFee),
		SellerAmount:       money(order.SellerFee),
		Status:             string(order.Status),
		VerificationStatus: string(order.VerificationStatus),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   money(item.UnitPrice),
		})
	}
	return resp
}
