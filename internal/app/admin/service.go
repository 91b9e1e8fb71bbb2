// Package admin implements the back-office reconciliation path: manual
// verification of over-the-counter orders and one-shot seller payouts.
// Caller authentication is enforced upstream.
package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/app/checkout"
	"storefront/internal/domain"
	"storefront/internal/repository/order_repo"
	"storefront/internal/repository/outbox_repo"
	"storefront/internal/repository/seller_payment_repo"
	"storefront/internal/util"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderNotVerifiable   = errors.New("order is not awaiting verification")
	ErrOrderNotCompleted    = errors.New("order is not completed")
	ErrPayoutAlreadyExists  = errors.New("payout already recorded for order")
	ErrInvalidPayoutRequest = errors.New("invalid payout request")
)

type PayoutRequest struct {
	OrderID   string `json:"order_id"`
	SellerID  string `json:"seller_id"`
	Amount    string `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
}

type PayoutResponse struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	SellerID string `json:"seller_id"`
	Amount   string `json:"amount"`
	Method   string `json:"method"`
}

type AdminService interface {
	// ApproveOrder completes a pending OTC order and enqueues fulfillment,
	// exactly like a successful automatic capture would.
	ApproveOrder(ctx context.Context, orderID string) error
	// RejectOrder cancels a pending OTC order; no notification is sent.
	RejectOrder(ctx context.Context, orderID string) error
	RecordPayout(ctx context.Context, req *PayoutRequest) (*PayoutResponse, error)
	ListPendingVerification(ctx context.Context) ([]*checkout.OrderResponse, error)
	ListPayouts(ctx context.Context) ([]*PayoutResponse, error)
}

type adminService struct {
	orderRepo  order_repo.OrderRepository
	payoutRepo seller_payment_repo.SellerPaymentRepository
	logger     *zap.Logger
}

func NewAdminService(
	orderRepo order_repo.OrderRepository,
	payoutRepo seller_payment_repo.SellerPaymentRepository,
	logger *zap.Logger,
) AdminService {
	return &adminService{orderRepo: orderRepo, payoutRepo: payoutRepo, logger: logger}
}

func (s *adminService) loadVerifiableOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		s.logger.Error("Failed to load order for verification", zap.String("order_id", orderID), zap.Error(err))
		return nil, errors.New("internal server error")
	}
	if order.Status != domain.OrderStatusPending || order.VerificationStatus != domain.VerificationPending {
		return nil, fmt.Errorf("%w: status=%s verification=%s", ErrOrderNotVerifiable, order.Status, order.VerificationStatus)
	}
	return order, nil
}

func (s *adminService) ApproveOrder(ctx context.Context, orderID string) error {
	order, err := s.loadVerifiableOrder(ctx, orderID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(&checkout.FulfillmentEvent{OrderID: order.ID})
	if err != nil {
		s.logger.Error("Failed to marshal fulfillment event", zap.String("order_id", order.ID), zap.Error(err))
		return errors.New("internal server error")
	}
	msg := &outbox_repo.OutboxMessage{
		ID:        util.GenerateUUID(),
		Topic:     checkout.FulfillmentTopic,
		Payload:   payload,
		Status:    outbox_repo.StatusPending,
		CreatedAt: time.Now(),
	}

	completed, err := s.orderRepo.CompleteOrder(ctx, order.ID, domain.VerificationVerified, msg)
	if err != nil {
		s.logger.Error("Failed to approve order", zap.String("order_id", order.ID), zap.Error(err))
		return errors.New("failed to approve order")
	}
	if !completed {
		// Another admin action raced us between the read and the update.
		return fmt.Errorf("%w: order changed concurrently", ErrOrderNotVerifiable)
	}

	s.logger.Info("Order approved by admin", zap.String("order_id", order.ID))
	return nil
}

func (s *adminService) RejectOrder(ctx context.Context, orderID string) error {
	order, err := s.loadVerifiableOrder(ctx, orderID)
	if err != nil {
		return err
	}

	cancelled, err := s.orderRepo.CancelOrder(ctx, order.ID, domain.VerificationRejected)
	if err != nil {
		s.logger.Error("Failed to reject order", zap.String("order_id", order.ID), zap.Error(err))
		return errors.New("failed to reject order")
	}
	if !cancelled {
		return fmt.Errorf("%w: order changed concurrently", ErrOrderNotVerifiable)
	}

	s.logger.Info("Order rejected by admin", zap.String("order_id", order.ID))
	return nil
}

func (s *adminService) RecordPayout(ctx context.Context, req *PayoutRequest) (*PayoutResponse, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount %q", ErrInvalidPayoutRequest, req.Amount)
	}

	order, err := s.orderRepo.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		s.logger.Error("Failed to load order for payout", zap.String("order_id", req.OrderID), zap.Error(err))
		return nil, errors.New("internal server error")
	}
	if order.Status != domain.OrderStatusCompleted {
		return nil, fmt.Errorf("%w: order %s is %s", ErrOrderNotCompleted, order.ID, order.Status)
	}

	exists, err := s.payoutRepo.ExistsForOrder(ctx, order.ID)
	if err != nil {
		s.logger.Error("Failed to check existing payout", zap.String("order_id", order.ID), zap.Error(err))
		return nil, errors.New("internal server error")
	}
	if exists {
		return nil, ErrPayoutAlreadyExists
	}

	payment, err := domain.NewSellerPayment(util.GenerateUUID(), order.ID, req.SellerID, req.Method, req.Reference, req.Notes, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayoutRequest, err)
	}

	if err := s.payoutRepo.CreatePayoutAndMarkOrderPaid(ctx, payment); err != nil {
		s.logger.Error("Failed to record payout",
			zap.String("order_id", order.ID),
			zap.String("seller_id", req.SellerID),
			zap.Error(err))
		return nil, errors.New("failed to record payout")
	}

	s.logger.Info("Seller payout recorded",
		zap.String("order_id", order.ID),
		zap.String("payout_id", payment.ID),
		zap.String("amount", amount.StringFixed(2)))

	return mapPayoutToResponse(payment), nil
}

func (s *adminService) ListPendingVerification(ctx context.Context) ([]*checkout.OrderResponse, error) {
	orders, err := s.orderRepo.ListPendingVerification(ctx)
	if err != nil {
		s.logger.Error("Failed to list pending verifications", zap.Error(err))
		return nil, errors.New("internal server error")
	}
	responses := make([]*checkout.OrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = &checkout.OrderResponse{
			ID:                 order.ID,
			BuyerID:            order.BuyerID,
			GatewayName:        order.GatewayName,
			TotalAmount:        order.TotalAmount.StringFixed(2),
			GatewayFee:         order.GatewayFee.StringFixed(2),
			PlatformFee:        order.PlatformFee.StringFixed(2),
			SellerAmount:       order.SellerFee.StringFixed(2),
			Status:             string(order.Status),
			VerificationStatus: string(order.VerificationStatus),
		}
	}
	return responses, nil
}

func (s *adminService) ListPayouts(ctx context.Context) ([]*PayoutResponse, error) {
	payouts, err := s.payoutRepo.ListPayouts(ctx)
	if err != nil {
		s.logger.Error("Failed to list payouts", zap.Error(err))
		return nil, errors.New("internal server error")
	}
	responses := make([]*PayoutResponse, len(payouts))
	for i, payout := range payouts {
		responses[i] = mapPayoutToResponse(payout)
	}
	return responses, nil
}

func mapPayoutToResponse(p *domain.SellerPayment) *PayoutResponse {
	return &PayoutResponse{
		ID:       p.ID,
		OrderID:  p.OrderID,
		SellerID: p.SellerID,
		Amount:   p.Amount.StringFixed(2),
		Method:   p.Method,
	}
}
