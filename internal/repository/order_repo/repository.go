package order_repo

import (
	"context"

	"storefront/internal/domain"
	"storefront/internal/repository/outbox_repo"
)

type OrderRepository interface {
	// CreateOrderWithItems persists the order and its item snapshots in one
	// transaction, so a crash before the provider call never loses them.
	CreateOrderWithItems(ctx context.Context, order *domain.Order, items []*domain.OrderItem) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	// GetOrderByExternalReference resolves a provider-supplied order/session
	// id to the internal order. This lookup is the single source of truth
	// for which order a payment event belongs to.
	GetOrderByExternalReference(ctx context.Context, ref string) (*domain.Order, error)
	GetOrdersByBuyerID(ctx context.Context, buyerID string) ([]*domain.Order, error)
	GetOrderItems(ctx context.Context, orderID string) ([]*domain.OrderItem, error)
	ListPendingVerification(ctx context.Context) ([]*domain.Order, error)

	// SetExternalReference attaches the provider correlation id and raw
	// provider payload to a freshly created order.
	SetExternalReference(ctx context.Context, orderID, ref string, billingInfo []byte) error

	// CompleteOrder conditionally transitions a pending order to COMPLETED
	// and, in the same transaction, enqueues the fulfillment outbox message.
	// It returns false without error when the order was no longer pending,
	// which makes replayed captures a no-op.
	CompleteOrder(ctx context.Context, orderID string, verification domain.VerificationStatus, msg *outbox_repo.OutboxMessage) (bool, error)
	// CancelOrder conditionally transitions a pending order to CANCELLED.
	CancelOrder(ctx context.Context, orderID string, verification domain.VerificationStatus) (bool, error)
}
