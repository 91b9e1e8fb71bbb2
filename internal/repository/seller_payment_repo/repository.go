package seller_payment_repo

import (
	"context"

	"storefront/internal/domain"
)

type SellerPaymentRepository interface {
	// CreatePayoutAndMarkOrderPaid inserts the payout record and flips the
	// order's seller-payment status in one transaction. The orders row is
	// only updated while still UNPAID, so a second payout for the same order
	// fails instead of double-crediting the seller.
	CreatePayoutAndMarkOrderPaid(ctx context.Context, payment *domain.SellerPayment) error
	ExistsForOrder(ctx context.Context, orderID string) (bool, error)
	ListPayouts(ctx context.Context) ([]*domain.SellerPayment, error)
}
