package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRefunded  OrderStatus = "REFUNDED"
)

// VerificationStatus is a separate axis from OrderStatus and is only
// populated for orders paid through manual ("over the counter") gateways.
type VerificationStatus string

const (
	VerificationNone     VerificationStatus = ""
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

type SellerPaymentStatus string

const (
	SellerPaymentUnpaid SellerPaymentStatus = "UNPAID"
	SellerPaymentPaid   SellerPaymentStatus = "PAID"
)

var (
	ErrInvalidOrderData   = errors.New("invalid order data")
	ErrOrderNotPending    = errors.New("order is not pending")
	ErrOrderAlreadyClosed = errors.New("order is in a terminal state")
)

type Order struct {
	ID          string
	BuyerID     string
	BuyerEmail  string
	GatewayName string
	TotalAmount decimal.Decimal
	GatewayFee  decimal.Decimal
	PlatformFee decimal.Decimal
	SellerFee   decimal.Decimal

	Status              OrderStatus
	VerificationStatus  VerificationStatus
	SellerPaymentStatus SellerPaymentStatus

	// ExternalReference correlates the order with the payment provider's
	// order/session id. It is the only field trusted when resolving a
	// provider callback back to an order.
	ExternalReference string
	// BillingInfo keeps the raw provider payload for audit purposes.
	BillingInfo []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ID      string
	OrderID string
	// Product info is snapshotted at purchase time so later catalog edits
	// never change what the buyer paid.
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	CreatedAt   time.Time
}

func NewOrder(id, buyerID, buyerEmail, gatewayName string, total decimal.Decimal) (*Order, error) {
	if id == "" || buyerID == "" || buyerEmail == "" || gatewayName == "" {
		return nil, ErrInvalidOrderData
	}
	if total.IsNegative() {
		return nil, ErrInvalidOrderData
	}
	now := time.Now()
	return &Order{
		ID:                  id,
		BuyerID:             buyerID,
		BuyerEmail:          buyerEmail,
		GatewayName:         gatewayName,
		TotalAmount:         total,
		Status:              OrderStatusPending,
		SellerPaymentStatus: SellerPaymentUnpaid,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

func NewOrderItem(id, orderID, productID, productName string, quantity int, unitPrice decimal.Decimal) (*OrderItem, error) {
	if id == "" || orderID == "" || productID == "" || quantity < 1 {
		return nil, ErrInvalidOrderData
	}
	if unitPrice.IsNegative() {
		return nil, ErrInvalidOrderData
	}
	return &OrderItem{
		ID:          id,
		OrderID:     orderID,
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		CreatedAt:   time.Now(),
	}, nil
}

// ItemsTotal sums price snapshots over the given items. At creation time the
// result must equal Order.TotalAmount.
func ItemsTotal(items []*OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// MarkCompleted transitions the order to COMPLETED. Completing an order that
// is already completed is a no-op, so duplicate provider callbacks are safe.
func (o *Order) MarkCompleted() error {
	switch o.Status {
	case OrderStatusCompleted:
		return nil
	case OrderStatusCancelled, OrderStatusRefunded:
		return ErrOrderAlreadyClosed
	}
	o.Status = OrderStatusCompleted
	o.UpdatedAt = time.Now()
	return nil
}

// MarkCancelled transitions the order to CANCELLED. Cancelling twice is a
// no-op; a completed or refunded order can no longer be cancelled.
func (o *Order) MarkCancelled() error {
	switch o.Status {
	case OrderStatusCancelled:
		return nil
	case OrderStatusCompleted, OrderStatusRefunded:
		return ErrOrderAlreadyClosed
	}
	o.Status = OrderStatusCancelled
	o.UpdatedAt = time.Now()
	return nil
}

func (o *Order) MarkVerified() error {
	if o.VerificationStatus != VerificationPending {
		return ErrOrderNotPending
	}
	o.VerificationStatus = VerificationVerified
	o.UpdatedAt = time.Now()
	return nil
}

func (o *Order) MarkRejected() error {
	if o.VerificationStatus != VerificationPending {
		return ErrOrderNotPending
	}
	o.VerificationStatus = VerificationRejected
	o.UpdatedAt = time.Now()
	return nil
}

func (o *Order) MarkSellerPaid() error {
	if o.Status != OrderStatusCompleted {
		return ErrOrderNotPending
	}
	if o.SellerPaymentStatus == SellerPaymentPaid {
		return ErrOrderAlreadyClosed
	}
	o.SellerPaymentStatus = SellerPaymentPaid
	o.UpdatedAt = time.Now()
	return nil
}
