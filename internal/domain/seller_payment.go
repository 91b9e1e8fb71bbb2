package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SellerPayment records a manual disbursement of seller proceeds for one
// order. At most one payout exists per order.
type SellerPayment struct {
	ID        string
	OrderID   string
	SellerID  string
	Amount    decimal.Decimal
	Method    string
	Reference string
	Notes     string
	CreatedAt time.Time
}

func NewSellerPayment(id, orderID, sellerID, method, reference, notes string, amount decimal.Decimal) (*SellerPayment, error) {
	if id == "" || orderID == "" || sellerID == "" || method == "" {
		return nil, ErrInvalidOrderData
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidOrderData
	}
	return &SellerPayment{
		ID:        id,
		OrderID:   orderID,
		SellerID:  sellerID,
		Amount:    amount,
		Method:    method,
		Reference: reference,
		Notes:     notes,
		CreatedAt: time.Now(),
	}, nil
}
