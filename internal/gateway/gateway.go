// Package gateway defines the adapter boundary between the checkout flow and
// external payment providers. Adapters talk HTTP to a provider and translate
// its failures into the error taxonomy below; they never touch the database.
package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrProviderUnavailable covers network failures, timeouts and 5xx
	// responses. The order must stay pending; a fresh checkout attempt is
	// the recovery path.
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	// ErrCaptureFailed means the provider explicitly declined the capture.
	ErrCaptureFailed = errors.New("payment capture failed")
	// ErrPaymentNotCompleted means the provider reports the payment as not
	// (yet) paid. The order must never be advanced on this result.
	ErrPaymentNotCompleted = errors.New("payment not completed")
)

type LineItem struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

type CreateRequest struct {
	OrderID     string
	Amount      decimal.Decimal
	Currency    string
	Description string
	BuyerEmail  string
	Items       []LineItem
}

// Redirect is the provider handoff: the browser must navigate to URL, and
// ExternalRef is stored on the order so the return callback can be correlated.
type Redirect struct {
	ExternalRef string
	URL         string
	RawPayload  []byte
}

type Confirmation struct {
	ExternalRef string
	RawPayload  []byte
}

type Adapter interface {
	Name() string
	// CreatePayment registers the payment with the provider and returns the
	// redirect target. The internal order must already be persisted.
	CreatePayment(ctx context.Context, req *CreateRequest) (*Redirect, error)
	// ConfirmPayment captures or verifies the payment identified by the
	// provider reference. A nil error means the payment is settled.
	ConfirmPayment(ctx context.Context, externalRef string) (*Confirmation, error)
}
