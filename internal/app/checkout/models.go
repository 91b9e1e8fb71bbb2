package checkout

import "github.com/shopspring/decimal"

type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CheckoutRequest struct {
	BuyerID     string     `json:"buyer_id"`
	BuyerEmail  string     `json:"buyer_email"`
	GatewayName string     `json:"gateway"`
	Items       []CartItem `json:"items"`
}

type CheckoutResponse struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	TotalAmount string `json:"total_amount"`
	// RedirectURL is set for online gateways; the browser must navigate
	// there to approve the payment.
	RedirectURL string `json:"redirect_url,omitempty"`
	// Instructions is set for over-the-counter gateways instead of a
	// redirect.
	Instructions string `json:"instructions,omitempty"`
}

type ConfirmResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type OrderItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

type OrderResponse struct {
	ID                 string              `json:"id"`
	BuyerID            string              `json:"buyer_id"`
	GatewayName        string              `json:"gateway"`
	TotalAmount        string              `json:"total_amount"`
	GatewayFee         string              `json:"gateway_fee"`
	PlatformFee        string              `json:"platform_fee"`
	SellerAmount       string              `json:"seller_amount"`
	Status             string              `json:"status"`
	VerificationStatus string              `json:"verification_status,omitempty"`
	Items              []OrderItemResponse `json:"items,omitempty"`
}

// FulfillmentEvent is the outbox/Kafka payload produced when an order
// completes; the fulfillment consumer resolves it to download links.
type FulfillmentEvent struct {
	OrderID string `json:"order_id"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
