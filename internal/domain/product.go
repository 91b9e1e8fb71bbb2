package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog read model needed by checkout and fulfillment:
// a price to snapshot and, for digital goods, a download URL to deliver.
type Product struct {
	ID          string
	SellerID    string
	Name        string
	Price       decimal.Decimal
	DownloadURL string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
