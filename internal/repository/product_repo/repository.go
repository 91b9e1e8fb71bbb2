package product_repo

import (
	"context"

	"storefront/internal/domain"
)

type ProductRepository interface {
	// GetProductsByIDs returns the found products keyed by id; callers decide
	// whether a missing id is an error. Both checkout and fulfillment resolve
	// whole carts, so there is no single-product lookup.
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error)
}
