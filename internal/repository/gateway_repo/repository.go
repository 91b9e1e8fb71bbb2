package gateway_repo

import (
	"context"

	"storefront/internal/domain"
)

type GatewayRepository interface {
	GetGatewayByName(ctx context.Context, name string) (*domain.PaymentGateway, error)
	ListActiveGateways(ctx context.Context) ([]*domain.PaymentGateway, error)
}
