package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository/gateway_repo"
)

type pgGatewayRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewGatewayRepository(db *sql.DB, l *zap.Logger) gateway_repo.GatewayRepository {
	return &pgGatewayRepository{db: db, logger: l}
}

const gatewayColumns = `name, kind, provider, active, fixed_fee, percent_fee, instructions, provider_config`

func (r *pgGatewayRepository) scanGateway(row interface {
	Scan(dest ...interface{}) error
}) (*domain.PaymentGateway, error) {
	gw := &domain.PaymentGateway{}
	var provider sql.NullString
	var instructions sql.NullString
	var providerConfig []byte
	err := row.Scan(&gw.Name, &gw.Kind, &provider, &gw.Active,
		&gw.Fees.Fixed, &gw.Fees.Percent, &instructions, &providerConfig)
	if err != nil {
		return nil, err
	}
	if provider.Valid {
		gw.Provider = domain.ProviderKind(provider.String)
	}
	if instructions.Valid {
		gw.Instructions = instructions.String
	}
	if err := gw.DecodeProviderConfig(providerConfig); err != nil {
		return nil, err
	}
	return gw, nil
}

func (r *pgGatewayRepository) GetGatewayByName(ctx context.Context, name string) (*domain.PaymentGateway, error) {
	query := `SELECT ` + gatewayColumns + ` FROM payment_gateways WHERE name = $1`
	gw, err := r.scanGateway(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		r.logger.Error("Failed to get gateway by name", zap.String("gateway", name), zap.Error(err))
		return nil, fmt.Errorf("failed to get gateway %s: %w", name, err)
	}
	return gw, nil
}

func (r *pgGatewayRepository) ListActiveGateways(ctx context.Context) ([]*domain.PaymentGateway, error) {
	query := `SELECT ` + gatewayColumns + ` FROM payment_gateways WHERE active ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query active gateways", zap.Error(err))
		return nil, fmt.Errorf("failed to list active gateways: %w", err)
	}
	defer rows.Close()

	var gateways []*domain.PaymentGateway
	for rows.Next() {
		gw, err := r.scanGateway(rows)
		if err != nil {
			r.logger.Error("Failed to scan gateway row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan gateway row: %w", err)
		}
		gateways = append(gateways, gw)
	}
	if err = rows.Err(); err != nil {
		r.logger.Error("Rows error while querying gateways", zap.Error(err))
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return gateways, nil
}
