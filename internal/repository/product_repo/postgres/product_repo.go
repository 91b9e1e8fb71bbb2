package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository/product_repo"
)

type pgProductRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewProductRepository(db *sql.DB, l *zap.Logger) product_repo.ProductRepository {
	return &pgProductRepository{db: db, logger: l}
}

const productColumns = `id, seller_id, name, price, download_url, active, created_at, updated_at`

func (r *pgProductRepository) GetProductsByIDs(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	if len(ids) == 0 {
		return map[string]*domain.Product{}, nil
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		r.logger.Error("Failed to query products by IDs", zap.Error(err))
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	products := make(map[string]*domain.Product, len(ids))
	for rows.Next() {
		product := &domain.Product{}
		var downloadURL sql.NullString
		if err := rows.Scan(&product.ID, &product.SellerID, &product.Name,
			&product.Price, &downloadURL, &product.Active, &product.CreatedAt, &product.UpdatedAt); err != nil {
			r.logger.Error("Failed to scan product row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		if downloadURL.Valid {
			product.DownloadURL = downloadURL.String
		}
		products[product.ID] = product
	}
	if err = rows.Err(); err != nil {
		r.logger.Error("Rows error while querying products", zap.Error(err))
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return products, nil
}
