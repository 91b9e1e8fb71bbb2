package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository/order_repo"
	"storefront/internal/repository/outbox_repo"
)

type pgOrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderRepository(db *sql.DB, l *zap.Logger) order_repo.OrderRepository {
	return &pgOrderRepository{db: db, logger: l}
}

const orderColumns = `id, buyer_id, buyer_email, gateway_name, total_amount, gateway_fee, platform_fee, seller_fee,
	status, verification_status, seller_payment_status, external_reference, billing_info, created_at, updated_at`

// CreateOrderWithItems uses a named error return so the deferred commit can
// overwrite it; a commit failure must reach the caller, not just the log.
func (r *pgOrderRepository) CreateOrderWithItems(ctx context.Context, order *domain.Order, items []*domain.OrderItem) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction for order creation", zap.String("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Panic during order creation transaction, rolling back", zap.String("order_id", order.ID))
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			r.logger.Warn("Rolling back order creation transaction", zap.String("order_id", order.ID), zap.Error(err))
			_ = tx.Rollback()
		} else if commitErr := tx.Commit(); commitErr != nil {
			r.logger.Error("Failed to commit order creation transaction", zap.String("order_id", order.ID), zap.Error(commitErr))
			err = fmt.Errorf("failed to commit order creation: %w", commitErr)
		}
	}()

	orderQuery := `INSERT INTO orders (id, buyer_id, buyer_email, gateway_name, total_amount, gateway_fee, platform_fee, seller_fee,
		status, verification_status, seller_payment_status, external_reference, billing_info, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14, $15)`
	_, err = tx.ExecContext(ctx, orderQuery,
		order.ID, order.BuyerID, order.BuyerEmail, order.GatewayName,
		order.TotalAmount, order.GatewayFee, order.PlatformFee, order.SellerFee,
		order.Status, order.VerificationStatus, order.SellerPaymentStatus,
		order.ExternalReference, order.BillingInfo, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("tx failed to create order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, item := range items {
		_, err = tx.ExecContext(ctx, itemQuery,
			item.ID, item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.CreatedAt)
		if err != nil {
			return fmt.Errorf("tx failed to create order item: %w", err)
		}
	}
	r.logger.Debug("Order and items inserted in transaction",
		zap.String("order_id", order.ID),
		zap.Int("item_count", len(items)))

	return nil
}

func (r *pgOrderRepository) scanOrder(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Order, error) {
	order := &domain.Order{}
	var verification sql.NullString
	var externalRef sql.NullString
	var billingInfo []byte
	err := row.Scan(&order.ID, &order.BuyerID, &order.BuyerEmail, &order.GatewayName,
		&order.TotalAmount, &order.GatewayFee, &order.PlatformFee, &order.SellerFee,
		&order.Status, &verification, &order.SellerPaymentStatus,
		&externalRef, &billingInfo, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if verification.Valid {
		order.VerificationStatus = domain.VerificationStatus(verification.String)
	}
	if externalRef.Valid {
		order.ExternalReference = externalRef.String
	}
	order.BillingInfo = billingInfo
	return order, nil
}

func (r *pgOrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		r.logger.Error("Failed to get order by ID", zap.String("order_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return order, nil
}

func (r *pgOrderRepository) GetOrderByExternalReference(ctx context.Context, ref string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE external_reference = $1`
	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		r.logger.Error("Failed to get order by external reference", zap.String("external_ref", ref), zap.Error(err))
		return nil, fmt.Errorf("failed to get order by external reference %s: %w", ref, err)
	}
	return order, nil
}

func (r *pgOrderRepository) GetOrdersByBuyerID(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC`
	return r.queryOrders(ctx, query, buyerID)
}

func (r *pgOrderRepository) ListPendingVerification(ctx context.Context) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 AND verification_status = $2 ORDER BY created_at ASC`
	return r.queryOrders(ctx, query, domain.OrderStatusPending, domain.VerificationPending)
}

func (r *pgOrderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query orders", zap.Error(err))
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			r.logger.Error("Failed to scan order row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		r.logger.Error("Rows error while querying orders", zap.Error(err))
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return orders, nil
}

func (r *pgOrderRepository) GetOrderItems(ctx context.Context, orderID string) ([]*domain.OrderItem, error) {
	query := `SELECT id, order_id, product_id, product_name, quantity, unit_price, created_at
		FROM order_items WHERE order_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to query order items", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("failed to get items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var items []*domain.OrderItem
	for rows.Next() {
		item := &domain.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.CreatedAt); err != nil {
			r.logger.Error("Failed to scan order item row", zap.String("order_id", orderID), zap.Error(err))
			return nil, fmt.Errorf("failed to scan order item row: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		r.logger.Error("Rows error while querying order items", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

func (r *pgOrderRepository) SetExternalReference(ctx context.Context, orderID, ref string, billingInfo []byte) error {
	query := `UPDATE orders SET external_reference = $2, billing_info = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, orderID, ref, billingInfo, time.Now())
	if err != nil {
		r.logger.Error("Failed to set external reference", zap.String("order_id", orderID), zap.Error(err))
		return fmt.Errorf("failed to set external reference for order %s: %w", orderID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rowsAffected == 0 {
		r.logger.Warn("No rows affected when setting external reference", zap.String("order_id", orderID))
		return sql.ErrNoRows
	}
	return nil
}

// CompleteOrder updates status only while the order is still PENDING, so a
// replayed capture finds zero affected rows and skips the outbox insert
// instead of enqueuing a second fulfillment event. The named returns let the
// deferred commit report its failure; a completion the database never
// persisted must not look successful to the caller.
func (r *pgOrderRepository) CompleteOrder(ctx context.Context, orderID string, verification domain.VerificationStatus, msg *outbox_repo.OutboxMessage) (completed bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction for order completion", zap.String("order_id", orderID), zap.Error(err))
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			r.logger.Warn("Rolling back order completion transaction", zap.String("order_id", orderID), zap.Error(err))
			_ = tx.Rollback()
		} else if commitErr := tx.Commit(); commitErr != nil {
			r.logger.Error("Failed to commit order completion transaction", zap.String("order_id", orderID), zap.Error(commitErr))
			completed = false
			err = fmt.Errorf("failed to commit order completion: %w", commitErr)
		}
	}()

	updateQuery := `UPDATE orders SET status = $2, verification_status = COALESCE(NULLIF($3, ''), verification_status), updated_at = $4
		WHERE id = $1 AND status = $5`
	res, err := tx.ExecContext(ctx, updateQuery,
		orderID, domain.OrderStatusCompleted, string(verification), time.Now(), domain.OrderStatusPending)
	if err != nil {
		return false, fmt.Errorf("tx failed to complete order: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check completion result: %w", err)
	}
	if rowsAffected == 0 {
		r.logger.Info("Order was not pending, completion skipped", zap.String("order_id", orderID))
		return false, nil
	}
	completed = true

	if msg != nil {
		outboxQuery := `INSERT INTO outbox_messages (id, topic, payload, status, created_at) VALUES ($1, $2, $3, $4, $5)`
		_, err = tx.ExecContext(ctx, outboxQuery, msg.ID, msg.Topic, msg.Payload, msg.Status, msg.CreatedAt)
		if err != nil {
			return false, fmt.Errorf("tx failed to enqueue fulfillment message: %w", err)
		}
	}

	r.logger.Debug("Order completed in transaction", zap.String("order_id", orderID))
	return completed, nil
}

func (r *pgOrderRepository) CancelOrder(ctx context.Context, orderID string, verification domain.VerificationStatus) (bool, error) {
	query := `UPDATE orders SET status = $2, verification_status = COALESCE(NULLIF($3, ''), verification_status), updated_at = $4
		WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query,
		orderID, domain.OrderStatusCancelled, string(verification), time.Now(), domain.OrderStatusPending)
	if err != nil {
		r.logger.Error("Failed to cancel order", zap.String("order_id", orderID), zap.Error(err))
		return false, fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check cancel result: %w", err)
	}
	if rowsAffected == 0 {
		r.logger.Info("Order was not pending, cancellation skipped", zap.String("order_id", orderID))
		return false, nil
	}
	return true, nil
}
