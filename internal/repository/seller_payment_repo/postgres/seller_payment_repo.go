package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository/seller_payment_repo"
)

type pgSellerPaymentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSellerPaymentRepository(db *sql.DB, l *zap.Logger) seller_payment_repo.SellerPaymentRepository {
	return &pgSellerPaymentRepository{db: db, logger: l}
}

// CreatePayoutAndMarkOrderPaid uses a named error return so the deferred
// commit can overwrite it; a disbursement record the database never persisted
// must not look recorded to the caller.
func (r *pgSellerPaymentRepository) CreatePayoutAndMarkOrderPaid(ctx context.Context, payment *domain.SellerPayment) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction for payout", zap.String("order_id", payment.OrderID), zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			r.logger.Warn("Rolling back payout transaction", zap.String("order_id", payment.OrderID), zap.Error(err))
			_ = tx.Rollback()
		} else if commitErr := tx.Commit(); commitErr != nil {
			r.logger.Error("Failed to commit payout transaction", zap.String("order_id", payment.OrderID), zap.Error(commitErr))
			err = fmt.Errorf("failed to commit payout: %w", commitErr)
		}
	}()

	insertQuery := `INSERT INTO seller_payments (id, order_id, seller_id, amount, method, reference, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = tx.ExecContext(ctx, insertQuery,
		payment.ID, payment.OrderID, payment.SellerID, payment.Amount,
		payment.Method, payment.Reference, payment.Notes, payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("tx failed to create seller payment: %w", err)
	}

	// The UNPAID guard plus the unique index on seller_payments.order_id
	// both block a second disbursement for the same order.
	updateQuery := `UPDATE orders SET seller_payment_status = $2, updated_at = $3
		WHERE id = $1 AND seller_payment_status = $4`
	res, err := tx.ExecContext(ctx, updateQuery,
		payment.OrderID, domain.SellerPaymentPaid, time.Now(), domain.SellerPaymentUnpaid)
	if err != nil {
		return fmt.Errorf("tx failed to mark order seller-paid: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check payout update result: %w", err)
	}
	if rowsAffected == 0 {
		err = fmt.Errorf("order %s is already marked seller-paid", payment.OrderID)
		return err
	}

	r.logger.Debug("Seller payout recorded in transaction",
		zap.String("order_id", payment.OrderID),
		zap.String("payout_id", payment.ID))
	return nil
}

func (r *pgSellerPaymentRepository) ExistsForOrder(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM seller_payments WHERE order_id = $1)`
	if err := r.db.QueryRowContext(ctx, query, orderID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check payout existence", zap.String("order_id", orderID), zap.Error(err))
		return false, fmt.Errorf("failed to check payout for order %s: %w", orderID, err)
	}
	return exists, nil
}

func (r *pgSellerPaymentRepository) ListPayouts(ctx context.Context) ([]*domain.SellerPayment, error) {
	query := `SELECT id, order_id, seller_id, amount, method, reference, notes, created_at
		FROM seller_payments ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query payouts", zap.Error(err))
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	defer rows.Close()

	var payouts []*domain.SellerPayment
	for rows.Next() {
		p := &domain.SellerPayment{}
		var reference, notes sql.NullString
		if err := rows.Scan(&p.ID, &p.OrderID, &p.SellerID, &p.Amount, &p.Method, &reference, &notes, &p.CreatedAt); err != nil {
			r.logger.Error("Failed to scan payout row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan payout row: %w", err)
		}
		if reference.Valid {
			p.Reference = reference.String
		}
		if notes.Valid {
			p.Notes = notes.String
		}
		payouts = append(payouts, p)
	}
	if err = rows.Err(); err != nil {
		r.logger.Error("Rows error while querying payouts", zap.Error(err))
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return payouts, nil
}
