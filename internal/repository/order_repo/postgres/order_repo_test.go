package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository/outbox_repo"
)

// commitFailDriver accepts every statement but fails the transaction commit,
// standing in for a connection dropped between the final write and the commit.
type commitFailDriver struct{}

func (commitFailDriver) Open(string) (driver.Conn, error) { return &commitFailConn{}, nil }

type commitFailConn struct{}

func (c *commitFailConn) Prepare(string) (driver.Stmt, error) { return acceptStmt{}, nil }
func (c *commitFailConn) Close() error                        { return nil }
func (c *commitFailConn) Begin() (driver.Tx, error)           { return commitFailTx{}, nil }

type commitFailTx struct{}

func (commitFailTx) Commit() error   { return errors.New("connection reset during commit") }
func (commitFailTx) Rollback() error { return nil }

type acceptStmt struct{}

func (acceptStmt) Close() error  { return nil }
func (acceptStmt) NumInput() int { return -1 }
func (acceptStmt) Exec([]driver.Value) (driver.Result, error) {
	return driver.RowsAffected(1), nil
}
func (acceptStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, errors.New("query not supported")
}

func init() {
	sql.Register("order_commit_fail", commitFailDriver{})
}

func openCommitFailDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("order_commit_fail", "")
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCompleteOrderSurfacesCommitFailure(t *testing.T) {
	repo := NewOrderRepository(openCommitFailDB(t), zap.NewNop())

	msg := &outbox_repo.OutboxMessage{
		ID:        "msg-1",
		Topic:     "order_fulfillment",
		Payload:   []byte(`{"order_id":"order-1"}`),
		Status:    outbox_repo.StatusPending,
		CreatedAt: time.Now(),
	}
	completed, err := repo.CompleteOrder(context.Background(), "order-1", domain.VerificationNone, msg)
	if err == nil {
		t.Fatal("expected commit failure to surface, got nil error")
	}
	if completed {
		t.Fatal("order must not report completed when the commit failed")
	}
}

func TestCreateOrderWithItemsSurfacesCommitFailure(t *testing.T) {
	repo := NewOrderRepository(openCommitFailDB(t), zap.NewNop())

	now := time.Now()
	order := &domain.Order{
		ID:                  "order-1",
		BuyerID:             "buyer-1",
		BuyerEmail:          "buyer@example.com",
		GatewayName:         "paypal",
		TotalAmount:         decimal.NewFromInt(10),
		Status:              domain.OrderStatusPending,
		SellerPaymentStatus: domain.SellerPaymentUnpaid,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	items := []*domain.OrderItem{{
		ID:          "item-1",
		OrderID:     "order-1",
		ProductID:   "prod-1",
		ProductName: "E-book",
		Quantity:    1,
		UnitPrice:   decimal.NewFromInt(10),
		CreatedAt:   now,
	}}

	if err := repo.CreateOrderWithItems(context.Background(), order, items); err == nil {
		t.Fatal("expected commit failure to surface, got nil error")
	}
}
