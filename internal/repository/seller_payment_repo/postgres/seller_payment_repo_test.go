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
)

// commitFailDriver accepts every statement but fails the transaction commit.
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
	sql.Register("payout_commit_fail", commitFailDriver{})
}

func TestCreatePayoutSurfacesCommitFailure(t *testing.T) {
	db, err := sql.Open("payout_commit_fail", "")
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewSellerPaymentRepository(db, zap.NewNop())

	payment := &domain.SellerPayment{
		ID:        "payout-1",
		OrderID:   "order-1",
		SellerID:  "seller-1",
		Amount:    decimal.NewFromFloat(86.70),
		Method:    "bank-transfer",
		CreatedAt: time.Now(),
	}
	if err := repo.CreatePayoutAndMarkOrderPaid(context.Background(), payment); err == nil {
		t.Fatal("payout must not report recorded when the commit failed")
	}
}
