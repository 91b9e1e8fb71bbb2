// Package fulfillment delivers download links for completed orders. Delivery
// is best-effort: the order is already financially settled when the notifier
// runs, so a failed send is logged, never propagated back into order state.
// The buyer can always re-fetch the links from their order history.
package fulfillment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/infrastructure/mail"
	"storefront/internal/repository/order_repo"
	"storefront/internal/repository/product_repo"
)

type Notifier interface {
	// Notify emails the buyer the download links for the order. Invoking it
	// repeatedly for the same order resends the same links, which is
	// harmless.
	Notify(ctx context.Context, orderID string) error
}

type notifier struct {
	orderRepo   order_repo.OrderRepository
	productRepo product_repo.ProductRepository
	mailer      mail.Mailer
	logger      *zap.Logger
}

func NewNotifier(
	orderRepo order_repo.OrderRepository,
	productRepo product_repo.ProductRepository,
	mailer mail.Mailer,
	logger *zap.Logger,
) Notifier {
	return &notifier{orderRepo: orderRepo, productRepo: productRepo, mailer: mailer, logger: logger}
}

func (n *notifier) Notify(ctx context.Context, orderID string) error {
	order, err := n.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			n.logger.Warn("Fulfillment requested for unknown order, ignoring", zap.String("order_id", orderID))
			return nil
		}
		return fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	if order.Status != domain.OrderStatusCompleted {
		n.logger.Warn("Fulfillment requested for non-completed order, ignoring",
			zap.String("order_id", orderID),
			zap.String("status", string(order.Status)))
		return nil
	}

	items, err := n.orderRepo.GetOrderItems(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load items for order %s: %w", orderID, err)
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := n.productRepo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load products for order %s: %w", orderID, err)
	}

	var links []string
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok || product.DownloadURL == "" {
			n.logger.Warn("Purchased item has no download URL, skipping",
				zap.String("order_id", orderID),
				zap.String("product_id", item.ProductID))
			continue
		}
		links = append(links, fmt.Sprintf("%s: %s", item.ProductName, product.DownloadURL))
	}
	if len(links) == 0 {
		n.logger.Info("No downloadable items for order, nothing to send", zap.String("order_id", orderID))
		return nil
	}

	msg := &mail.Message{
		To:      order.BuyerEmail,
		Subject: fmt.Sprintf("Your order %s is ready", order.ID),
		Body:    composeBody(order, links),
	}
	if err := n.mailer.Send(msg); err != nil {
		// Best-effort: the links stay reachable from the buyer's order
		// history.
		n.logger.Warn("Failed to deliver fulfillment mail",
			zap.String("order_id", orderID),
			zap.String("to", order.BuyerEmail),
			zap.Error(err))
		return nil
	}

	n.logger.Info("Fulfillment mail sent",
		zap.String("order_id", orderID),
		zap.Int("link_count", len(links)))
	return nil
}

func composeBody(order *domain.Order, links []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your purchase!\n\n")
	fmt.Fprintf(&b, "Order: %s\nTotal: %s\n\nYour downloads:\n", order.ID, order.TotalAmount.StringFixed(2))
	for _, link := range links {
		fmt.Fprintf(&b, "  - %s\n", link)
	}
	b.WriteString("\nThe links are also available in your order history.\n")
	return b.String()
}
