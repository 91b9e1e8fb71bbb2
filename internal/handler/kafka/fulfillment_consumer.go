package kafka

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"storefront/internal/app/checkout"
	"storefront/internal/app/fulfillment"
)

type FulfillmentConsumer struct {
	notifier fulfillment.Notifier
	logger   *zap.Logger
}

func NewFulfillmentConsumer(n fulfillment.Notifier, l *zap.Logger) *FulfillmentConsumer {
	return &FulfillmentConsumer{notifier: n, logger: l}
}

func (c *FulfillmentConsumer) HandleMessage(ctx context.Context, message []byte) error {
	var event checkout.FulfillmentEvent
	if err := json.Unmarshal(message, &event); err != nil {
		c.logger.Error("Error unmarshalling fulfillment event, skipping",
			zap.Error(err),
			zap.String("raw_message", string(message)))
		return nil
	}
	if event.OrderID == "" {
		c.logger.Warn("Fulfillment event without order id, skipping")
		return nil
	}

	c.logger.Info("Received fulfillment event", zap.String("order_id", event.OrderID))

	if err := c.notifier.Notify(ctx, event.OrderID); err != nil {
		c.logger.Error("Error delivering fulfillment for order",
			zap.String("order_id", event.OrderID),
			zap.Error(err))
		return err
	}
	return nil
}
