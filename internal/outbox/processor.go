// Package outbox publishes pending outbox rows to Kafka. It is driven by a
// ticker in main; each run drains up to one batch of unsent messages.
package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storefront/internal/infrastructure/kafka"
	"storefront/internal/repository/outbox_repo"
)

type Processor struct {
	outboxRepo outbox_repo.OutboxRepository
	producer   kafka.Producer
	logger     *zap.Logger
}

func NewProcessor(outboxRepo outbox_repo.OutboxRepository, producer kafka.Producer, logger *zap.Logger) *Processor {
	return &Processor{outboxRepo: outboxRepo, producer: producer, logger: logger}
}

func (p *Processor) Process(ctx context.Context) error {
	messages, err := p.outboxRepo.GetUnsentMessages(ctx)
	if err != nil {
		p.logger.Error("Failed to get unsent outbox messages", zap.Error(err))
		return fmt.Errorf("failed to get unsent outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	p.logger.Info("Publishing unsent outbox messages", zap.Int("count", len(messages)))

	for _, msg := range messages {
		if err := p.producer.Produce(ctx, msg.Topic, msg.Payload); err != nil {
			p.logger.Error("Failed to publish outbox message",
				zap.String("message_id", msg.ID),
				zap.String("topic", msg.Topic),
				zap.Error(err))
			continue
		}
		if err := p.outboxRepo.MarkMessageSent(ctx, msg.ID); err != nil {
			p.logger.Error("Failed to mark outbox message as sent",
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
	}
	return nil
}
