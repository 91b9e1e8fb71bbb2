// Package outbox_repo implements the transactional-outbox store used to hand
// fulfillment events to Kafka: the message row commits in the same
// transaction as the order's completed transition, and a poller publishes it
// afterwards.
package outbox_repo

import (
	"context"
	"time"
)

type OutboxStatus string

const (
	StatusPending OutboxStatus = "PENDING"
	StatusSent    OutboxStatus = "SENT"
)

type OutboxMessage struct {
	ID        string
	Topic     string
	Payload   []byte
	Status    OutboxStatus
	CreatedAt time.Time
	SentAt    *time.Time
}

// OutboxRepository only reads and marks rows. Inserting happens inside the
// order repository's completion transaction, never through this interface.
type OutboxRepository interface {
	GetUnsentMessages(ctx context.Context) ([]*OutboxMessage, error)
	MarkMessageSent(ctx context.Context, id string) error
}
