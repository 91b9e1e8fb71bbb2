package util

import (
	"log"

	"github.com/google/uuid"
)

// GenerateUUID returns a random v4 UUID string for order, item, payout and
// outbox identifiers.
func GenerateUUID() string {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		log.Fatalf("Failed to generate UUID: %v", err)
	}
	return newUUID.String()
}
