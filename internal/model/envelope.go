package model

import "time"

// StatusChangedEnvelope is the payload published to Kafka (via the outbox)
// whenever a transaction changes status.
type StatusChangedEnvelope struct {
	ID            string     `json:"id"` // ULID
	TransactionID int64      `json:"transaction_id"`
	Status        StatusKind `json:"status"`
	OccurredAt    time.Time  `json:"occurred_at"`
}
