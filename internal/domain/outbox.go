package domain

import "time"

// OutboxKind enumerates chained work dispatched through the outbox.
type OutboxKind string

const (
	OutboxKindPostGenerate OutboxKind = "post_generate"
)

// OutboxStatus enumerates dispatch states of an outbox message. A claim moves
// the row from pending to sending before the publish attempt; only a
// confirmed publish moves it on to sent.
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSending OutboxStatus = "sending"
	OutboxStatusSent    OutboxStatus = "sent"
)

// OutboxMessage records an intent to enqueue downstream work. It is written in
// the same transaction as the project update that produced it, so a crash
// between "mark completed" and "publish to queue" cannot drop the chained job.
type OutboxMessage struct {
	ID        string
	ProjectID string
	Kind      OutboxKind
	Payload   []byte
	Status    OutboxStatus
	CreatedAt time.Time
	ClaimedAt *time.Time
	SentAt    *time.Time
}
