package domain

import (
	"context"
	"time"
)

// ProjectUpdate carries the partial field merge applied by UpdateResult.
// Nil fields are left untouched; updated_at is always stamped.
type ProjectUpdate struct {
	Status        ProjectStatus
	CompressedURL *string
	CaptionText   *string
	CaptionSRT    *string
	Posts         map[string]string
	ResizedURL    *string
	ErrorMessage  *string
}

// ProjectRepository defines persistence for project records.
type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	// GetByID is scoped to the owning user; other callers see ErrNotFound.
	GetByID(ctx context.Context, id, userID string) (*Project, error)
	// GetAny fetches without an owner scope, for callback processing.
	GetAny(ctx context.Context, id string) (*Project, error)
	ListByUser(ctx context.Context, userID string) ([]Project, error)
	// CompleteProcessing applies update only when the project is still in
	// processing state. It returns ErrConflict when the conditional update
	// matched no row because the project is already terminal, and
	// ErrNotFound when the id does not exist at all.
	CompleteProcessing(ctx context.Context, id string, update ProjectUpdate) error
	// CompleteProcessingAndChain behaves like CompleteProcessing and, in the
	// same statement, records an outbox message carrying chainPayload. The
	// outbox row is written only when the status transition happened, so a
	// duplicate callback can never enqueue the chained stage twice.
	CompleteProcessingAndChain(ctx context.Context, id string, update ProjectUpdate, kind OutboxKind, chainPayload []byte) error
	// ExpireStale fails processing projects older than the cutoff and
	// returns the ids it transitioned.
	ExpireStale(ctx context.Context, cutoff time.Time, reason string) ([]string, error)
}

// OutboxRepository hands pending chained-work intents to the dispatcher.
type OutboxRepository interface {
	// ClaimPending flips up to limit pending messages to sending and
	// returns them. The flip happens in the claiming statement itself, so
	// a message is only ever held by one dispatcher at a time.
	ClaimPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkSent(ctx context.Context, id string) error
	// Requeue returns a claimed message to pending after a failed publish.
	Requeue(ctx context.Context, id string) error
	// RequeueStale returns messages claimed before cutoff to pending,
	// recovering claims abandoned by a crashed dispatcher.
	RequeueStale(ctx context.Context, cutoff time.Time) ([]string, error)
}

// UserRepository defines access methods for users.
type UserRepository interface {
	UpsertByGoogleSub(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	ConsumeQuota(ctx context.Context, userID string, amount int) (remaining int, err error)
}
