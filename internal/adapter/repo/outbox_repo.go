package repo

import (
	"context"
	"time"

	"chainpost/internal/domain"
	"chainpost/internal/infra"
	"chainpost/internal/sqlinline"
)

// OutboxRepositoryPG implements domain.OutboxRepository on PostgreSQL.
type OutboxRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewOutboxRepository creates a new outbox repository.
func NewOutboxRepository(sql infra.SQLExecutor) *OutboxRepositoryPG {
	return &OutboxRepositoryPG{sql: sql}
}

// ClaimPending takes up to limit undispatched messages, oldest first. The
// statement flips the matched rows to sending as it selects them, so by the
// time another dispatcher runs the claim those rows no longer match and each
// message is held by exactly one worker.
func (r *OutboxRepositoryPG) ClaimPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QClaimPendingOutbox, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.OutboxMessage
	for rows.Next() {
		var msg domain.OutboxMessage
		if err := rows.Scan(&msg.ID, &msg.ProjectID, &msg.Kind, &msg.Payload, &msg.Status, &msg.CreatedAt, &msg.ClaimedAt, &msg.SentAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// MarkSent records a successful publish. The sending guard makes the mark
// idempotent under dispatcher restarts.
func (r *OutboxRepositoryPG) MarkSent(ctx context.Context, id string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkOutboxSent, id)
	return err
}

// Requeue releases a claim after a failed publish so the next drain retries.
func (r *OutboxRepositoryPG) Requeue(ctx context.Context, id string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QRequeueOutbox, id)
	return err
}

// RequeueStale releases claims taken before cutoff, recovering messages whose
// dispatcher died between the claim and the mark.
func (r *OutboxRepositoryPG) RequeueStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QRequeueStaleOutbox, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ domain.OutboxRepository = (*OutboxRepositoryPG)(nil)
