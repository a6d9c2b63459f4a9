package processing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chainpost/internal/domain"
	"chainpost/internal/infra"
)

// QueuePublisher hands a payload to the external queue for later delivery.
type QueuePublisher interface {
	Publish(ctx context.Context, destination string, payload []byte) error
}

// Dispatcher drains the outbox into the external queue and expires projects
// stuck in processing. It runs inside the worker binary.
type Dispatcher struct {
	outbox   domain.OutboxRepository
	projects domain.ProjectRepository
	queue    QueuePublisher
	baseURL  string
	deadline time.Duration
	logger   infra.Logger
}

// NewDispatcher wires the dispatcher. deadline bounds how long a project may
// sit in processing before the sweep fails it.
func NewDispatcher(outbox domain.OutboxRepository, projects domain.ProjectRepository, queue QueuePublisher, callbackBaseURL string, deadline time.Duration, logger infra.Logger) *Dispatcher {
	return &Dispatcher{
		outbox:   outbox,
		projects: projects,
		queue:    queue,
		baseURL:  strings.TrimRight(callbackBaseURL, "/"),
		deadline: deadline,
		logger:   logger,
	}
}

// claimTimeout bounds how long a sending claim may sit unresolved before the
// sweep hands the message back to the pending pool.
const claimTimeout = 5 * time.Minute

// DrainOutbox claims up to limit pending messages and publishes them. The
// claim flips each row to sending, so concurrent workers never hold the same
// message; a message is marked sent only after the queue accepted it, and a
// failed publish is requeued for the next pass.
func (d *Dispatcher) DrainOutbox(ctx context.Context, limit int) (int, error) {
	messages, err := d.outbox.ClaimPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("claim outbox: %w", err)
	}
	sent := 0
	for _, msg := range messages {
		destination, ok := d.destinationFor(msg.Kind)
		if !ok {
			d.logger.Error().Str("outbox_id", msg.ID).Str("kind", string(msg.Kind)).Msg("dispatcher: unknown outbox kind")
			d.requeue(ctx, msg.ID)
			continue
		}
		if err := d.queue.Publish(ctx, destination, msg.Payload); err != nil {
			d.logger.Error().Err(err).Str("outbox_id", msg.ID).Msg("dispatcher: publish failed, will retry")
			d.requeue(ctx, msg.ID)
			continue
		}
		if err := d.outbox.MarkSent(ctx, msg.ID); err != nil {
			d.logger.Error().Err(err).Str("outbox_id", msg.ID).Msg("dispatcher: mark sent failed")
			continue
		}
		sent++
	}
	return sent, nil
}

func (d *Dispatcher) requeue(ctx context.Context, id string) {
	if err := d.outbox.Requeue(ctx, id); err != nil {
		d.logger.Error().Err(err).Str("outbox_id", id).Msg("dispatcher: requeue failed")
	}
}

// SweepStale fails projects that have sat in processing past the deadline,
// e.g. because a callback was lost, and hands back outbox claims abandoned by
// a dispatcher that died mid-publish.
func (d *Dispatcher) SweepStale(ctx context.Context) (int, error) {
	requeued, err := d.outbox.RequeueStale(ctx, time.Now().Add(-claimTimeout))
	if err != nil {
		return 0, fmt.Errorf("requeue stale outbox claims: %w", err)
	}
	for _, id := range requeued {
		d.logger.Warn().Str("outbox_id", id).Msg("dispatcher: requeued abandoned outbox claim")
	}

	cutoff := time.Now().Add(-d.deadline)
	ids, err := d.projects.ExpireStale(ctx, cutoff, "processing deadline exceeded")
	if err != nil {
		return 0, fmt.Errorf("expire stale projects: %w", err)
	}
	for _, id := range ids {
		d.logger.Warn().Str("project_id", id).Msg("dispatcher: expired stuck project")
	}
	return len(ids), nil
}

func (d *Dispatcher) destinationFor(kind domain.OutboxKind) (string, bool) {
	switch kind {
	case domain.OutboxKindPostGenerate:
		return d.baseURL + "/v1/callbacks/post", true
	}
	return "", false
}
