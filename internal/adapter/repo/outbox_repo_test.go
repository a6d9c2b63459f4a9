package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chainpost/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// outboxRows replays scripted scan funcs as a pgx.Rows stream.
type outboxRows struct {
	scans []func(dest ...any) error
	idx   int
}

func (r *outboxRows) Next() bool { return r.idx < len(r.scans) }

func (r *outboxRows) Scan(dest ...any) error {
	scan := r.scans[r.idx]
	r.idx++
	return scan(dest...)
}

func (r *outboxRows) Close()     {}
func (r *outboxRows) Err() error { return nil }

func (*outboxRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (*outboxRows) Conn() *pgx.Conn               { return nil }
func (*outboxRows) FieldDescriptions() []pgconn.FieldDescription {
	return nil
}
func (*outboxRows) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}
func (*outboxRows) RawValues() [][]byte { return nil }

type queryExecutor struct {
	stubExecutor
	rows *outboxRows
}

func (q *queryExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return q.rows, nil
}

func TestClaimPending(t *testing.T) {
	created := time.Now().Add(-time.Minute)
	claimed := time.Now()
	exec := &queryExecutor{rows: &outboxRows{scans: []func(dest ...any) error{
		func(dest ...any) error {
			*(dest[0].(*string)) = "msg-1"
			*(dest[1].(*string)) = "proj-1"
			*(dest[2].(*domain.OutboxKind)) = domain.OutboxKindPostGenerate
			*(dest[3].(*[]byte)) = []byte(`{"project_id":"proj-1"}`)
			*(dest[4].(*domain.OutboxStatus)) = domain.OutboxStatusSending
			*(dest[5].(*time.Time)) = created
			*(dest[6].(**time.Time)) = &claimed
			return nil
		},
	}}}
	r := NewOutboxRepository(exec)

	messages, err := r.ClaimPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("ClaimPending() error = %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("messages = %d", len(messages))
	}
	msg := messages[0]
	if msg.ID != "msg-1" || msg.Kind != domain.OutboxKindPostGenerate {
		t.Fatalf("message = %+v", msg)
	}
	if msg.Status != domain.OutboxStatusSending {
		t.Fatalf("status = %s, claim must return rows already flipped to sending", msg.Status)
	}
	if msg.ClaimedAt == nil {
		t.Fatal("claimed at not populated")
	}
	if msg.SentAt != nil {
		t.Fatalf("sent at = %v, want nil", msg.SentAt)
	}
}

func TestMarkSent(t *testing.T) {
	exec := &stubExecutor{}
	r := NewOutboxRepository(exec)
	if err := r.MarkSent(context.Background(), "msg-1"); err != nil {
		t.Fatalf("MarkSent() error = %v", err)
	}
	if len(exec.execs) != 1 || exec.execs[0][0] != "msg-1" {
		t.Fatalf("exec args = %v", exec.execs)
	}
}

func TestRequeue(t *testing.T) {
	exec := &stubExecutor{}
	r := NewOutboxRepository(exec)
	if err := r.Requeue(context.Background(), "msg-1"); err != nil {
		t.Fatalf("Requeue() error = %v", err)
	}
	if len(exec.execs) != 1 || exec.execs[0][0] != "msg-1" {
		t.Fatalf("exec args = %v", exec.execs)
	}
}

func TestRequeueStale(t *testing.T) {
	exec := &queryExecutor{rows: &outboxRows{scans: []func(dest ...any) error{
		func(dest ...any) error {
			*(dest[0].(*string)) = "msg-7"
			return nil
		},
	}}}
	r := NewOutboxRepository(exec)

	ids, err := r.RequeueStale(context.Background(), time.Now().Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("RequeueStale() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != "msg-7" {
		t.Fatalf("ids = %v", ids)
	}
}
