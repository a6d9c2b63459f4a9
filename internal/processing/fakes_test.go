package processing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chainpost/internal/domain"
	"chainpost/internal/providers/postgen"
	"chainpost/internal/providers/transcribe"
)

// fakeProjectRepo mirrors the conditional-update semantics of the Postgres
// repository in memory.
type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[string]*domain.Project
	outbox   []domain.OutboxMessage
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[string]*domain.Project)}
}

func (f *fakeProjectRepo) Create(ctx context.Context, project *domain.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *project
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.projects[project.ID] = &stored
	return nil
}

func (f *fakeProjectRepo) GetByID(ctx context.Context, id, userID string) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	project, ok := f.projects[id]
	if !ok || project.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cloned := *project
	return &cloned, nil
}

func (f *fakeProjectRepo) GetAny(ctx context.Context, id string) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	project, ok := f.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cloned := *project
	return &cloned, nil
}

func (f *fakeProjectRepo) ListByUser(ctx context.Context, userID string) ([]domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Project
	for _, project := range f.projects {
		if project.UserID == userID {
			out = append(out, *project)
		}
	}
	return out, nil
}

func (f *fakeProjectRepo) CompleteProcessing(ctx context.Context, id string, update domain.ProjectUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	project, ok := f.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	if project.Status != domain.ProjectStatusProcessing {
		return domain.ErrConflict
	}
	applyUpdate(project, update)
	return nil
}

func (f *fakeProjectRepo) CompleteProcessingAndChain(ctx context.Context, id string, update domain.ProjectUpdate, kind domain.OutboxKind, chainPayload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	project, ok := f.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	if project.Status != domain.ProjectStatusProcessing || project.CaptionText != "" {
		return domain.ErrConflict
	}
	applyUpdate(project, update)
	f.outbox = append(f.outbox, domain.OutboxMessage{
		ID:        fmt.Sprintf("outbox-%d", len(f.outbox)+1),
		ProjectID: id,
		Kind:      kind,
		Payload:   append([]byte(nil), chainPayload...),
		Status:    domain.OutboxStatusPending,
		CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeProjectRepo) ExpireStale(ctx context.Context, cutoff time.Time, reason string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, project := range f.projects {
		if project.Status == domain.ProjectStatusProcessing && project.UpdatedAt.Before(cutoff) {
			project.Status = domain.ProjectStatusFailed
			project.ErrorMessage = reason
			project.UpdatedAt = time.Now()
			ids = append(ids, project.ID)
		}
	}
	return ids, nil
}

func (f *fakeProjectRepo) ClaimPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.OutboxMessage
	for i := range f.outbox {
		if f.outbox[i].Status == domain.OutboxStatusPending && len(out) < limit {
			now := time.Now()
			f.outbox[i].Status = domain.OutboxStatusSending
			f.outbox[i].ClaimedAt = &now
			out = append(out, f.outbox[i])
		}
	}
	return out, nil
}

func (f *fakeProjectRepo) MarkSent(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.outbox {
		if f.outbox[i].ID == id && f.outbox[i].Status == domain.OutboxStatusSending {
			now := time.Now()
			f.outbox[i].Status = domain.OutboxStatusSent
			f.outbox[i].SentAt = &now
		}
	}
	return nil
}

func (f *fakeProjectRepo) Requeue(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.outbox {
		if f.outbox[i].ID == id && f.outbox[i].Status == domain.OutboxStatusSending {
			f.outbox[i].Status = domain.OutboxStatusPending
			f.outbox[i].ClaimedAt = nil
		}
	}
	return nil
}

func (f *fakeProjectRepo) RequeueStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for i := range f.outbox {
		msg := &f.outbox[i]
		if msg.Status == domain.OutboxStatusSending && msg.ClaimedAt != nil && msg.ClaimedAt.Before(cutoff) {
			msg.Status = domain.OutboxStatusPending
			msg.ClaimedAt = nil
			ids = append(ids, msg.ID)
		}
	}
	return ids, nil
}

func applyUpdate(project *domain.Project, update domain.ProjectUpdate) {
	project.Status = update.Status
	if update.CompressedURL != nil {
		project.CompressedURL = *update.CompressedURL
	}
	if update.CaptionText != nil {
		project.CaptionText = *update.CaptionText
	}
	if update.CaptionSRT != nil {
		project.CaptionSRT = *update.CaptionSRT
	}
	if update.Posts != nil {
		project.Posts = update.Posts
	}
	if update.ResizedURL != nil {
		project.ResizedURL = *update.ResizedURL
	}
	if update.ErrorMessage != nil {
		project.ErrorMessage = *update.ErrorMessage
	}
	project.UpdatedAt = time.Now()
}

type fakeStore struct {
	uploadErr error
	uploaded  map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploaded: make(map[string][]byte)}
}

func (f *fakeStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploaded[key] = data
	return key, nil
}

func (f *fakeStore) SourceURL(key string) string {
	return "https://cdn.test/" + key
}

func (f *fakeStore) ResizedURL(key string, width, height int) string {
	return fmt.Sprintf("https://cdn.test/w_%d,h_%d/%s", width, height, key)
}

func (f *fakeStore) CompressedURL(key string) string {
	return "https://cdn.test/q_auto/" + key
}

type fakeTranscriber struct {
	submitErr error
	requests  []transcribe.SubmitRequest
}

func (f *fakeTranscriber) Submit(ctx context.Context, req transcribe.SubmitRequest) (*transcribe.SubmitAck, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.requests = append(f.requests, req)
	return &transcribe.SubmitAck{JobRef: "tr_fake"}, nil
}

type fakePostGenerator struct {
	err   error
	calls int
	posts map[string]string
}

func (f *fakePostGenerator) Generate(ctx context.Context, req postgen.GenerateRequest) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.posts != nil {
		return f.posts, nil
	}
	out := make(map[string]string, len(req.Platforms))
	for _, platform := range req.Platforms {
		out[platform] = "post for " + platform
	}
	return out, nil
}

type fakeQueue struct {
	publishErr error
	published  []string
}

func (f *fakeQueue) Publish(ctx context.Context, destination string, payload []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, destination)
	return nil
}

var errUpstreamDown = errors.New("upstream down")
