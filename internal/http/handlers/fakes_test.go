package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"chainpost/internal/domain"
	"chainpost/internal/infra/google"
	"chainpost/internal/processing"

	"github.com/rs/zerolog"
)

func discardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return body
}

type fakeVerifier struct {
	claims *google.IDTokenClaims
	err    error
}

func (f *fakeVerifier) VerifyIDToken(ctx context.Context, token string) (*google.IDTokenClaims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

type fakeUsers struct {
	user       *domain.User
	upsertErr  error
	consumeErr error
	consumed   int
}

func (f *fakeUsers) UpsertByGoogleSub(ctx context.Context, user *domain.User) (*domain.User, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	out := *f.user
	return &out, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, domain.ErrNotFound
	}
	out := *f.user
	return &out, nil
}

func (f *fakeUsers) ConsumeQuota(ctx context.Context, userID string, amount int) (int, error) {
	if f.consumeErr != nil {
		return 0, f.consumeErr
	}
	f.consumed += amount
	return 5 - f.consumed, nil
}

type fakeProjects struct {
	projects map[string]*domain.Project
}

func newFakeProjects(projects ...*domain.Project) *fakeProjects {
	f := &fakeProjects{projects: map[string]*domain.Project{}}
	for _, p := range projects {
		f.projects[p.ID] = p
	}
	return f
}

func (f *fakeProjects) Create(ctx context.Context, project *domain.Project) error {
	f.projects[project.ID] = project
	return nil
}

func (f *fakeProjects) GetByID(ctx context.Context, id, userID string) (*domain.Project, error) {
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return nil, domain.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (f *fakeProjects) GetAny(ctx context.Context, id string) (*domain.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (f *fakeProjects) ListByUser(ctx context.Context, userID string) ([]domain.Project, error) {
	var out []domain.Project
	for _, p := range f.projects {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProjects) CompleteProcessing(ctx context.Context, id string, update domain.ProjectUpdate) error {
	return errors.New("not used in handler tests")
}

func (f *fakeProjects) CompleteProcessingAndChain(ctx context.Context, id string, update domain.ProjectUpdate, kind domain.OutboxKind, chainPayload []byte) error {
	return errors.New("not used in handler tests")
}

func (f *fakeProjects) ExpireStale(ctx context.Context, cutoff time.Time, reason string) ([]string, error) {
	return nil, nil
}

type fakeJobs struct {
	project *domain.Project
	err     error

	startInput   *processing.StartJobInput
	captionRes   *processing.CaptionResult
	postPayload  *processing.PostJobPayload
	captionCalls int
	postCalls    int
}

func (f *fakeJobs) StartJob(ctx context.Context, in processing.StartJobInput) (*domain.Project, error) {
	f.startInput = &in
	if f.err != nil {
		return nil, f.err
	}
	return f.project, nil
}

func (f *fakeJobs) HandleCaptionCallback(ctx context.Context, res processing.CaptionResult) error {
	f.captionCalls++
	f.captionRes = &res
	return f.err
}

func (f *fakeJobs) HandlePostJob(ctx context.Context, payload processing.PostJobPayload) error {
	f.postCalls++
	f.postPayload = &payload
	return f.err
}
