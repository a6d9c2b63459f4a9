package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"chainpost/internal/domain"
	"chainpost/internal/infra"
	"chainpost/internal/infra/google"
	"chainpost/internal/middleware"
	"chainpost/internal/processing"
	"chainpost/internal/sqlinline"

	"github.com/go-playground/validator/v10"
)

// TokenVerifier checks Google ID tokens during sign-in.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (*google.IDTokenClaims, error)
}

// JobService is the processing surface the HTTP layer drives.
type JobService interface {
	StartJob(ctx context.Context, in processing.StartJobInput) (*domain.Project, error)
	HandleCaptionCallback(ctx context.Context, res processing.CaptionResult) error
	HandlePostJob(ctx context.Context, payload processing.PostJobPayload) error
}

type App struct {
	SQL             infra.SQLExecutor
	Logger          infra.Logger
	JWTSecret       string
	QueueSigningKey string
	GoogleVerifier  TokenVerifier
	Users           domain.UserRepository
	Projects        domain.ProjectRepository
	Jobs            JobService
	Validate        *validator.Validate

	// MaxUploadBytes caps multipart submissions. Zero means the default.
	MaxUploadBytes int64
}

const defaultMaxUploadBytes = 256 << 20

func (a *App) maxUpload() int64 {
	if a.MaxUploadBytes > 0 {
		return a.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}

func (a *App) validate() *validator.Validate {
	if a.Validate == nil {
		a.Validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return a.Validate
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]any{
		"error":   slug,
		"message": message,
	})
}

// domainError maps service errors onto HTTP responses.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrQuotaExceeded):
		a.error(w, http.StatusForbidden, "quota_exceeded", "daily quota exhausted")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		a.error(w, http.StatusBadGateway, "upstream_unavailable", "processing service unavailable")
	default:
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// recordUsage writes a usage event. Failures are logged, never surfaced: the
// event stream is advisory and must not fail the request that produced it.
func (a *App) recordUsage(ctx context.Context, userID, projectID, eventType string, success bool) {
	if a.SQL == nil {
		return
	}
	var pid any
	if projectID != "" {
		pid = projectID
	}
	if _, err := a.SQL.Exec(ctx, sqlinline.QInsertUsageEvent, userID, pid, eventType, success, nil); err != nil {
		a.Logger.Warn().Err(err).Str("event", eventType).Msg("record usage event failed")
	}
}
