// Package processing drives each project through its lifecycle: one external
// capability per stage, results recorded through conditional updates so
// duplicate deliveries from the at-least-once queue stay no-ops.
package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"chainpost/internal/captions"
	"chainpost/internal/domain"
	"chainpost/internal/infra"
	"chainpost/internal/providers/postgen"
	"chainpost/internal/providers/transcribe"
)

// ObjectStore is the subset of the object store client the orchestrator needs.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
	SourceURL(key string) string
	ResizedURL(key string, width, height int) string
	CompressedURL(key string) string
}

// Transcriber submits speech-to-text work that resolves via callback.
type Transcriber interface {
	Submit(ctx context.Context, req transcribe.SubmitRequest) (*transcribe.SubmitAck, error)
}

// PostGenerator produces platform-tailored posts from a transcript.
type PostGenerator interface {
	Generate(ctx context.Context, req postgen.GenerateRequest) (map[string]string, error)
}

// Orchestrator coordinates uploads, external dispatch, persistence and the
// chained fan-out between stages.
type Orchestrator struct {
	projects      domain.ProjectRepository
	store         ObjectStore
	transcriber   Transcriber
	posts         PostGenerator
	callbackURL   string
	webhookSecret string
	logger        infra.Logger
}

// NewOrchestrator wires the orchestrator. callbackBaseURL is this service's
// public base; callback endpoints are derived from it. webhookSecret is handed
// to external services so their callback deliveries arrive signed.
func NewOrchestrator(projects domain.ProjectRepository, store ObjectStore, transcriber Transcriber, posts PostGenerator, callbackBaseURL, webhookSecret string, logger infra.Logger) *Orchestrator {
	return &Orchestrator{
		projects:      projects,
		store:         store,
		transcriber:   transcriber,
		posts:         posts,
		callbackURL:   strings.TrimRight(callbackBaseURL, "/"),
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// StartJobInput is the validated submission for one project.
type StartJobInput struct {
	UserID      string
	Type        domain.ProjectType
	FileName    string
	ContentType string
	Data        []byte

	Width      int
	Height     int
	Platforms  []string
	ChainPosts bool
	Locale     string
}

// StartJob creates a project and kicks off its first stage. Synchronous types
// return completed with artifact URLs; asynchronous types return the project
// in processing state and resolve via callback. The upload happens before any
// row is written, so a failed upload never leaves an orphan processing record.
func (o *Orchestrator) StartJob(ctx context.Context, in StartJobInput) (*domain.Project, error) {
	if err := ValidateStartJob(&in); err != nil {
		return nil, err
	}

	key := uploadKey(in.UserID, in.FileName)
	storedKey, err := o.store.Upload(ctx, key, in.ContentType, in.Data)
	if err != nil {
		return nil, err
	}

	project := &domain.Project{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		Type:       in.Type,
		Status:     domain.ProjectStatusProcessing,
		SourceKey:  storedKey,
		Width:      in.Width,
		Height:     in.Height,
		Platforms:  in.Platforms,
		ChainPosts: in.ChainPosts,
		Locale:     in.Locale,
	}

	switch in.Type {
	case domain.ProjectTypeVideoCompress:
		project.CompressedURL = o.store.CompressedURL(storedKey)
		project.Status = domain.ProjectStatusCompleted
	case domain.ProjectTypeImageResize:
		project.ResizedURL = o.store.ResizedURL(storedKey, in.Width, in.Height)
		project.Status = domain.ProjectStatusCompleted
	}

	if err := o.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("%w: persist project: %v", domain.ErrInternal, err)
	}
	if project.Status == domain.ProjectStatusCompleted {
		return project, nil
	}

	// Async stage: captioning feeds both video_caption and post_generate.
	_, err = o.transcriber.Submit(ctx, transcribe.SubmitRequest{
		MediaURL:      o.store.SourceURL(storedKey),
		CallbackURL:   o.callbackURL + "/v1/callbacks/caption",
		ProjectID:     project.ID,
		Language:      in.Locale,
		WebhookSecret: o.webhookSecret,
	})
	if err != nil {
		o.logger.Error().Err(err).Str("project_id", project.ID).Msg("orchestrator: transcription dispatch failed")
		reason := "transcription dispatch failed"
		if failErr := o.projects.CompleteProcessing(ctx, project.ID, domain.ProjectUpdate{
			Status:       domain.ProjectStatusFailed,
			ErrorMessage: &reason,
		}); failErr != nil {
			o.logger.Error().Err(failErr).Str("project_id", project.ID).Msg("orchestrator: failed to mark dispatch failure")
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return project, nil
}

// HandleCaptionCallback records a transcription outcome. Deliveries for
// projects no longer in processing state are acknowledged as no-ops.
func (o *Orchestrator) HandleCaptionCallback(ctx context.Context, res CaptionResult) error {
	if res.ProjectID == "" {
		return fmt.Errorf("%w: project id is required", domain.ErrInvalidInput)
	}
	project, err := o.projects.GetAny(ctx, res.ProjectID)
	if err != nil {
		return err
	}

	if res.Failed() {
		reason := res.ErrorCode
		return o.applyUpdate(ctx, project.ID, domain.ProjectUpdate{
			Status:       domain.ProjectStatusFailed,
			ErrorMessage: &reason,
		})
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		text = captions.PlainText(res.SRT)
	}
	if text == "" {
		reason := "transcription returned no text"
		return o.applyUpdate(ctx, project.ID, domain.ProjectUpdate{
			Status:       domain.ProjectStatusFailed,
			ErrorMessage: &reason,
		})
	}

	update := domain.ProjectUpdate{
		Status:      domain.ProjectStatusCompleted,
		CaptionText: &text,
	}
	if res.SRT != "" {
		update.CaptionSRT = &res.SRT
	}

	if !o.wantsChainedPosts(project) {
		return o.applyUpdate(ctx, project.ID, update)
	}
	return o.chainNextStage(ctx, project, update, text)
}

// chainNextStage persists the caption result and, in the same statement,
// records the outbox intent for post generation. The project stays in
// processing state until the chained callback resolves it.
func (o *Orchestrator) chainNextStage(ctx context.Context, project *domain.Project, update domain.ProjectUpdate, transcript string) error {
	update.Status = domain.ProjectStatusProcessing
	payload, err := json.Marshal(PostJobPayload{
		ProjectID:  project.ID,
		Transcript: transcript,
		Platforms:  project.Platforms,
		Locale:     project.Locale,
	})
	if err != nil {
		return fmt.Errorf("%w: encode chain payload: %v", domain.ErrInternal, err)
	}
	err = o.projects.CompleteProcessingAndChain(ctx, project.ID, update, domain.OutboxKindPostGenerate, payload)
	if errors.Is(err, domain.ErrConflict) {
		o.logger.Info().Str("project_id", project.ID).Msg("orchestrator: duplicate caption delivery ignored")
		return nil
	}
	return err
}

// HandlePostJob resolves a queue-delivered post-generation job: it invokes the
// language model and persists the result against the same project record.
func (o *Orchestrator) HandlePostJob(ctx context.Context, payload PostJobPayload) error {
	if payload.ProjectID == "" {
		return fmt.Errorf("%w: project id is required", domain.ErrInvalidInput)
	}
	project, err := o.projects.GetAny(ctx, payload.ProjectID)
	if err != nil {
		return err
	}
	if project.Status.Terminal() {
		// Duplicate delivery after resolution: skip the model call entirely.
		o.logger.Info().Str("project_id", project.ID).Msg("orchestrator: duplicate post delivery ignored")
		return nil
	}

	posts, err := o.posts.Generate(ctx, postgen.GenerateRequest{
		Transcript: payload.Transcript,
		Platforms:  payload.Platforms,
		Locale:     payload.Locale,
		ProjectID:  payload.ProjectID,
	})
	if err != nil {
		o.logger.Error().Err(err).Str("project_id", project.ID).Msg("orchestrator: post generation failed")
		reason := "post generation failed"
		return o.applyUpdate(ctx, project.ID, domain.ProjectUpdate{
			Status:       domain.ProjectStatusFailed,
			ErrorMessage: &reason,
		})
	}
	return o.applyUpdate(ctx, project.ID, domain.ProjectUpdate{
		Status: domain.ProjectStatusCompleted,
		Posts:  posts,
	})
}

// applyUpdate performs the conditional transition and swallows ErrConflict:
// a delivery that lost the race is acknowledged, never retried.
func (o *Orchestrator) applyUpdate(ctx context.Context, projectID string, update domain.ProjectUpdate) error {
	err := o.projects.CompleteProcessing(ctx, projectID, update)
	if errors.Is(err, domain.ErrConflict) {
		o.logger.Info().Str("project_id", projectID).Msg("orchestrator: delivery for settled project ignored")
		return nil
	}
	return err
}

func (o *Orchestrator) wantsChainedPosts(project *domain.Project) bool {
	return project.ChainPosts || project.Type == domain.ProjectTypePostGenerate
}

// ValidateStartJob checks a submission against its tool's requirements. It is
// exported so the HTTP layer can reject bad submissions before any quota is
// consumed; StartJob runs it again as its own guard.
func ValidateStartJob(in *StartJobInput) error {
	if in.UserID == "" {
		return domain.ErrUnauthorized
	}
	if !domain.ValidType(in.Type) {
		return fmt.Errorf("%w: unsupported project type %q", domain.ErrInvalidInput, in.Type)
	}
	if len(in.Data) == 0 {
		return fmt.Errorf("%w: file is required", domain.ErrInvalidInput)
	}
	class := mediaClass(in.ContentType, in.FileName)
	switch in.Type {
	case domain.ProjectTypeImageResize:
		if class != "image" {
			return fmt.Errorf("%w: image file required", domain.ErrInvalidInput)
		}
		if in.Width <= 0 || in.Height <= 0 {
			return fmt.Errorf("%w: width and height are required", domain.ErrInvalidInput)
		}
	default:
		if class != "video" {
			return fmt.Errorf("%w: video file required", domain.ErrInvalidInput)
		}
	}
	if in.Type == domain.ProjectTypePostGenerate || in.ChainPosts {
		in.Platforms = domain.NormalizePlatforms(in.Platforms)
		if len(in.Platforms) == 0 {
			return fmt.Errorf("%w: at least one platform is required", domain.ErrInvalidInput)
		}
	}
	return nil
}

// mediaClass classifies an upload as video or image. Clients that send a
// generic content type, curl uploads typically, fall back to the extension.
func mediaClass(contentType, fileName string) string {
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	}
	switch strings.ToLower(path.Ext(fileName)) {
	case ".mp4", ".mov", ".webm", ".mkv", ".avi":
		return "video"
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return "image"
	}
	return ""
}

func uploadKey(userID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("uploads/%s/%s%s", userID, uuid.NewString(), ext)
}
