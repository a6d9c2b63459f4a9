package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chainpost/internal/domain"
	"chainpost/internal/processing"
	"chainpost/pkg/zip"

	"github.com/go-chi/chi/v5"
)

type createProjectForm struct {
	Tool       string   `validate:"required,oneof=video_compress video_caption post_generate image_resize"`
	Width      int      `validate:"omitempty,min=16,max=4096"`
	Height     int      `validate:"omitempty,min=16,max=4096"`
	Platforms  []string `validate:"dive,oneof=x instagram linkedin tiktok all"`
	ChainPosts bool
	Locale     string `validate:"omitempty,bcp47_language_tag"`
}

type projectDTO struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	SourceKey string    `json:"source_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CompressedURL string            `json:"compressed_url,omitempty"`
	CaptionText   string            `json:"caption_text,omitempty"`
	CaptionSRT    string            `json:"caption_srt,omitempty"`
	Posts         map[string]string `json:"posts,omitempty"`
	ResizedURL    string            `json:"resized_url,omitempty"`

	ErrorMessage string `json:"error,omitempty"`
}

func toProjectDTO(p *domain.Project) projectDTO {
	return projectDTO{
		ID:            p.ID,
		Type:          string(p.Type),
		Status:        string(p.Status),
		SourceKey:     p.SourceKey,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		CompressedURL: p.CompressedURL,
		CaptionText:   p.CaptionText,
		CaptionSRT:    p.CaptionSRT,
		Posts:         p.Posts,
		ResizedURL:    p.ResizedURL,
		ErrorMessage:  p.ErrorMessage,
	}
}

// ProjectsCreate accepts a multipart submission with the media file under the
// "media" field and tool options as form values.
func (a *App) ProjectsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload())
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}

	form := createProjectForm{
		Tool:       r.FormValue("tool"),
		Width:      atoiDefault(r.FormValue("width")),
		Height:     atoiDefault(r.FormValue("height")),
		Platforms:  splitPlatforms(r.FormValue("platforms")),
		ChainPosts: r.FormValue("chain_posts") == "true",
		Locale:     r.FormValue("locale"),
	}
	if err := a.validate().Struct(form); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid project options")
		return
	}

	file, header, err := r.FormFile("media")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "media file required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read media file")
		return
	}

	input := processing.StartJobInput{
		UserID:      userID,
		Type:        domain.ProjectType(form.Tool),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Width:       form.Width,
		Height:      form.Height,
		Platforms:   form.Platforms,
		ChainPosts:  form.ChainPosts,
		Locale:      form.Locale,
	}
	// Validate the whole submission first so a rejected request never costs
	// the user a quota unit.
	if err := processing.ValidateStartJob(&input); err != nil {
		a.domainError(w, err)
		return
	}

	if _, err := a.Users.ConsumeQuota(r.Context(), userID, 1); err != nil {
		a.domainError(w, err)
		return
	}

	project, err := a.Jobs.StartJob(r.Context(), input)
	if err != nil {
		a.recordUsage(r.Context(), userID, "", form.Tool, false)
		a.domainError(w, err)
		return
	}
	a.recordUsage(r.Context(), userID, project.ID, form.Tool, true)

	code := http.StatusCreated
	if project.Status == domain.ProjectStatusProcessing {
		code = http.StatusAccepted
	}
	a.json(w, code, toProjectDTO(project))
}

func (a *App) ProjectGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	project, err := a.Projects.GetByID(r.Context(), id, userID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, toProjectDTO(project))
}

func (a *App) ProjectsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	projects, err := a.Projects.ListByUser(r.Context(), userID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	items := make([]projectDTO, 0, len(projects))
	for i := range projects {
		items = append(items, toProjectDTO(&projects[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"projects": items})
}

// ProjectArchive bundles a completed project's text artifacts into a zip.
func (a *App) ProjectArchive(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	project, err := a.Projects.GetByID(r.Context(), id, userID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if project.Status != domain.ProjectStatusCompleted {
		a.error(w, http.StatusConflict, "not_ready", "project has no completed artifacts")
		return
	}

	data, err := zip.ArchiveAssets(archiveAssets(project))
	if err != nil {
		a.Logger.Error().Err(err).Str("project_id", project.ID).Msg("archive build failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "chainpost-"+project.ID+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func archiveAssets(p *domain.Project) []zip.Asset {
	assets := []zip.Asset{{Filename: "project.json", Data: marshalProjectManifest(p)}}
	if p.CaptionText != "" {
		assets = append(assets, zip.Asset{Filename: "caption.txt", Data: []byte(p.CaptionText)})
	}
	if p.CaptionSRT != "" {
		assets = append(assets, zip.Asset{Filename: "caption.srt", Data: []byte(p.CaptionSRT)})
	}
	for platform, text := range p.Posts {
		assets = append(assets, zip.Asset{Filename: "posts/" + platform + ".txt", Data: []byte(text)})
	}
	return assets
}

func marshalProjectManifest(p *domain.Project) []byte {
	manifest := map[string]any{
		"id":         p.ID,
		"type":       p.Type,
		"status":     p.Status,
		"created_at": p.CreatedAt,
	}
	if p.CompressedURL != "" {
		manifest["compressed_url"] = p.CompressedURL
	}
	if p.ResizedURL != "" {
		manifest["resized_url"] = p.ResizedURL
	}
	data, _ := json.MarshalIndent(manifest, "", "  ")
	return data
}

func atoiDefault(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func splitPlatforms(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
