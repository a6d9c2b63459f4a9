package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"chainpost/internal/domain"
	"chainpost/internal/infra"
	"chainpost/internal/sqlinline"
)

// ProjectRepositoryPG implements domain.ProjectRepository on PostgreSQL.
type ProjectRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(sql infra.SQLExecutor) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{sql: sql}
}

// Create inserts a new project record.
func (r *ProjectRepositoryPG) Create(ctx context.Context, project *domain.Project) error {
	posts, err := marshalPosts(project.Posts)
	if err != nil {
		return err
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertProject,
		project.ID,
		project.UserID,
		project.Type,
		project.Status,
		project.SourceKey,
		nullableString(project.CompressedURL),
		nullableString(project.CaptionText),
		nullableString(project.CaptionSRT),
		posts,
		nullableString(project.ResizedURL),
		project.Width,
		project.Height,
		project.Platforms,
		project.ChainPosts,
		nullableString(project.Locale),
		nullableString(project.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetByID fetches a project scoped to its owning user.
func (r *ProjectRepositoryPG) GetByID(ctx context.Context, id, userID string) (*domain.Project, error) {
	return r.scanOne(r.sql.QueryRow(ctx, sqlinline.QSelectProjectForUser, id, userID))
}

// GetAny fetches a project without an owner scope.
func (r *ProjectRepositoryPG) GetAny(ctx context.Context, id string) (*domain.Project, error) {
	return r.scanOne(r.sql.QueryRow(ctx, sqlinline.QSelectProjectAny, id))
}

// ListByUser returns the caller's projects, most recent first.
func (r *ProjectRepositoryPG) ListByUser(ctx context.Context, userID string) ([]domain.Project, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListProjectsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *project)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return projects, nil
}

// CompleteProcessing applies the update only while the project is still
// processing. The condition lives in the statement itself so duplicate
// callbacks racing each other cannot both win.
func (r *ProjectRepositoryPG) CompleteProcessing(ctx context.Context, id string, update domain.ProjectUpdate) error {
	posts, err := marshalPosts(update.Posts)
	if err != nil {
		return err
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteProcessing,
		id,
		update.Status,
		update.CompressedURL,
		update.CaptionText,
		update.CaptionSRT,
		posts,
		update.ResizedURL,
		update.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("complete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, id)
	}
	return nil
}

// CompleteProcessingAndChain flips the status and records the outbox intent in
// one statement.
func (r *ProjectRepositoryPG) CompleteProcessingAndChain(ctx context.Context, id string, update domain.ProjectUpdate, kind domain.OutboxKind, chainPayload []byte) error {
	posts, err := marshalPosts(update.Posts)
	if err != nil {
		return err
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteProcessingAndChain,
		id,
		update.Status,
		update.CompressedURL,
		update.CaptionText,
		update.CaptionSRT,
		posts,
		update.ResizedURL,
		update.ErrorMessage,
		kind,
		chainPayload,
	)
	if err != nil {
		return fmt.Errorf("complete project with chain: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, id)
	}
	return nil
}

// ExpireStale fails processing projects whose last update predates cutoff.
func (r *ProjectRepositoryPG) ExpireStale(ctx context.Context, cutoff time.Time, reason string) ([]string, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QExpireStaleProjects, cutoff, reason)
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

// missReason distinguishes a vanished project from one already terminal.
func (r *ProjectRepositoryPG) missReason(ctx context.Context, id string) error {
	var exists bool
	if err := r.sql.QueryRow(ctx, sqlinline.QProjectExists, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func (r *ProjectRepositoryPG) scanOne(row pgx.Row) (*domain.Project, error) {
	project, err := scanProject(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return project, nil
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var (
		project       domain.Project
		compressedURL *string
		captionText   *string
		captionSRT    *string
		postsRaw      []byte
		resizedURL    *string
		locale        *string
		errorMessage  *string
	)
	if err := row.Scan(
		&project.ID,
		&project.UserID,
		&project.Type,
		&project.Status,
		&project.SourceKey,
		&compressedURL,
		&captionText,
		&captionSRT,
		&postsRaw,
		&resizedURL,
		&project.Width,
		&project.Height,
		&project.Platforms,
		&project.ChainPosts,
		&locale,
		&errorMessage,
		&project.CreatedAt,
		&project.UpdatedAt,
	); err != nil {
		return nil, err
	}
	project.CompressedURL = deref(compressedURL)
	project.CaptionText = deref(captionText)
	project.CaptionSRT = deref(captionSRT)
	project.ResizedURL = deref(resizedURL)
	project.Locale = deref(locale)
	project.ErrorMessage = deref(errorMessage)
	if len(postsRaw) > 0 {
		if err := json.Unmarshal(postsRaw, &project.Posts); err != nil {
			return nil, fmt.Errorf("decode posts: %w", err)
		}
	}
	return &project, nil
}

func marshalPosts(posts map[string]string) ([]byte, error) {
	if len(posts) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(posts)
	if err != nil {
		return nil, fmt.Errorf("encode posts: %w", err)
	}
	return raw, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ domain.ProjectRepository = (*ProjectRepositoryPG)(nil)
