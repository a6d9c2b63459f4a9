package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"chainpost/internal/domain"
	"chainpost/internal/infra"
	"chainpost/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository on PostgreSQL.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a new user repository.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

// UpsertByGoogleSub inserts or refreshes the account identified by the Google
// subject and returns the persisted record.
func (r *UserRepositoryPG) UpsertByGoogleSub(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QUpsertGoogleUser,
		user.GoogleSub, user.Email, user.Name, user.Picture, user.Locale)
	var (
		id       string
		plan     string
		propsRaw []byte
	)
	if err := row.Scan(&id, &plan, &propsRaw); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	stored := *user
	stored.ID = id
	stored.Plan = domain.UserPlan(plan)
	stored.QuotaDaily, stored.QuotaUsed = quotaFromProperties(propsRaw)
	return &stored, nil
}

// GetByID fetches a user by its identifier.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectUserByID, id)
	var (
		user     domain.User
		name     *string
		avatar   *string
		locale   *string
		propsRaw []byte
	)
	if err := row.Scan(&user.ID, &user.GoogleSub, &user.Email, &name, &avatar, &locale, &user.Plan, &propsRaw, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	user.Name = deref(name)
	user.Picture = deref(avatar)
	user.Locale = deref(locale)
	user.QuotaDaily, user.QuotaUsed = quotaFromProperties(propsRaw)
	return &user, nil
}

// ConsumeQuota atomically spends amount of today's quota and returns what is
// left. domain.ErrQuotaExceeded is returned when the budget would go negative.
func (r *UserRepositoryPG) ConsumeQuota(ctx context.Context, userID string, amount int) (int, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QConsumeUserQuota, userID, amount)
	var remaining int
	if err := row.Scan(&remaining); err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrQuotaExceeded
		}
		return 0, err
	}
	return remaining, nil
}

func quotaFromProperties(raw []byte) (daily, used int) {
	daily = 5
	props := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &props)
	}
	if v, ok := props["quota_daily"].(float64); ok {
		daily = int(v)
	}
	if v, ok := props["quota_used_today"].(float64); ok {
		used = int(v)
	}
	return daily, used
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
