package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"chainpost/internal/domain"
	"chainpost/internal/middleware"
)

type googleVerifyRequest struct {
	IDToken string `json:"id_token"`
}

type googleVerifyResponse struct {
	Token string         `json:"token"`
	User  userProfileDTO `json:"user"`
}

type userProfileDTO struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	Plan       string `json:"plan"`
	Locale     string `json:"locale"`
	QuotaDaily int    `json:"quota_daily"`
	QuotaUsed  int    `json:"quota_used_today"`
}

func profileDTO(u *domain.User) userProfileDTO {
	return userProfileDTO{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Plan:       string(u.Plan),
		Locale:     u.Locale,
		QuotaDaily: u.QuotaDaily,
		QuotaUsed:  u.QuotaUsed,
	}
}

func (a *App) AuthGoogleVerify(w http.ResponseWriter, r *http.Request) {
	var req googleVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.IDToken == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id_token required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	claims, err := a.GoogleVerifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		a.Logger.Error().Err(err).Msg("google verify failed")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid google token")
		return
	}
	locale := claims.Locale
	if locale == "" {
		locale = "en"
	}
	user, err := a.Users.UpsertByGoogleSub(r.Context(), &domain.User{
		GoogleSub: claims.Sub,
		Email:     claims.Email,
		Name:      claims.Name,
		Picture:   claims.Picture,
		Locale:    locale,
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("upsert user failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist user")
		return
	}
	token, err := middleware.SignJWT(a.JWTSecret, middleware.NewTokenClaims(user.ID, string(user.Plan), user.Locale, time.Now()))
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusOK, googleVerifyResponse{Token: token, User: profileDTO(user)})
}

func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, profileDTO(user))
}
