package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chainpost/internal/domain"
	"chainpost/internal/infra/google"
	"chainpost/internal/middleware"
)

func TestAuthGoogleVerify(t *testing.T) {
	users := &fakeUsers{user: &domain.User{
		ID:         "user-1",
		GoogleSub:  "sub-9",
		Email:      "maker@example.com",
		Plan:       domain.UserPlanFree,
		Locale:     "id",
		QuotaDaily: 5,
	}}
	app := &App{
		Logger:    discardLogger(),
		JWTSecret: "secret",
		GoogleVerifier: &fakeVerifier{claims: &google.IDTokenClaims{
			Sub:    "sub-9",
			Email:  "maker@example.com",
			Locale: "id",
		}},
		Users: users,
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/google", strings.NewReader(`{"id_token":"tok"}`))
	rec := httptest.NewRecorder()
	app.AuthGoogleVerify(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("response missing token")
	}
	claims, err := middleware.VerifyJWT("secret", token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Sub != "user-1" || claims.Plan != "free" {
		t.Fatalf("claims = %+v", claims)
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "maker@example.com" {
		t.Fatalf("user = %v", user)
	}
}

func TestAuthGoogleVerifyRejectsBadToken(t *testing.T) {
	app := &App{
		Logger:         discardLogger(),
		GoogleVerifier: &fakeVerifier{err: assertErr("bad token")},
		Users:          &fakeUsers{},
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/google", strings.NewReader(`{"id_token":"tok"}`))
	rec := httptest.NewRecorder()
	app.AuthGoogleVerify(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthGoogleVerifyRequiresIDToken(t *testing.T) {
	app := &App{Logger: discardLogger()}
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/google", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	app.AuthGoogleVerify(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMe(t *testing.T) {
	users := &fakeUsers{user: &domain.User{ID: "user-1", Email: "maker@example.com", Plan: domain.UserPlanPro}}
	app := &App{Logger: discardLogger(), Users: users}

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	app.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeJSON(t, rec)
	if body["plan"] != "pro" {
		t.Fatalf("plan = %v", body["plan"])
	}

	rec = httptest.NewRecorder()
	app.Me(rec, httptest.NewRequest(http.MethodGet, "/v1/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
