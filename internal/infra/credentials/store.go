package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"chainpost/internal/infra"
	"chainpost/internal/sqlinline"
)

// Provider names for integration tokens stored in the database. Tokens set
// here take precedence over environment configuration so keys can be rotated
// without a redeploy.
const (
	ProviderGemini     = "gemini"
	ProviderTranscribe = "transcribe"
	ProviderQueue      = "queue"
)

var knownProviders = map[string]struct{}{
	ProviderGemini:     {},
	ProviderTranscribe: {},
	ProviderQueue:      {},
}

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

func (s *Store) TranscribeAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderTranscribe)
}

func (s *Store) QueueToken(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderQueue)
}

// Token returns the stored token for a provider, or "" when none is set.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetToken stores or replaces the token for a known provider.
func (s *Store) SetToken(ctx context.Context, provider, token string) error {
	if _, ok := knownProviders[provider]; !ok {
		return errors.New("unknown provider " + provider)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New(provider + " token is required")
	}
	return s.upsert(ctx, provider, token, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
