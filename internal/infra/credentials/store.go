package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ytthumbs/internal/domain"
	"ytthumbs/internal/infra"
	"ytthumbs/internal/sqlinline"
)

// Providers whose keys may be stored in integration_tokens.
const (
	ProviderFreepik    = "freepik"
	ProviderGemini     = "gemini"
	ProviderCloudinary = "cloudinary"
)

// Known reports whether provider is one the pipeline consumes.
func Known(provider string) bool {
	switch provider {
	case ProviderFreepik, ProviderGemini, ProviderCloudinary:
		return true
	}
	return false
}

// Store reads and writes provider keys. An absent row is reported as an
// empty token, not an error.
type Store struct {
	sql infra.SQLExecutor
}

var _ domain.CredentialSource = (*Store)(nil)

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	var token string
	if err := s.sql.QueryRow(ctx, sqlinline.QSelectProviderKey, provider).Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("credentials: load %s: %w", provider, err)
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetToken(ctx context.Context, provider, token string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !Known(provider) {
		return fmt.Errorf("credentials: unsupported provider %q", provider)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("credentials: %s token is required", provider)
	}
	raw, err := json.Marshal(map[string]any{"source": "apikey"})
	if err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertProviderKey, provider, token, raw); err != nil {
		return fmt.Errorf("credentials: store %s: %w", provider, err)
	}
	return nil
}

// Resolve prefers the environment value and falls back to the store.
func Resolve(ctx context.Context, src domain.CredentialSource, provider, envValue string) (string, error) {
	if v := strings.TrimSpace(envValue); v != "" {
		return v, nil
	}
	if src == nil {
		return "", nil
	}
	return src.Token(ctx, provider)
}
