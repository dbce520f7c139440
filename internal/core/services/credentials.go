package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/sociallink/internal/core/domain"
	"github.com/custodia-labs/sociallink/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// Key suffixes for platform-scoped storage.
//
//nolint:gosec // G101: These are key names, not actual credentials.
const (
	SuffixAccessToken  = "access_token"
	SuffixRefreshToken = "refresh_token"
	SuffixExpiresAt    = "expires_at"
	SuffixUserData     = "user_data"
	SuffixLastSync     = "last_sync"
	SuffixOAuthState   = "oauth_state"
)

// StorageKey derives the storage key for a platform field.
func StorageKey(platform domain.Platform, suffix string) string {
	return string(platform) + "_" + suffix
}

// CredentialStore persists tokens and cached vendor payloads in a key-value store.
// Each token field is stored under its own key; there is no caching layer.
type CredentialStore struct {
	kv     driven.KeyValueStore
	now    func() time.Time
	logger *zap.Logger
}

// CredentialStoreOption configures a CredentialStore.
type CredentialStoreOption func(*CredentialStore)

// WithClock overrides the clock used for expiry and sync timestamps.
func WithClock(now func() time.Time) CredentialStoreOption {
	return func(s *CredentialStore) {
		s.now = now
	}
}

// WithCredentialLogger sets the logger.
func WithCredentialLogger(l *zap.Logger) CredentialStoreOption {
	return func(s *CredentialStore) {
		s.logger = l.Named("credentials")
	}
}

// NewCredentialStore creates a credential store over kv.
func NewCredentialStore(kv driven.KeyValueStore, opts ...CredentialStoreOption) *CredentialStore {
	s := &CredentialStore{
		kv:     kv,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's clock reading.
func (s *CredentialStore) Now() time.Time {
	return s.now()
}

// StoreToken writes the access token, the refresh token if present and
// expires_at if the token carries ExpiresIn. A token without ExpiresIn
// clears any expiry left by a previous token.
func (s *CredentialStore) StoreToken(ctx context.Context, platform domain.Platform, token *domain.OAuthToken) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("storing %s token: %w", platform, domain.ErrInvalidInput)
	}
	if token.IsPending() {
		return fmt.Errorf("storing %s token: placeholder token is not a credential: %w", platform, domain.ErrInvalidInput)
	}

	if err := s.kv.Set(ctx, StorageKey(platform, SuffixAccessToken), token.AccessToken); err != nil {
		return fmt.Errorf("storing %s access token: %w", platform, err)
	}

	if token.RefreshToken != "" {
		if err := s.kv.Set(ctx, StorageKey(platform, SuffixRefreshToken), token.RefreshToken); err != nil {
			return fmt.Errorf("storing %s refresh token: %w", platform, err)
		}
	}

	if token.ExpiresIn > 0 {
		expiresAt := s.now().Add(time.Duration(token.ExpiresIn) * time.Second)
		token.ExpiresAt = expiresAt
		value := strconv.FormatInt(expiresAt.UnixMilli(), 10)
		if err := s.kv.Set(ctx, StorageKey(platform, SuffixExpiresAt), value); err != nil {
			return fmt.Errorf("storing %s expiry: %w", platform, err)
		}
	} else if err := s.kv.MultiRemove(ctx, StorageKey(platform, SuffixExpiresAt)); err != nil {
		return fmt.Errorf("clearing %s expiry: %w", platform, err)
	}

	s.logger.Debug("stored token",
		zap.String("platform", string(platform)),
		zap.Bool("has_refresh", token.RefreshToken != ""),
		zap.Int64("expires_in", token.ExpiresIn))
	return nil
}

// GetStoredToken reconstructs the token from its stored fields.
// Returns nil if no access token is stored, even when other fields are.
func (s *CredentialStore) GetStoredToken(ctx context.Context, platform domain.Platform) (*domain.OAuthToken, error) {
	access, ok, err := s.kv.Get(ctx, StorageKey(platform, SuffixAccessToken))
	if err != nil {
		return nil, fmt.Errorf("reading %s access token: %w", platform, err)
	}
	if !ok || access == "" {
		return nil, nil
	}

	token := &domain.OAuthToken{
		AccessToken: access,
		TokenType:   domain.DefaultTokenType,
	}

	refresh, ok, err := s.kv.Get(ctx, StorageKey(platform, SuffixRefreshToken))
	if err != nil {
		return nil, fmt.Errorf("reading %s refresh token: %w", platform, err)
	}
	if ok {
		token.RefreshToken = refresh
	}

	expiry, ok, err := s.kv.Get(ctx, StorageKey(platform, SuffixExpiresAt))
	if err != nil {
		return nil, fmt.Errorf("reading %s expiry: %w", platform, err)
	}
	if ok && expiry != "" {
		ms, err := strconv.ParseInt(expiry, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s expiry %q: %w", platform, expiry, err)
		}
		token.ExpiresAt = time.UnixMilli(ms)
	}

	return token, nil
}

// RemoveStoredTokens clears every key held for the platform in one call.
func (s *CredentialStore) RemoveStoredTokens(ctx context.Context, platform domain.Platform) error {
	keys := []string{
		StorageKey(platform, SuffixAccessToken),
		StorageKey(platform, SuffixRefreshToken),
		StorageKey(platform, SuffixExpiresAt),
		StorageKey(platform, SuffixUserData),
		StorageKey(platform, SuffixLastSync),
		StorageKey(platform, SuffixOAuthState),
	}
	if err := s.kv.MultiRemove(ctx, keys...); err != nil {
		return fmt.Errorf("removing %s credentials: %w", platform, err)
	}
	s.logger.Debug("removed credentials", zap.String("platform", string(platform)))
	return nil
}

// StoreUserData caches the raw profile payload.
func (s *CredentialStore) StoreUserData(ctx context.Context, platform domain.Platform, payload json.RawMessage) error {
	if err := s.kv.Set(ctx, StorageKey(platform, SuffixUserData), string(payload)); err != nil {
		return fmt.Errorf("storing %s user data: %w", platform, err)
	}
	return nil
}

// GetStoredUserData returns the cached payload, or nil if none.
func (s *CredentialStore) GetStoredUserData(ctx context.Context, platform domain.Platform) (json.RawMessage, error) {
	v, ok, err := s.kv.Get(ctx, StorageKey(platform, SuffixUserData))
	if err != nil {
		return nil, fmt.Errorf("reading %s user data: %w", platform, err)
	}
	if !ok || v == "" {
		return nil, nil
	}
	return json.RawMessage(v), nil
}

// StoreLastSync records the last successful sync time.
func (s *CredentialStore) StoreLastSync(ctx context.Context, platform domain.Platform, at time.Time) error {
	value := strconv.FormatInt(at.UnixMilli(), 10)
	if err := s.kv.Set(ctx, StorageKey(platform, SuffixLastSync), value); err != nil {
		return fmt.Errorf("storing %s last sync: %w", platform, err)
	}
	return nil
}

// GetLastSync returns the last successful sync time, or nil if never synced.
func (s *CredentialStore) GetLastSync(ctx context.Context, platform domain.Platform) (*time.Time, error) {
	v, ok, err := s.kv.Get(ctx, StorageKey(platform, SuffixLastSync))
	if err != nil {
		return nil, fmt.Errorf("reading %s last sync: %w", platform, err)
	}
	if !ok || v == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing %s last sync %q: %w", platform, v, err)
	}
	at := time.UnixMilli(ms)
	return &at, nil
}

// StorePendingState remembers the state issued with an authorization URL.
func (s *CredentialStore) StorePendingState(ctx context.Context, platform domain.Platform, state string) error {
	if err := s.kv.Set(ctx, StorageKey(platform, SuffixOAuthState), state); err != nil {
		return fmt.Errorf("storing %s oauth state: %w", platform, err)
	}
	return nil
}

// GetPendingState returns the pending state, or "" if none is pending.
// The state stays in place until ClearPendingState.
func (s *CredentialStore) GetPendingState(ctx context.Context, platform domain.Platform) (string, error) {
	v, ok, err := s.kv.Get(ctx, StorageKey(platform, SuffixOAuthState))
	if err != nil {
		return "", fmt.Errorf("reading %s oauth state: %w", platform, err)
	}
	if !ok {
		return "", nil
	}
	return v, nil
}

// ClearPendingState removes the pending state.
func (s *CredentialStore) ClearPendingState(ctx context.Context, platform domain.Platform) error {
	if err := s.kv.MultiRemove(ctx, StorageKey(platform, SuffixOAuthState)); err != nil {
		return fmt.Errorf("clearing %s oauth state: %w", platform, err)
	}
	return nil
}
