package driven

import (
	"context"
	"encoding/json"
	"time"

	"github.com/custodia-labs/sociallink/internal/core/domain"
)

// CredentialStore persists OAuth tokens and cached vendor payloads per platform.
// It is the single source of truth for credentials: adapters re-read it on
// every operation and never hold tokens in memory.
type CredentialStore interface {
	// StoreToken writes the access token, the refresh token if present and
	// the expiry if the token reports ExpiresIn.
	StoreToken(ctx context.Context, platform domain.Platform, token *domain.OAuthToken) error

	// GetStoredToken reconstructs the stored token.
	// Returns nil if no access token is stored.
	GetStoredToken(ctx context.Context, platform domain.Platform) (*domain.OAuthToken, error)

	// RemoveStoredTokens clears tokens, expiry, cached user data, sync time
	// and pending state for the platform.
	RemoveStoredTokens(ctx context.Context, platform domain.Platform) error

	// StoreUserData caches the raw vendor profile payload.
	StoreUserData(ctx context.Context, platform domain.Platform, payload json.RawMessage) error

	// GetStoredUserData returns the cached payload, or nil if none.
	GetStoredUserData(ctx context.Context, platform domain.Platform) (json.RawMessage, error)

	// StoreLastSync records when the platform last synced successfully.
	StoreLastSync(ctx context.Context, platform domain.Platform, at time.Time) error

	// GetLastSync returns the last successful sync time, or nil if never synced.
	GetLastSync(ctx context.Context, platform domain.Platform) (*time.Time, error)

	// StorePendingState remembers the OAuth state issued for an authorization.
	StorePendingState(ctx context.Context, platform domain.Platform, state string) error

	// GetPendingState returns the pending state without clearing it.
	// Returns "" if no authorization is pending.
	GetPendingState(ctx context.Context, platform domain.Platform) (string, error)

	// ClearPendingState removes the pending state once a callback matched it.
	ClearPendingState(ctx context.Context, platform domain.Platform) error

	// Now returns the store's clock reading, used for expiry decisions.
	Now() time.Time
}
