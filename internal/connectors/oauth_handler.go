package connectors

import (
	"context"

	"github.com/custodia-labs/sociallink/internal/core/domain"
)

// OAuthHandler provides OAuth operations for a platform.
// Each handler encapsulates the vendor's OAuth quirks (TikTok's client_key,
// Spotify's basic-auth refresh, Graph API token exchange).
type OAuthHandler interface {
	// BuildAuthURL constructs the authorization URL for state.
	BuildAuthURL(state string) string

	// ExchangeCode exchanges an authorization code for a token.
	ExchangeCode(ctx context.Context, code string) domain.Response[*domain.OAuthToken]

	// RefreshToken obtains a new token. current carries the stored token with
	// RefreshToken set to the credential the caller supplied, if any.
	RefreshToken(ctx context.Context, current *domain.OAuthToken) domain.Response[*domain.OAuthToken]

	// Revoke invalidates accessToken at the vendor. Handlers for vendors
	// without a revocation endpoint return nil.
	Revoke(ctx context.Context, accessToken string) error
}

// ProfileParser converts a raw vendor profile payload to a PlatformUser.
type ProfileParser func(raw []byte) (*domain.PlatformUser, error)
