package driven

import (
	"context"

	"github.com/custodia-labs/sociallink/internal/core/domain"
)

// PlatformService wraps one vendor's OAuth and REST surface.
// Every operation converts its own failures into a failed Response;
// nothing returns a raw error.
type PlatformService interface {
	// Platform returns the platform this service serves.
	Platform() domain.Platform

	// Authenticate opens the vendor authorization URL and returns a
	// placeholder token whose AccessToken is domain.PendingCallbackToken.
	Authenticate(ctx context.Context) domain.Response[*domain.OAuthToken]

	// HandleAuthCallback exchanges the authorization code and stores the token.
	HandleAuthCallback(ctx context.Context, code, state string) domain.Response[*domain.OAuthToken]

	// GetUserProfile fetches the connected profile and caches the raw payload.
	GetUserProfile(ctx context.Context) domain.Response[*domain.PlatformUser]

	// GetContent fetches up to limit content items.
	GetContent(ctx context.Context, limit int) domain.Response[[]domain.ContentItem]

	// RefreshToken obtains a new access token and stores it.
	RefreshToken(ctx context.Context, refreshToken string) domain.Response[*domain.OAuthToken]

	// Disconnect clears stored credentials. Vendor revocation is best effort.
	Disconnect(ctx context.Context) domain.Response[bool]

	// IsConnected reports whether an unexpired token is stored.
	// It does not contact the vendor.
	IsConnected(ctx context.Context) bool

	// GetCachedUserData returns the cached profile, or nil if none.
	GetCachedUserData(ctx context.Context) *domain.PlatformUser
}
