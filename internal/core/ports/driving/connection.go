package driving

import (
	"context"

	"github.com/custodia-labs/sociallink/internal/core/domain"
	"github.com/custodia-labs/sociallink/internal/core/ports/driven"
)

// ConnectionManager aggregates every platform adapter behind one interface.
type ConnectionManager interface {
	// GetService returns the adapter for platform.
	GetService(platform domain.Platform) (driven.PlatformService, error)

	// AuthenticatePlatform starts the OAuth flow for platform.
	AuthenticatePlatform(ctx context.Context, platform domain.Platform) domain.Response[*domain.OAuthToken]

	// HandleAuthCallback completes the OAuth flow for platform.
	HandleAuthCallback(ctx context.Context, platform domain.Platform, code, state string) domain.Response[*domain.OAuthToken]

	// DisconnectPlatform clears credentials for platform.
	DisconnectPlatform(ctx context.Context, platform domain.Platform) domain.Response[bool]

	// GetAllConnectionStatuses probes every platform. It never fails;
	// problems are reported inside each status.
	GetAllConnectionStatuses(ctx context.Context) []domain.ConnectionStatus

	// GetConnectionStatus probes a single platform.
	GetConnectionStatus(ctx context.Context, platform domain.Platform) domain.ConnectionStatus

	// SyncAllPlatforms fetches profile and content for every locally
	// connected platform. Per-platform failures are reported as
	// PARTIAL_SYNC_FAILED alongside the data that succeeded.
	SyncAllPlatforms(ctx context.Context) domain.Response[domain.SyncResult]

	// RefreshAllTokens refreshes the token of every platform.
	RefreshAllTokens(ctx context.Context) domain.RefreshResults

	// GetConnectedPlatforms lists locally connected platforms.
	GetConnectedPlatforms(ctx context.Context) []domain.Platform

	// GetConnectedCount counts locally connected platforms.
	GetConnectedCount(ctx context.Context) int

	// HasAnyConnections reports whether any platform is locally connected.
	HasAnyConnections(ctx context.Context) bool
}
