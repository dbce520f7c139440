package connectors

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/sociallink/internal/adapters/driven/oauth"
	"github.com/custodia-labs/sociallink/internal/core/domain"
	"github.com/custodia-labs/sociallink/internal/core/ports/driven"
)

// revokeTimeout bounds the best-effort vendor revocation on disconnect.
const revokeTimeout = 10 * time.Second

// Base implements the platform operations that are identical across vendors:
// starting and completing the OAuth flow, refresh bookkeeping, disconnect,
// the local connectivity check and the cached profile.
// Platform packages embed it and add profile and content fetching.
type Base struct {
	platform domain.Platform
	creds    driven.CredentialStore
	opener   driven.URLOpener
	handler  OAuthHandler
	parse    ProfileParser
	logger   *zap.Logger
}

// NewBase creates the shared adapter core.
func NewBase(
	platform domain.Platform,
	creds driven.CredentialStore,
	opener driven.URLOpener,
	handler OAuthHandler,
	parse ProfileParser,
	logger *zap.Logger,
) *Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Base{
		platform: platform,
		creds:    creds,
		opener:   opener,
		handler:  handler,
		parse:    parse,
		logger:   logger.Named(string(platform)),
	}
}

// Platform returns the platform identifier.
func (b *Base) Platform() domain.Platform {
	return b.platform
}

// Logger returns the platform logger.
func (b *Base) Logger() *zap.Logger {
	return b.logger
}

// Authenticate issues a state, opens the authorization URL and returns the
// pending_callback placeholder. The flow completes in HandleAuthCallback.
func (b *Base) Authenticate(ctx context.Context) domain.Response[*domain.OAuthToken] {
	state := oauth.GenerateState()
	if err := b.creds.StorePendingState(ctx, b.platform, state); err != nil {
		return domain.Failf[*domain.OAuthToken](domain.CodeAuthError, "saving authorization state: %v", err)
	}

	authURL := b.handler.BuildAuthURL(state)
	b.logger.Debug("opening authorization URL", zap.String("url", authURL))

	if err := b.opener.Open(ctx, authURL); err != nil {
		return domain.Failf[*domain.OAuthToken](domain.CodeAuthError,
			"could not open %s authorization page: %v", b.platform.DisplayName(), err)
	}

	return domain.OK(&domain.OAuthToken{
		AccessToken: domain.PendingCallbackToken,
		TokenType:   domain.DefaultTokenType,
	})
}

// HandleAuthCallback validates state, exchanges code and stores the token.
// When no authorization is pending, for example after a manual code entry,
// the state is not checked. A mismatched state leaves the pending state in
// place so a retry is checked against it too.
func (b *Base) HandleAuthCallback(ctx context.Context, code, state string) domain.Response[*domain.OAuthToken] {
	if code == "" {
		return domain.Failf[*domain.OAuthToken](domain.CodeCallbackError, "authorization code is required")
	}

	pending, err := b.creds.GetPendingState(ctx, b.platform)
	if err != nil {
		return domain.Failf[*domain.OAuthToken](domain.CodeCallbackError, "reading authorization state: %v", err)
	}
	if pending != "" {
		if state != pending {
			b.logger.Warn("state mismatch on callback")
			return domain.Failf[*domain.OAuthToken](domain.CodeStateMismatch,
				"%s callback state does not match the pending authorization", b.platform.DisplayName())
		}
		if err := b.creds.ClearPendingState(ctx, b.platform); err != nil {
			return domain.Failf[*domain.OAuthToken](domain.CodeCallbackError, "clearing authorization state: %v", err)
		}
	}

	resp := b.handler.ExchangeCode(ctx, code)
	if !resp.Success {
		return resp
	}

	if err := b.creds.StoreToken(ctx, b.platform, resp.Data); err != nil {
		return domain.Failf[*domain.OAuthToken](domain.CodeCallbackError, "saving %s token: %v", b.platform.DisplayName(), err)
	}

	b.logger.Info("connected")
	return resp
}

// RefreshToken refreshes via the vendor handler and stores the result.
// An empty refreshToken falls back to the stored credentials. A response
// without a refresh token leaves the stored one in place.
func (b *Base) RefreshToken(ctx context.Context, refreshToken string) domain.Response[*domain.OAuthToken] {
	stored, err := b.creds.GetStoredToken(ctx, b.platform)
	if err != nil {
		return domain.Failf[*domain.OAuthToken](domain.CodeRefreshFailed, "reading stored token: %v", err)
	}

	current := &domain.OAuthToken{}
	if stored != nil {
		*current = *stored
	}
	if refreshToken != "" {
		current.RefreshToken = refreshToken
	}

	resp := b.handler.RefreshToken(ctx, current)
	if !resp.Success {
		if resp.Error != nil && resp.Error.Code != domain.CodeRefreshFailed {
			resp.Error.Code = domain.CodeRefreshFailed
		}
		b.logger.Warn("refresh failed", zap.Error(resp.Err()))
		return resp
	}

	if err := b.creds.StoreToken(ctx, b.platform, resp.Data); err != nil {
		return domain.Failf[*domain.OAuthToken](domain.CodeRefreshFailed, "saving refreshed token: %v", err)
	}
	return resp
}

// Disconnect revokes the token at the vendor when supported and clears storage.
// The revocation runs under revokeTimeout. Only a storage fault fails the
// operation.
func (b *Base) Disconnect(ctx context.Context) domain.Response[bool] {
	if token, err := b.creds.GetStoredToken(ctx, b.platform); err == nil && token != nil {
		rctx, cancel := context.WithTimeout(ctx, revokeTimeout)
		err := b.handler.Revoke(rctx, token.AccessToken)
		cancel()
		if err != nil {
			b.logger.Warn("vendor revocation failed", zap.Error(err))
		}
	}

	if err := b.creds.RemoveStoredTokens(ctx, b.platform); err != nil {
		return domain.Failf[bool](domain.CodeDisconnectError, "clearing %s credentials: %v", b.platform.DisplayName(), err)
	}

	b.logger.Info("disconnected")
	return domain.OK(true)
}

// IsConnected reports whether an unexpired token is stored.
func (b *Base) IsConnected(ctx context.Context) bool {
	token, err := b.creds.GetStoredToken(ctx, b.platform)
	if err != nil || token == nil {
		return false
	}
	return !oauth.IsTokenExpired(token, b.creds.Now())
}

// GetCachedUserData returns the profile cached by the last successful fetch.
func (b *Base) GetCachedUserData(ctx context.Context) *domain.PlatformUser {
	raw, err := b.creds.GetStoredUserData(ctx, b.platform)
	if err != nil || raw == nil {
		return nil
	}
	user, err := b.parse(raw)
	if err != nil {
		b.logger.Debug("cached profile unreadable", zap.Error(err))
		return nil
	}
	return user
}

// RequireToken returns the stored token, failing with NO_TOKEN or
// TOKEN_EXPIRED before any network call is made.
func (b *Base) RequireToken(ctx context.Context) (*domain.OAuthToken, *domain.APIError) {
	token, err := b.creds.GetStoredToken(ctx, b.platform)
	if err != nil {
		return nil, domain.NewAPIError(domain.CodeNetworkError, "reading stored %s token: %v", b.platform.DisplayName(), err)
	}
	if token == nil {
		return nil, domain.NewAPIError(domain.CodeNoToken, "%s is not connected", b.platform.DisplayName())
	}
	if oauth.IsTokenExpired(token, b.creds.Now()) {
		return nil, domain.NewAPIError(domain.CodeTokenExpired, "%s token expired, reconnect to continue", b.platform.DisplayName())
	}
	return token, nil
}

// CacheProfile persists the raw profile payload. Failures are logged only;
// the fetched profile is still returned to the caller.
func (b *Base) CacheProfile(ctx context.Context, raw json.RawMessage) {
	if err := b.creds.StoreUserData(ctx, b.platform, raw); err != nil {
		b.logger.Warn("caching profile failed", zap.Error(err))
	}
}
