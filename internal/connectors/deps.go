package connectors

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/custodia-labs/sociallink/internal/adapters/driven/oauth"
	"github.com/custodia-labs/sociallink/internal/connectors/restapi"
	"github.com/custodia-labs/sociallink/internal/core/domain"
	"github.com/custodia-labs/sociallink/internal/core/ports/driven"
)

// Deps are the collaborators every platform adapter needs.
type Deps struct {
	Credentials driven.CredentialStore
	Opener      driven.URLOpener
	// HTTPClient is shared by token and API requests. Defaults to an
	// instrumented client with restapi.DefaultTimeout.
	HTTPClient *http.Client
	// RateLimiter overrides the platform's default limits.
	RateLimiter *restapi.RateLimiter
	Logger      *zap.Logger
}

// WithDefaults fills unset optional fields.
func (d Deps) WithDefaults() Deps {
	if d.HTTPClient == nil {
		d.HTTPClient = restapi.NewHTTPClient(restapi.DefaultTimeout)
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// Helper returns an OAuth helper sharing the HTTP client and the
// credential store's clock.
func (d Deps) Helper() *oauth.Helper {
	return oauth.NewHelper(
		oauth.WithHTTPClient(d.HTTPClient),
		oauth.WithNow(d.Credentials.Now),
		oauth.WithLogger(d.Logger),
	)
}

// Client returns a REST client for platform.
func (d Deps) Client(platform domain.Platform, opts ...restapi.Option) *restapi.Client {
	base := []restapi.Option{
		restapi.WithHTTPClient(d.HTTPClient),
		restapi.WithLogger(d.Logger),
	}
	if d.RateLimiter != nil {
		base = append(base, restapi.WithRateLimiter(d.RateLimiter))
	}
	return restapi.NewClient(platform, append(base, opts...)...)
}

// ClampLimit bounds a requested page size to [1, max], substituting def for
// non-positive values.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
