// Package connectortest provides fixtures for platform adapter tests.
package connectortest

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sociallink/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sociallink/internal/connectors"
	"github.com/custodia-labs/sociallink/internal/connectors/restapi"
	"github.com/custodia-labs/sociallink/internal/core/domain"
	"github.com/custodia-labs/sociallink/internal/core/services"
)

// Epoch is the initial fixture clock reading.
var Epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// RecordingOpener records opened URLs instead of launching a browser.
type RecordingOpener struct {
	mu   sync.Mutex
	urls []string
	Err  error
}

// Open records rawURL and returns Err.
func (o *RecordingOpener) Open(_ context.Context, rawURL string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.urls = append(o.urls, rawURL)
	return nil
}

// Last returns the most recently opened URL.
func (o *RecordingOpener) Last() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.urls) == 0 {
		return ""
	}
	return o.urls[len(o.urls)-1]
}

// Env bundles an in-memory credential store, a controllable clock and a
// recording opener.
type Env struct {
	KV     *memory.KeyValueStore
	Creds  *services.CredentialStore
	Opener *RecordingOpener

	mu  sync.Mutex
	now time.Time
}

// NewEnv creates a fixture environment.
func NewEnv() *Env {
	e := &Env{
		KV:     memory.NewKeyValueStore(),
		Opener: &RecordingOpener{},
		now:    Epoch,
	}
	e.Creds = services.NewCredentialStore(e.KV, services.WithClock(e.Now))
	return e
}

// Now returns the fixture clock reading.
func (e *Env) Now() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

// Advance moves the clock forward.
func (e *Env) Advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// Deps returns adapter dependencies using client with an unthrottled limiter.
func (e *Env) Deps(client *http.Client) connectors.Deps {
	return connectors.Deps{
		Credentials: e.Creds,
		Opener:      e.Opener,
		HTTPClient:  client,
		RateLimiter: restapi.NewRateLimiterWithConfig(restapi.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000}),
	}
}

// Connect stores an access token for platform expiring after expiresIn
// seconds; zero means no expiry.
func (e *Env) Connect(t testing.TB, platform domain.Platform, access, refresh string, expiresIn int64) {
	t.Helper()
	err := e.Creds.StoreToken(context.Background(), platform, &domain.OAuthToken{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    domain.DefaultTokenType,
		ExpiresIn:    expiresIn,
	})
	require.NoError(t, err)
}

// Value returns the raw stored value for platform and suffix.
func (e *Env) Value(t testing.TB, platform domain.Platform, suffix string) (string, bool) {
	t.Helper()
	v, ok, err := e.KV.Get(context.Background(), services.StorageKey(platform, suffix))
	require.NoError(t, err)
	return v, ok
}
