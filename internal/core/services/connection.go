package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sociallink/internal/core/domain"
	"github.com/custodia-labs/sociallink/internal/core/ports/driven"
	"github.com/custodia-labs/sociallink/internal/core/ports/driving"
	"github.com/custodia-labs/sociallink/internal/logger"
)

// Ensure ConnectionManager implements the interface.
var _ driving.ConnectionManager = (*ConnectionManager)(nil)

// DefaultSyncContentLimit is the number of content items fetched per
// platform during a sync.
const DefaultSyncContentLimit = 25

// ConnectionManager aggregates the platform adapters.
// Connectivity is always derived from the credential store and the vendors;
// the manager holds no connection state of its own.
type ConnectionManager struct {
	adapters     map[domain.Platform]driven.PlatformService
	order        []domain.Platform
	creds        driven.CredentialStore
	contentLimit int
	log          *zap.Logger

	// locks serialises credential-mutating operations per platform.
	locksMu sync.Mutex
	locks   map[domain.Platform]*sync.Mutex
}

// ConnectionManagerOption configures a ConnectionManager.
type ConnectionManagerOption func(*ConnectionManager)

// WithSyncContentLimit sets how many content items a sync fetches per platform.
func WithSyncContentLimit(n int) ConnectionManagerOption {
	return func(m *ConnectionManager) {
		if n > 0 {
			m.contentLimit = n
		}
	}
}

// WithConnectionLogger sets the logger.
func WithConnectionLogger(l *zap.Logger) ConnectionManagerOption {
	return func(m *ConnectionManager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewConnectionManager creates a manager over adapters. Platforms are
// iterated in domain.AllPlatforms order regardless of registration order.
func NewConnectionManager(
	creds driven.CredentialStore,
	adapters []driven.PlatformService,
	opts ...ConnectionManagerOption,
) *ConnectionManager {
	m := &ConnectionManager{
		adapters:     make(map[domain.Platform]driven.PlatformService, len(adapters)),
		creds:        creds,
		contentLimit: DefaultSyncContentLimit,
		log:          logger.Named("connections"),
		locks:        make(map[domain.Platform]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, a := range adapters {
		m.adapters[a.Platform()] = a
	}
	rank := make(map[domain.Platform]int)
	for i, p := range domain.AllPlatforms() {
		rank[p] = i
	}
	for p := range m.adapters {
		m.order = append(m.order, p)
	}
	sort.Slice(m.order, func(i, j int) bool { return rank[m.order[i]] < rank[m.order[j]] })
	return m
}

// GetService returns the adapter for platform.
func (m *ConnectionManager) GetService(platform domain.Platform) (driven.PlatformService, error) {
	if !platform.IsValid() {
		return nil, fmt.Errorf("%q: %w", platform, domain.ErrUnknownPlatform)
	}
	svc, ok := m.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("%s adapter not registered: %w", platform, domain.ErrNotFound)
	}
	return svc, nil
}

// AuthenticatePlatform starts the OAuth flow for platform.
func (m *ConnectionManager) AuthenticatePlatform(ctx context.Context, platform domain.Platform) domain.Response[*domain.OAuthToken] {
	svc, err := m.GetService(platform)
	if err != nil {
		return domain.Failf[*domain.OAuthToken](domain.CodeAuthError, "%v", err)
	}
	defer m.lock(platform)()

	m.log.Debug("authenticating", zap.String("platform", string(platform)))
	return svc.Authenticate(ctx)
}

// HandleAuthCallback completes the OAuth flow for platform.
func (m *ConnectionManager) HandleAuthCallback(ctx context.Context, platform domain.Platform, code, state string) domain.Response[*domain.OAuthToken] {
	svc, err := m.GetService(platform)
	if err != nil {
		return domain.Failf[*domain.OAuthToken](domain.CodeCallbackError, "%v", err)
	}
	defer m.lock(platform)()

	return svc.HandleAuthCallback(ctx, code, state)
}

// DisconnectPlatform clears credentials for platform.
func (m *ConnectionManager) DisconnectPlatform(ctx context.Context, platform domain.Platform) domain.Response[bool] {
	svc, err := m.GetService(platform)
	if err != nil {
		return domain.Failf[bool](domain.CodeDisconnectError, "%v", err)
	}
	defer m.lock(platform)()

	return svc.Disconnect(ctx)
}

// GetAllConnectionStatuses reports every registered platform in order.
func (m *ConnectionManager) GetAllConnectionStatuses(ctx context.Context) []domain.ConnectionStatus {
	statuses := make([]domain.ConnectionStatus, 0, len(m.order))
	for _, p := range m.order {
		statuses = append(statuses, m.status(ctx, m.adapters[p]))
	}
	return statuses
}

// GetConnectionStatus reports a single platform.
func (m *ConnectionManager) GetConnectionStatus(ctx context.Context, platform domain.Platform) domain.ConnectionStatus {
	svc, err := m.GetService(platform)
	if err != nil {
		return domain.ConnectionStatus{Platform: platform, Error: err.Error()}
	}
	return m.status(ctx, svc)
}

// status combines the local check with a live profile probe. A panicking
// adapter is reported as an error status.
func (m *ConnectionManager) status(ctx context.Context, svc driven.PlatformService) (st domain.ConnectionStatus) {
	platform := svc.Platform()
	st.Platform = platform

	defer func() {
		if r := recover(); r != nil {
			m.log.Error("status check panicked", zap.String("platform", string(platform)), zap.Any("panic", r))
			st = domain.ConnectionStatus{
				Platform: platform,
				Error:    fmt.Sprintf("status check failed: %v", r),
			}
		}
	}()

	if last, err := m.creds.GetLastSync(ctx, platform); err == nil {
		st.LastSync = last
	}

	if !svc.IsConnected(ctx) {
		token, err := m.creds.GetStoredToken(ctx, platform)
		switch {
		case err != nil:
			m.log.Warn("reading credentials failed", zap.String("platform", string(platform)), zap.Error(err))
			st.Error = fmt.Sprintf("reading stored credentials: %v", err)
		case token != nil:
			st.Error = "token expired"
			st.RequiresReauth = true
		}
		return st
	}

	m.log.Debug("probing", zap.String("platform", string(platform)))
	probe := svc.GetUserProfile(ctx)
	if !probe.Success {
		apiErr := probe.Error
		if apiErr == nil {
			apiErr = domain.NewAPIError(domain.CodeAPIError, "profile probe failed")
		}
		st.Error = apiErr.Message
		st.RequiresReauth = apiErr.RequiresReauth()
		return st
	}

	st.IsConnected = true
	return st
}

// SyncAllPlatforms fetches profile and content for every locally connected
// platform. A failing platform is skipped; its name and reason are reported
// in a PARTIAL_SYNC_FAILED error alongside the data that did sync.
func (m *ConnectionManager) SyncAllPlatforms(ctx context.Context) domain.Response[domain.SyncResult] {
	if err := ctx.Err(); err != nil {
		return domain.Failf[domain.SyncResult](domain.CodeSyncFailed, "sync not started: %v", err)
	}

	result := make(domain.SyncResult)
	var failed []string

	for _, p := range m.order {
		svc := m.adapters[p]
		if !svc.IsConnected(ctx) {
			continue
		}

		data, apiErr := m.syncPlatform(ctx, svc)
		if apiErr != nil {
			m.log.Warn("sync failed", zap.String("platform", string(p)), zap.Error(apiErr))
			failed = append(failed, fmt.Sprintf("%s (%s)", p, apiErr.Message))
			continue
		}

		result[p] = data
		if err := m.creds.StoreLastSync(ctx, p, m.creds.Now()); err != nil {
			m.log.Warn("recording sync time failed", zap.String("platform", string(p)), zap.Error(err))
		}
	}

	resp := domain.OK(result)
	if len(failed) > 0 {
		resp.Error = domain.NewAPIError(domain.CodePartialSyncFailed,
			"sync failed for %s", strings.Join(failed, ", ")).
			WithDetail("failed", len(failed))
	}
	return resp
}

// syncPlatform fetches profile and content concurrently. The first failure
// cancels the other request. A panicking adapter fails only its platform.
func (m *ConnectionManager) syncPlatform(ctx context.Context, svc driven.PlatformService) (domain.PlatformSync, *domain.APIError) {
	var (
		profile domain.Response[*domain.PlatformUser]
		content domain.Response[[]domain.ContentItem]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer m.recoverSync(svc.Platform(), "profile", &err)
		profile = svc.GetUserProfile(gctx)
		return profile.Err()
	})
	g.Go(func() (err error) {
		defer m.recoverSync(svc.Platform(), "content", &err)
		content = svc.GetContent(gctx, m.contentLimit)
		return content.Err()
	})

	if err := g.Wait(); err != nil {
		return domain.PlatformSync{}, domain.AsAPIError(err, domain.CodeSyncFailed)
	}
	return domain.PlatformSync{Profile: profile.Data, Content: content.Data}, nil
}

// recoverSync turns a panic in a sync goroutine into a SYNC_FAILED error.
func (m *ConnectionManager) recoverSync(platform domain.Platform, what string, err *error) {
	if r := recover(); r != nil {
		m.log.Error("sync panicked", zap.String("platform", string(platform)), zap.String("fetch", what), zap.Any("panic", r))
		*err = domain.NewAPIError(domain.CodeSyncFailed, "%s fetch failed: %v", what, r)
	}
}

// RefreshAllTokens refreshes every platform that holds a stored token,
// including expired ones.
func (m *ConnectionManager) RefreshAllTokens(ctx context.Context) domain.RefreshResults {
	results := make(domain.RefreshResults, len(m.order))
	for _, p := range m.order {
		results[p] = m.refresh(ctx, p)
	}
	return results
}

func (m *ConnectionManager) refresh(ctx context.Context, platform domain.Platform) domain.Response[*domain.OAuthToken] {
	defer m.lock(platform)()

	token, err := m.creds.GetStoredToken(ctx, platform)
	if err != nil {
		return domain.Failf[*domain.OAuthToken](domain.CodeRefreshFailed, "reading stored token: %v", err)
	}
	if token == nil {
		return domain.Failf[*domain.OAuthToken](domain.CodeNotConnected, "%s is not connected", platform.DisplayName())
	}

	resp := m.adapters[platform].RefreshToken(ctx, token.RefreshToken)
	if resp.Success {
		m.log.Debug("refreshed", zap.String("platform", string(platform)))
	}
	return resp
}

// GetConnectedPlatforms lists locally connected platforms in order.
func (m *ConnectionManager) GetConnectedPlatforms(ctx context.Context) []domain.Platform {
	var connected []domain.Platform
	for _, p := range m.order {
		if m.adapters[p].IsConnected(ctx) {
			connected = append(connected, p)
		}
	}
	return connected
}

// GetConnectedCount counts locally connected platforms.
func (m *ConnectionManager) GetConnectedCount(ctx context.Context) int {
	return len(m.GetConnectedPlatforms(ctx))
}

// HasAnyConnections reports whether any platform is locally connected.
func (m *ConnectionManager) HasAnyConnections(ctx context.Context) bool {
	for _, p := range m.order {
		if m.adapters[p].IsConnected(ctx) {
			return true
		}
	}
	return false
}

func (m *ConnectionManager) lock(platform domain.Platform) func() {
	m.locksMu.Lock()
	mu, ok := m.locks[platform]
	if !ok {
		mu = &sync.Mutex{}
		m.locks[platform] = mu
	}
	m.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}
