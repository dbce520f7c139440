package services

import (
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/sociallink/internal/core/domain"
	"github.com/custodia-labs/sociallink/internal/core/ports/driven"
	"github.com/custodia-labs/sociallink/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage. Platform keys are prefixed with the
// platform name, e.g. "spotify.client_id".
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	suffixClientID     = "client_id"
	suffixClientSecret = "client_secret"
	suffixRedirectURI  = "redirect_uri"
	suffixScopes       = "scopes"

	keyStorageBackend = "storage.backend"
	keyDataDir        = "storage.data_dir"
	keyHTTPTimeout    = "http.timeout_seconds"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Defaults applied when the config leaves a value unset.
const (
	DefaultRedirectURI        = "http://127.0.0.1:8765/callback"
	DefaultHTTPTimeoutSeconds = 15
)

// EnvPrefix prefixes environment overrides, e.g. SOCIALLINK_SPOTIFY_CLIENT_ID.
const EnvPrefix = "SOCIALLINK_"

// SettingsService reads and writes per-platform OAuth client settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get returns the settings for platform. Environment variables override the
// client id and secret from the config file.
func (s *SettingsService) Get(platform domain.Platform) domain.PlatformSettings {
	settings := domain.PlatformSettings{
		Platform:     platform,
		ClientID:     s.configStore.GetString(platformKey(platform, suffixClientID)),
		ClientSecret: s.configStore.GetString(platformKey(platform, suffixClientSecret)),
		RedirectURI:  s.getString(platformKey(platform, suffixRedirectURI), DefaultRedirectURI),
		Scopes:       s.configStore.GetStringSlice(platformKey(platform, suffixScopes)),
	}

	if v := s.getenv(envKey(platform, "CLIENT_ID")); v != "" {
		settings.ClientID = v
	}
	if v := s.getenv(envKey(platform, "CLIENT_SECRET")); v != "" {
		settings.ClientSecret = v
	}
	return settings
}

// Save persists settings for a platform. An empty secret leaves the stored
// secret unchanged.
func (s *SettingsService) Save(settings domain.PlatformSettings) error {
	p := settings.Platform
	if !p.IsValid() {
		return fmt.Errorf("save settings for %q: %w", p, domain.ErrUnknownPlatform)
	}

	if err := s.configStore.Set(platformKey(p, suffixClientID), settings.ClientID); err != nil {
		return fmt.Errorf("save %s client_id: %w", p, err)
	}
	if settings.ClientSecret != "" {
		if err := s.configStore.Set(platformKey(p, suffixClientSecret), settings.ClientSecret); err != nil {
			return fmt.Errorf("save %s client_secret: %w", p, err)
		}
	}
	if settings.RedirectURI != "" {
		if err := s.configStore.Set(platformKey(p, suffixRedirectURI), settings.RedirectURI); err != nil {
			return fmt.Errorf("save %s redirect_uri: %w", p, err)
		}
	}
	if len(settings.Scopes) > 0 {
		if err := s.configStore.Set(platformKey(p, suffixScopes), settings.Scopes); err != nil {
			return fmt.Errorf("save %s scopes: %w", p, err)
		}
	}

	if err := s.configStore.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// StorageBackend returns the configured key-value backend, defaulting to
// sqlite. Unknown values fall back to the default.
func (s *SettingsService) StorageBackend() string {
	switch v := strings.ToLower(s.configStore.GetString(keyStorageBackend)); v {
	case BackendMemory, BackendSQLite:
		return v
	default:
		return BackendSQLite
	}
}

// DataDir returns the configured data directory. Empty means the store's
// default location.
func (s *SettingsService) DataDir() string {
	return s.configStore.GetString(keyDataDir)
}

// HTTPTimeoutSeconds returns the vendor request timeout.
func (s *SettingsService) HTTPTimeoutSeconds() int {
	if v := s.configStore.GetInt(keyHTTPTimeout); v > 0 {
		return v
	}
	return DefaultHTTPTimeoutSeconds
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func platformKey(platform domain.Platform, suffix string) string {
	return string(platform) + "." + suffix
}

func envKey(platform domain.Platform, suffix string) string {
	return EnvPrefix + strings.ToUpper(string(platform)) + "_" + suffix
}
