package driving

import "github.com/custodia-labs/sociallink/internal/core/domain"

// SettingsService manages per-platform OAuth client settings.
type SettingsService interface {
	// Get returns the settings for platform, with environment overrides applied.
	Get(platform domain.Platform) domain.PlatformSettings

	// Save persists settings for a platform.
	Save(settings domain.PlatformSettings) error

	// StorageBackend returns the configured key-value backend ("sqlite" or "memory").
	StorageBackend() string

	// DataDir returns the directory for persistent data.
	DataDir() string

	// HTTPTimeoutSeconds returns the vendor request timeout.
	HTTPTimeoutSeconds() int
}
