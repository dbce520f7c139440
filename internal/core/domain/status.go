package domain

import "time"

// ConnectionStatus is the derived connectivity of one platform.
// It is recomputed on every query and never stored.
type ConnectionStatus struct {
	Platform    Platform   `json:"platform"`
	IsConnected bool       `json:"is_connected"`
	LastSync    *time.Time `json:"last_sync,omitempty"`
	Error       string     `json:"error,omitempty"`
	// RequiresReauth is set when the vendor rejected the stored credential.
	RequiresReauth bool `json:"requires_reauth,omitempty"`
}

// PlatformSync holds the data fetched for one platform during a sync.
type PlatformSync struct {
	Profile *PlatformUser `json:"profile"`
	Content []ContentItem `json:"content"`
}

// SyncResult maps each successfully synced platform to its data.
type SyncResult map[Platform]PlatformSync

// RefreshResults maps each platform to the outcome of its token refresh.
type RefreshResults map[Platform]Response[*OAuthToken]
