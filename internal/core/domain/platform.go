package domain

import (
	"fmt"
	"strings"
)

// Platform identifies a supported third-party network.
type Platform string

// Supported platforms.
const (
	// PlatformInstagram is a media-sharing network.
	PlatformInstagram Platform = "instagram"
	// PlatformFacebook is a media-sharing network.
	PlatformFacebook Platform = "facebook"
	// PlatformTikTok is a short-video network.
	PlatformTikTok Platform = "tiktok"
	// PlatformSpotify is a music-streaming network.
	PlatformSpotify Platform = "spotify"
)

// AllPlatforms returns every supported platform in display order.
func AllPlatforms() []Platform {
	return []Platform{PlatformInstagram, PlatformFacebook, PlatformTikTok, PlatformSpotify}
}

// ParsePlatform validates a platform identifier. Matching is case-insensitive.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
	return p, nil
}

// IsValid returns true if the platform is recognised.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformInstagram, PlatformFacebook, PlatformTikTok, PlatformSpotify:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p Platform) String() string {
	return string(p)
}

// DisplayName returns the human-readable platform name.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformInstagram:
		return "Instagram"
	case PlatformFacebook:
		return "Facebook"
	case PlatformTikTok:
		return "TikTok"
	case PlatformSpotify:
		return "Spotify"
	default:
		return "Unknown"
	}
}

// PlatformSettings holds the OAuth client configuration for one platform.
type PlatformSettings struct {
	Platform     Platform
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// Scopes overrides the adapter's default scopes when non-empty.
	Scopes []string
}

// IsConfigured returns true if a client ID is present.
func (s PlatformSettings) IsConfigured() bool {
	return s.ClientID != ""
}
