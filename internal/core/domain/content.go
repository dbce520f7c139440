package domain

import (
	"encoding/json"
	"time"
)

// PlatformUser is the normalised profile of the connected account.
type PlatformUser struct {
	Platform      Platform `json:"platform"`
	ID            string   `json:"id"`
	Username      string   `json:"username,omitempty"`
	DisplayName   string   `json:"display_name,omitempty"`
	AvatarURL     string   `json:"avatar_url,omitempty"`
	ProfileURL    string   `json:"profile_url,omitempty"`
	FollowerCount int64    `json:"follower_count,omitempty"`
	// Raw is the vendor payload as received.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// ContentKind classifies a content item.
type ContentKind string

// Content kinds.
const (
	ContentImage    ContentKind = "image"
	ContentVideo    ContentKind = "video"
	ContentCarousel ContentKind = "carousel"
	ContentPost     ContentKind = "post"
	ContentTrack    ContentKind = "track"
	ContentPlaylist ContentKind = "playlist"
)

// ContentItem is one normalised piece of platform content: a post, media
// item, video, track or playlist.
type ContentItem struct {
	Platform     Platform        `json:"platform"`
	ID           string          `json:"id"`
	Kind         ContentKind     `json:"kind"`
	Title        string          `json:"title,omitempty"`
	Caption      string          `json:"caption,omitempty"`
	MediaURL     string          `json:"media_url,omitempty"`
	ThumbnailURL string          `json:"thumbnail_url,omitempty"`
	Permalink    string          `json:"permalink,omitempty"`
	CreatedAt    time.Time       `json:"created_at,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}
