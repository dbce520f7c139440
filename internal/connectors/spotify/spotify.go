// Package spotify implements the Spotify adapter on the Web API.
package spotify

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sociallink/internal/adapters/driven/oauth"
	"github.com/custodia-labs/sociallink/internal/connectors"
	"github.com/custodia-labs/sociallink/internal/connectors/restapi"
	"github.com/custodia-labs/sociallink/internal/core/domain"
	"github.com/custodia-labs/sociallink/internal/core/ports/driven"
)

// Default endpoints.
const (
	DefaultAuthURL  = "https://accounts.spotify.com/authorize"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
	DefaultAPIURL   = "https://api.spotify.com/v1"
)

// DefaultScopes are requested when none are configured.
var DefaultScopes = []string{"user-read-private", "user-read-email", "user-top-read", "playlist-read-private"}

const (
	defaultLimit = 20
	maxLimit     = 50
)

// Config holds client credentials and endpoint overrides.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string

	AuthURL  string
	TokenURL string
	APIURL   string
}

func (c Config) withDefaults() Config {
	if c.AuthURL == "" {
		c.AuthURL = DefaultAuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if len(c.Scopes) == 0 {
		c.Scopes = DefaultScopes
	}
	return c
}

// Service is the Spotify platform adapter.
type Service struct {
	*connectors.Base
	cfg Config
	api *restapi.Client
}

var _ driven.PlatformService = (*Service)(nil)

// New creates the Spotify adapter.
func New(cfg Config, deps connectors.Deps) *Service {
	cfg = cfg.withDefaults()
	deps = deps.WithDefaults()

	h := &handler{cfg: cfg, helper: deps.Helper()}

	return &Service{
		Base: connectors.NewBase(domain.PlatformSpotify, deps.Credentials, deps.Opener, h, ParseProfile, deps.Logger),
		cfg:  cfg,
		api:  deps.Client(domain.PlatformSpotify),
	}
}

type image struct {
	URL string `json:"url"`
}

type profile struct {
	ID           string  `json:"id"`
	DisplayName  string  `json:"display_name"`
	Email        string  `json:"email"`
	Images       []image `json:"images"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	Followers struct {
		Total int64 `json:"total"`
	} `json:"followers"`
}

// ParseProfile converts a /me payload.
func ParseProfile(raw []byte) (*domain.PlatformUser, error) {
	var p profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	u := &domain.PlatformUser{
		Platform:      domain.PlatformSpotify,
		ID:            p.ID,
		Username:      p.ID,
		DisplayName:   p.DisplayName,
		ProfileURL:    p.ExternalURLs.Spotify,
		FollowerCount: p.Followers.Total,
		Raw:           json.RawMessage(raw),
	}
	if len(p.Images) > 0 {
		u.AvatarURL = p.Images[0].URL
	}
	return u, nil
}

// GetUserProfile fetches /me and caches the payload.
func (s *Service) GetUserProfile(ctx context.Context) domain.Response[*domain.PlatformUser] {
	token, apiErr := s.RequireToken(ctx)
	if apiErr != nil {
		return domain.Fail[*domain.PlatformUser](apiErr)
	}

	raw, apiErr := s.api.Get(ctx, token.AccessToken, s.cfg.APIURL+"/me", nil, nil)
	if apiErr != nil {
		return domain.Fail[*domain.PlatformUser](apiErr)
	}

	user, err := ParseProfile(raw)
	if err != nil {
		return domain.Failf[*domain.PlatformUser](domain.CodeNetworkError, "decoding Spotify profile: %v", err)
	}
	s.CacheProfile(ctx, raw)
	return domain.OK(user)
}

type page struct {
	Items    []json.RawMessage `json:"items"`
	Next     string            `json:"next"`
	Previous string            `json:"previous"`
	Total    int               `json:"total"`
}

func (p page) pagination() *domain.Pagination {
	if p.Next == "" && p.Previous == "" && p.Total == 0 {
		return nil
	}
	return &domain.Pagination{Next: p.Next, Previous: p.Previous, Total: p.Total}
}

type track struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Album struct {
		Name        string  `json:"name"`
		Images      []image `json:"images"`
		ReleaseDate string  `json:"release_date"`
	} `json:"album"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	PreviewURL   string `json:"preview_url"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

// GetTopTracks lists the user's top tracks.
func (s *Service) GetTopTracks(ctx context.Context, limit int) domain.Response[[]domain.ContentItem] {
	var p page
	if apiErr := s.list(ctx, "/me/top/tracks", limit, &p); apiErr != nil {
		return domain.Fail[[]domain.ContentItem](apiErr)
	}

	items := make([]domain.ContentItem, 0, len(p.Items))
	for _, raw := range p.Items {
		var t track
		if err := json.Unmarshal(raw, &t); err != nil {
			return domain.Failf[[]domain.ContentItem](domain.CodeNetworkError, "decoding Spotify track: %v", err)
		}
		item := domain.ContentItem{
			Platform:  domain.PlatformSpotify,
			ID:        t.ID,
			Kind:      domain.ContentTrack,
			Title:     t.Name,
			MediaURL:  t.PreviewURL,
			Permalink: t.ExternalURLs.Spotify,
			Raw:       raw,
		}
		if len(t.Artists) > 0 {
			item.Caption = t.Artists[0].Name + " · " + t.Album.Name
		}
		if len(t.Album.Images) > 0 {
			item.ThumbnailURL = t.Album.Images[0].URL
		}
		if d, err := time.Parse("2006-01-02", t.Album.ReleaseDate); err == nil {
			item.CreatedAt = d
		}
		items = append(items, item)
	}
	return domain.OKPage(items, p.pagination())
}

type playlist struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Images       []image `json:"images"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

// GetPlaylists lists the user's playlists.
func (s *Service) GetPlaylists(ctx context.Context, limit int) domain.Response[[]domain.ContentItem] {
	var p page
	if apiErr := s.list(ctx, "/me/playlists", limit, &p); apiErr != nil {
		return domain.Fail[[]domain.ContentItem](apiErr)
	}

	items := make([]domain.ContentItem, 0, len(p.Items))
	for _, raw := range p.Items {
		var pl playlist
		if err := json.Unmarshal(raw, &pl); err != nil {
			return domain.Failf[[]domain.ContentItem](domain.CodeNetworkError, "decoding Spotify playlist: %v", err)
		}
		item := domain.ContentItem{
			Platform:  domain.PlatformSpotify,
			ID:        pl.ID,
			Kind:      domain.ContentPlaylist,
			Title:     pl.Name,
			Caption:   pl.Description,
			Permalink: pl.ExternalURLs.Spotify,
			Raw:       raw,
		}
		if len(pl.Images) > 0 {
			item.ThumbnailURL = pl.Images[0].URL
		}
		items = append(items, item)
	}
	return domain.OKPage(items, p.pagination())
}

// GetContent returns top tracks followed by playlists, each up to limit.
// Both lists are fetched concurrently and the first failure cancels the
// other. Pagination is not reported for the combined list.
func (s *Service) GetContent(ctx context.Context, limit int) domain.Response[[]domain.ContentItem] {
	var tracks, playlists domain.Response[[]domain.ContentItem]

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tracks = s.GetTopTracks(gctx, limit)
		return tracks.Err()
	})
	g.Go(func() error {
		playlists = s.GetPlaylists(gctx, limit)
		return playlists.Err()
	})
	if err := g.Wait(); err != nil {
		return domain.Fail[[]domain.ContentItem](domain.AsAPIError(err, domain.CodeAPIError))
	}
	return domain.OK(append(tracks.Data, playlists.Data...))
}

func (s *Service) list(ctx context.Context, path string, limit int, out *page) *domain.APIError {
	token, apiErr := s.RequireToken(ctx)
	if apiErr != nil {
		return apiErr
	}
	query := url.Values{"limit": {strconv.Itoa(connectors.ClampLimit(limit, defaultLimit, maxLimit))}}
	_, apiErr = s.api.Get(ctx, token.AccessToken, s.cfg.APIURL+path, query, out)
	return apiErr
}

// handler implements the Spotify authorization code flow. Refresh sends
// client credentials with HTTP Basic auth.
type handler struct {
	cfg    Config
	helper *oauth.Helper
}

func (h *handler) BuildAuthURL(state string) string {
	return oauth.GenerateAuthURL(h.cfg.AuthURL, h.cfg.ClientID, h.cfg.RedirectURI, h.cfg.Scopes, state)
}

func (h *handler) ExchangeCode(ctx context.Context, code string) domain.Response[*domain.OAuthToken] {
	return h.helper.ExchangeCodeForToken(ctx, oauth.ExchangeRequest{
		TokenURL:     h.cfg.TokenURL,
		Code:         code,
		ClientID:     h.cfg.ClientID,
		ClientSecret: h.cfg.ClientSecret,
		RedirectURI:  h.cfg.RedirectURI,
	})
}

func (h *handler) RefreshToken(ctx context.Context, current *domain.OAuthToken) domain.Response[*domain.OAuthToken] {
	return h.helper.Refresh(ctx, oauth.RefreshRequest{
		TokenURL:     h.cfg.TokenURL,
		ClientID:     h.cfg.ClientID,
		ClientSecret: h.cfg.ClientSecret,
		RefreshToken: current.RefreshToken,
		AuthStyle:    oauth2.AuthStyleInHeader,
	})
}

// Revoke is a no-op: users revoke Spotify access from their account page.
func (h *handler) Revoke(context.Context, string) error {
	return nil
}
