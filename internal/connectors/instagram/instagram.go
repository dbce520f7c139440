// Package instagram implements the Instagram adapter on the Instagram Graph
// API: user profile, media listing and long-lived token refresh.
package instagram

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/sociallink/internal/adapters/driven/oauth"
	"github.com/custodia-labs/sociallink/internal/connectors"
	"github.com/custodia-labs/sociallink/internal/connectors/restapi"
	"github.com/custodia-labs/sociallink/internal/core/domain"
	"github.com/custodia-labs/sociallink/internal/core/ports/driven"
)

// Default endpoints.
const (
	DefaultAuthURL  = "https://api.instagram.com/oauth/authorize"
	DefaultTokenURL = "https://api.instagram.com/oauth/access_token"
	DefaultGraphURL = "https://graph.instagram.com"
)

// DefaultScopes are requested when none are configured.
var DefaultScopes = []string{"user_profile", "user_media"}

const (
	defaultMediaLimit = 25
	maxMediaLimit     = 100
	mediaFields       = "id,caption,media_type,media_url,thumbnail_url,permalink,timestamp"
	profileFields     = "id,username,account_type,media_count"
)

// Config holds client credentials and endpoint overrides.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string

	AuthURL  string
	TokenURL string
	GraphURL string
}

func (c Config) withDefaults() Config {
	if c.AuthURL == "" {
		c.AuthURL = DefaultAuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.GraphURL == "" {
		c.GraphURL = DefaultGraphURL
	}
	if len(c.Scopes) == 0 {
		c.Scopes = DefaultScopes
	}
	return c
}

// Service is the Instagram platform adapter.
type Service struct {
	*connectors.Base
	cfg Config
	api *restapi.Client
}

var _ driven.PlatformService = (*Service)(nil)

// New creates the Instagram adapter.
func New(cfg Config, deps connectors.Deps) *Service {
	cfg = cfg.withDefaults()
	deps = deps.WithDefaults()

	api := deps.Client(domain.PlatformInstagram, restapi.WithTokenInQuery())
	h := &handler{cfg: cfg, helper: deps.Helper(), api: api, now: deps.Credentials.Now, logger: deps.Logger}

	return &Service{
		Base: connectors.NewBase(domain.PlatformInstagram, deps.Credentials, deps.Opener, h, ParseProfile, deps.Logger),
		cfg:  cfg,
		api:  api,
	}
}

type profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	AccountType string `json:"account_type"`
	MediaCount  int64  `json:"media_count"`
}

// ParseProfile converts a /me payload.
func ParseProfile(raw []byte) (*domain.PlatformUser, error) {
	var p profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &domain.PlatformUser{
		Platform:    domain.PlatformInstagram,
		ID:          p.ID,
		Username:    p.Username,
		DisplayName: p.Username,
		ProfileURL:  profileURL(p.Username),
		Raw:         json.RawMessage(raw),
	}, nil
}

func profileURL(username string) string {
	if username == "" {
		return ""
	}
	return "https://www.instagram.com/" + url.PathEscape(username)
}

// GetUserProfile fetches /me and caches the payload.
func (s *Service) GetUserProfile(ctx context.Context) domain.Response[*domain.PlatformUser] {
	token, apiErr := s.RequireToken(ctx)
	if apiErr != nil {
		return domain.Fail[*domain.PlatformUser](apiErr)
	}

	raw, apiErr := s.api.Get(ctx, token.AccessToken, s.cfg.GraphURL+"/me", url.Values{"fields": {profileFields}}, nil)
	if apiErr != nil {
		return domain.Fail[*domain.PlatformUser](apiErr)
	}

	user, err := ParseProfile(raw)
	if err != nil {
		return domain.Failf[*domain.PlatformUser](domain.CodeNetworkError, "decoding Instagram profile: %v", err)
	}
	s.CacheProfile(ctx, raw)
	return domain.OK(user)
}

type media struct {
	ID           string `json:"id"`
	Caption      string `json:"caption"`
	MediaType    string `json:"media_type"`
	MediaURL     string `json:"media_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Permalink    string `json:"permalink"`
	Timestamp    string `json:"timestamp"`
}

type mediaPage struct {
	Data   []json.RawMessage `json:"data"`
	Paging struct {
		Next     string `json:"next"`
		Previous string `json:"previous"`
	} `json:"paging"`
}

// GetMedia lists the user's media, newest first.
func (s *Service) GetMedia(ctx context.Context, limit int) domain.Response[[]domain.ContentItem] {
	token, apiErr := s.RequireToken(ctx)
	if apiErr != nil {
		return domain.Fail[[]domain.ContentItem](apiErr)
	}

	query := url.Values{
		"fields": {mediaFields},
		"limit":  {strconv.Itoa(connectors.ClampLimit(limit, defaultMediaLimit, maxMediaLimit))},
	}

	var page mediaPage
	if _, apiErr := s.api.Get(ctx, token.AccessToken, s.cfg.GraphURL+"/me/media", query, &page); apiErr != nil {
		return domain.Fail[[]domain.ContentItem](apiErr)
	}

	items := make([]domain.ContentItem, 0, len(page.Data))
	for _, raw := range page.Data {
		var m media
		if err := json.Unmarshal(raw, &m); err != nil {
			return domain.Failf[[]domain.ContentItem](domain.CodeNetworkError, "decoding Instagram media: %v", err)
		}
		items = append(items, m.toItem(raw))
	}

	var pg *domain.Pagination
	if page.Paging.Next != "" || page.Paging.Previous != "" {
		pg = &domain.Pagination{Next: page.Paging.Next, Previous: page.Paging.Previous}
	}
	return domain.OKPage(items, pg)
}

// GetContent returns media items.
func (s *Service) GetContent(ctx context.Context, limit int) domain.Response[[]domain.ContentItem] {
	return s.GetMedia(ctx, limit)
}

func (m media) toItem(raw json.RawMessage) domain.ContentItem {
	item := domain.ContentItem{
		Platform:     domain.PlatformInstagram,
		ID:           m.ID,
		Kind:         mediaKind(m.MediaType),
		Caption:      m.Caption,
		MediaURL:     m.MediaURL,
		ThumbnailURL: m.ThumbnailURL,
		Permalink:    m.Permalink,
		Raw:          raw,
	}
	if ts, err := time.Parse("2006-01-02T15:04:05-0700", m.Timestamp); err == nil {
		item.CreatedAt = ts
	}
	return item
}

func mediaKind(t string) domain.ContentKind {
	switch t {
	case "VIDEO":
		return domain.ContentVideo
	case "CAROUSEL_ALBUM":
		return domain.ContentCarousel
	default:
		return domain.ContentImage
	}
}

// handler implements the Instagram OAuth variant. Instagram has no refresh
// token; the long-lived access token is itself exchanged for a new one.
type handler struct {
	cfg    Config
	helper *oauth.Helper
	api    *restapi.Client
	now    func() time.Time
	logger *zap.Logger
}

func (h *handler) BuildAuthURL(state string) string {
	return oauth.GenerateAuthURL(h.cfg.AuthURL, h.cfg.ClientID, h.cfg.RedirectURI, h.cfg.Scopes, state)
}

// ExchangeCode obtains a short-lived token and upgrades it to a long-lived
// one. If the upgrade fails the short-lived token is returned.
func (h *handler) ExchangeCode(ctx context.Context, code string) domain.Response[*domain.OAuthToken] {
	short := h.helper.ExchangeCodeForToken(ctx, oauth.ExchangeRequest{
		TokenURL:     h.cfg.TokenURL,
		Code:         code,
		ClientID:     h.cfg.ClientID,
		ClientSecret: h.cfg.ClientSecret,
		RedirectURI:  h.cfg.RedirectURI,
	})
	if !short.Success {
		return short
	}

	var resp oauth.TokenResponse
	query := url.Values{
		"grant_type":    {"ig_exchange_token"},
		"client_secret": {h.cfg.ClientSecret},
	}
	if _, apiErr := h.api.Get(ctx, short.Data.AccessToken, h.cfg.GraphURL+"/access_token", query, &resp); apiErr != nil {
		h.logger.Warn("long-lived token exchange failed, keeping short-lived token", zap.Error(apiErr))
		return short
	}
	if resp.AccessToken == "" {
		return short
	}
	return domain.OK(resp.ToDomain(h.now()))
}

func (h *handler) RefreshToken(ctx context.Context, current *domain.OAuthToken) domain.Response[*domain.OAuthToken] {
	lived := current.RefreshToken
	if lived == "" {
		lived = current.AccessToken
	}
	if lived == "" {
		return domain.Failf[*domain.OAuthToken](domain.CodeRefreshFailed, "no Instagram token to refresh")
	}

	var resp oauth.TokenResponse
	query := url.Values{"grant_type": {"ig_refresh_token"}}
	if _, apiErr := h.api.Get(ctx, lived, h.cfg.GraphURL+"/refresh_access_token", query, &resp); apiErr != nil {
		apiErr.Code = domain.CodeRefreshFailed
		return domain.Fail[*domain.OAuthToken](apiErr)
	}
	if resp.AccessToken == "" {
		return domain.Failf[*domain.OAuthToken](domain.CodeRefreshFailed, "Instagram refresh returned no access token")
	}
	return domain.OK(resp.ToDomain(h.now()))
}

// Revoke is a no-op: Instagram offers no token revocation endpoint.
func (h *handler) Revoke(context.Context, string) error {
	return nil
}
