// Package facebook implements the Facebook adapter on the Graph API.
package facebook

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/custodia-labs/sociallink/internal/adapters/driven/oauth"
	"github.com/custodia-labs/sociallink/internal/connectors"
	"github.com/custodia-labs/sociallink/internal/connectors/restapi"
	"github.com/custodia-labs/sociallink/internal/core/domain"
	"github.com/custodia-labs/sociallink/internal/core/ports/driven"
)

// GraphVersion is the pinned Graph API version.
const GraphVersion = "v19.0"

// Default endpoints.
const (
	DefaultAuthURL  = "https://www.facebook.com/" + GraphVersion + "/dialog/oauth"
	DefaultGraphURL = "https://graph.facebook.com/" + GraphVersion
)

// DefaultScopes are requested when none are configured.
var DefaultScopes = []string{"public_profile", "email", "user_posts"}

const (
	defaultPostLimit = 25
	maxPostLimit     = 100
	postFields       = "id,message,story,created_time,permalink_url,full_picture,status_type"
	profileFields    = "id,name,email,link,picture.type(large)"
)

// Config holds client credentials and endpoint overrides. TokenURL defaults
// to GraphURL + "/oauth/access_token".
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
	if c.GraphURL == "" {
		c.GraphURL = DefaultGraphURL
	}
	if c.TokenURL == "" {
		c.TokenURL = c.GraphURL + "/oauth/access_token"
	}
	if len(c.Scopes) == 0 {
		c.Scopes = DefaultScopes
	}
	return c
}

// Service is the Facebook platform adapter.
type Service struct {
	*connectors.Base
	cfg Config
	api *restapi.Client
}

var _ driven.PlatformService = (*Service)(nil)

// New creates the Facebook adapter.
func New(cfg Config, deps connectors.Deps) *Service {
	cfg = cfg.withDefaults()
	deps = deps.WithDefaults()

	api := deps.Client(domain.PlatformFacebook)
	h := &handler{cfg: cfg, helper: deps.Helper(), api: api, now: deps.Credentials.Now}

	return &Service{
		Base: connectors.NewBase(domain.PlatformFacebook, deps.Credentials, deps.Opener, h, ParseProfile, deps.Logger),
		cfg:  cfg,
		api:  api,
	}
}

type profile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Link    string `json:"link"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// ParseProfile converts a /me payload.
func ParseProfile(raw []byte) (*domain.PlatformUser, error) {
	var p profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &domain.PlatformUser{
		Platform:    domain.PlatformFacebook,
		ID:          p.ID,
		Username:    p.Email,
		DisplayName: p.Name,
		AvatarURL:   p.Picture.Data.URL,
		ProfileURL:  p.Link,
		Raw:         json.RawMessage(raw),
	}, nil
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
		return domain.Failf[*domain.PlatformUser](domain.CodeNetworkError, "decoding Facebook profile: %v", err)
	}
	s.CacheProfile(ctx, raw)
	return domain.OK(user)
}

type post struct {
	ID           string `json:"id"`
	Message      string `json:"message"`
	Story        string `json:"story"`
	CreatedTime  string `json:"created_time"`
	PermalinkURL string `json:"permalink_url"`
	FullPicture  string `json:"full_picture"`
}

type postPage struct {
	Data   []json.RawMessage `json:"data"`
	Paging struct {
		Next     string `json:"next"`
		Previous string `json:"previous"`
	} `json:"paging"`
}

// GetPosts lists the user's timeline posts.
func (s *Service) GetPosts(ctx context.Context, limit int) domain.Response[[]domain.ContentItem] {
	token, apiErr := s.RequireToken(ctx)
	if apiErr != nil {
		return domain.Fail[[]domain.ContentItem](apiErr)
	}

	query := url.Values{
		"fields": {postFields},
		"limit":  {strconv.Itoa(connectors.ClampLimit(limit, defaultPostLimit, maxPostLimit))},
	}

	var page postPage
	if _, apiErr := s.api.Get(ctx, token.AccessToken, s.cfg.GraphURL+"/me/posts", query, &page); apiErr != nil {
		return domain.Fail[[]domain.ContentItem](apiErr)
	}

	items := make([]domain.ContentItem, 0, len(page.Data))
	for _, raw := range page.Data {
		var p post
		if err := json.Unmarshal(raw, &p); err != nil {
			return domain.Failf[[]domain.ContentItem](domain.CodeNetworkError, "decoding Facebook post: %v", err)
		}
		item := domain.ContentItem{
			Platform:  domain.PlatformFacebook,
			ID:        p.ID,
			Kind:      domain.ContentPost,
			Title:     p.Story,
			Caption:   p.Message,
			MediaURL:  p.FullPicture,
			Permalink: p.PermalinkURL,
			Raw:       raw,
		}
		if ts, err := time.Parse("2006-01-02T15:04:05-0700", p.CreatedTime); err == nil {
			item.CreatedAt = ts
		}
		items = append(items, item)
	}

	var pg *domain.Pagination
	if page.Paging.Next != "" || page.Paging.Previous != "" {
		pg = &domain.Pagination{Next: page.Paging.Next, Previous: page.Paging.Previous}
	}
	return domain.OKPage(items, pg)
}

// GetContent returns timeline posts.
func (s *Service) GetContent(ctx context.Context, limit int) domain.Response[[]domain.ContentItem] {
	return s.GetPosts(ctx, limit)
}

// handler implements Facebook login. Facebook issues no refresh token; a
// valid user token is exchanged for a fresh long-lived one.
type handler struct {
	cfg    Config
	helper *oauth.Helper
	api    *restapi.Client
	now    func() time.Time
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
	lived := current.RefreshToken
	if lived == "" {
		lived = current.AccessToken
	}
	if lived == "" {
		return domain.Failf[*domain.OAuthToken](domain.CodeRefreshFailed, "no Facebook token to exchange")
	}

	query := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {h.cfg.ClientID},
		"client_secret":     {h.cfg.ClientSecret},
		"fb_exchange_token": {lived},
	}

	var resp oauth.TokenResponse
	if _, apiErr := h.api.Get(ctx, "", h.cfg.TokenURL, query, &resp); apiErr != nil {
		apiErr.Code = domain.CodeRefreshFailed
		return domain.Fail[*domain.OAuthToken](apiErr)
	}
	if resp.AccessToken == "" {
		return domain.Failf[*domain.OAuthToken](domain.CodeRefreshFailed, "Facebook token exchange returned no access token")
	}
	return domain.OK(resp.ToDomain(h.now()))
}

// Revoke removes the app's permissions, which invalidates every token.
func (h *handler) Revoke(ctx context.Context, accessToken string) error {
	if apiErr := h.api.Delete(ctx, accessToken, h.cfg.GraphURL+"/me/permissions", nil); apiErr != nil {
		return apiErr
	}
	return nil
}
