// Package tiktok implements the TikTok adapter on the Login Kit and
// Display API v2.
package tiktok

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sociallink/internal/adapters/driven/oauth"
	"github.com/custodia-labs/sociallink/internal/connectors"
	"github.com/custodia-labs/sociallink/internal/connectors/restapi"
	"github.com/custodia-labs/sociallink/internal/core/domain"
	"github.com/custodia-labs/sociallink/internal/core/ports/driven"
)

// Default endpoints.
const (
	DefaultAuthURL = "https://www.tiktok.com/v2/auth/authorize/"
	DefaultAPIURL  = "https://open.tiktokapis.com"
)

// DefaultScopes are requested when none are configured.
var DefaultScopes = []string{"user.info.basic", "user.info.profile", "user.info.stats", "video.list"}

const (
	defaultVideoLimit = 20
	maxVideoLimit     = 20
	userFields        = "open_id,union_id,avatar_url,display_name,username,profile_deep_link,follower_count"
	videoFields       = "id,title,video_description,create_time,cover_image_url,share_url,embed_link,duration"
)

// Config holds client credentials and endpoint overrides. ClientID is sent
// to TikTok as client_key.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string

	AuthURL string
	APIURL  string
}

func (c Config) withDefaults() Config {
	if c.AuthURL == "" {
		c.AuthURL = DefaultAuthURL
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if len(c.Scopes) == 0 {
		c.Scopes = DefaultScopes
	}
	return c
}

func (c Config) tokenURL() string  { return c.APIURL + "/v2/oauth/token/" }
func (c Config) revokeURL() string { return c.APIURL + "/v2/oauth/revoke/" }

// Service is the TikTok platform adapter.
type Service struct {
	*connectors.Base
	cfg Config
	api *restapi.Client
}

var _ driven.PlatformService = (*Service)(nil)

// New creates the TikTok adapter.
func New(cfg Config, deps connectors.Deps) *Service {
	cfg = cfg.withDefaults()
	deps = deps.WithDefaults()

	api := deps.Client(domain.PlatformTikTok)
	h := &handler{cfg: cfg, helper: deps.Helper(), api: api, now: deps.Credentials.Now}

	return &Service{
		Base: connectors.NewBase(domain.PlatformTikTok, deps.Credentials, deps.Opener, h, ParseProfile, deps.Logger),
		cfg:  cfg,
		api:  api,
	}
}

// apiError is the error object every v2 response carries; Code is "ok" on
// success.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

func (e apiError) check() *domain.APIError {
	if e.Code == "" || e.Code == "ok" {
		return nil
	}
	msg := e.Message
	if msg == "" {
		msg = "TikTok API error " + e.Code
	}
	return domain.NewAPIError(domain.CodeAPIError, "%s", msg).
		WithDetail("vendor_code", e.Code).
		WithDetail("log_id", e.LogID)
}

type user struct {
	OpenID          string `json:"open_id"`
	UnionID         string `json:"union_id"`
	AvatarURL       string `json:"avatar_url"`
	DisplayName     string `json:"display_name"`
	Username        string `json:"username"`
	ProfileDeepLink string `json:"profile_deep_link"`
	FollowerCount   int64  `json:"follower_count"`
}

type userInfo struct {
	Data struct {
		User user `json:"user"`
	} `json:"data"`
	Error apiError `json:"error"`
}

// ParseProfile converts a /v2/user/info/ payload.
func ParseProfile(raw []byte) (*domain.PlatformUser, error) {
	var info userInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, err
	}
	u := info.Data.User
	if u.OpenID == "" {
		return nil, errors.New("user info carries no open_id")
	}
	return &domain.PlatformUser{
		Platform:      domain.PlatformTikTok,
		ID:            u.OpenID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		AvatarURL:     u.AvatarURL,
		ProfileURL:    u.ProfileDeepLink,
		FollowerCount: u.FollowerCount,
		Raw:           json.RawMessage(raw),
	}, nil
}

// GetUserProfile fetches /v2/user/info/ and caches the payload.
func (s *Service) GetUserProfile(ctx context.Context) domain.Response[*domain.PlatformUser] {
	token, apiErr := s.RequireToken(ctx)
	if apiErr != nil {
		return domain.Fail[*domain.PlatformUser](apiErr)
	}

	var info userInfo
	raw, apiErr := s.api.Get(ctx, token.AccessToken, s.cfg.APIURL+"/v2/user/info/", url.Values{"fields": {userFields}}, &info)
	if apiErr != nil {
		return domain.Fail[*domain.PlatformUser](apiErr)
	}
	if apiErr := info.Error.check(); apiErr != nil {
		return domain.Fail[*domain.PlatformUser](apiErr)
	}

	profile, err := ParseProfile(raw)
	if err != nil {
		return domain.Failf[*domain.PlatformUser](domain.CodeNetworkError, "decoding TikTok profile: %v", err)
	}
	s.CacheProfile(ctx, raw)
	return domain.OK(profile)
}

type video struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	VideoDescription string `json:"video_description"`
	CreateTime       int64  `json:"create_time"`
	CoverImageURL    string `json:"cover_image_url"`
	ShareURL         string `json:"share_url"`
	EmbedLink        string `json:"embed_link"`
	Duration         int    `json:"duration"`
}

type videoList struct {
	Data struct {
		Videos  []json.RawMessage `json:"videos"`
		Cursor  int64             `json:"cursor"`
		HasMore bool              `json:"has_more"`
	} `json:"data"`
	Error apiError `json:"error"`
}

// GetVideos lists the user's public videos. TikTok caps a page at 20.
func (s *Service) GetVideos(ctx context.Context, limit int) domain.Response[[]domain.ContentItem] {
	token, apiErr := s.RequireToken(ctx)
	if apiErr != nil {
		return domain.Fail[[]domain.ContentItem](apiErr)
	}

	body := map[string]int{"max_count": connectors.ClampLimit(limit, defaultVideoLimit, maxVideoLimit)}

	var list videoList
	if _, apiErr := s.api.PostJSON(ctx, token.AccessToken, s.cfg.APIURL+"/v2/video/list/", url.Values{"fields": {videoFields}}, body, &list); apiErr != nil {
		return domain.Fail[[]domain.ContentItem](apiErr)
	}
	if apiErr := list.Error.check(); apiErr != nil {
		return domain.Fail[[]domain.ContentItem](apiErr)
	}

	items := make([]domain.ContentItem, 0, len(list.Data.Videos))
	for _, raw := range list.Data.Videos {
		var v video
		if err := json.Unmarshal(raw, &v); err != nil {
			return domain.Failf[[]domain.ContentItem](domain.CodeNetworkError, "decoding TikTok video: %v", err)
		}
		item := domain.ContentItem{
			Platform:     domain.PlatformTikTok,
			ID:           v.ID,
			Kind:         domain.ContentVideo,
			Title:        v.Title,
			Caption:      v.VideoDescription,
			MediaURL:     v.EmbedLink,
			ThumbnailURL: v.CoverImageURL,
			Permalink:    v.ShareURL,
			Raw:          raw,
		}
		if v.CreateTime > 0 {
			item.CreatedAt = time.Unix(v.CreateTime, 0).UTC()
		}
		items = append(items, item)
	}

	var pg *domain.Pagination
	if list.Data.HasMore {
		pg = &domain.Pagination{Next: strconv.FormatInt(list.Data.Cursor, 10)}
	}
	return domain.OKPage(items, pg)
}

// GetContent returns videos.
func (s *Service) GetContent(ctx context.Context, limit int) domain.Response[[]domain.ContentItem] {
	return s.GetVideos(ctx, limit)
}

// handler implements TikTok Login Kit, which names the client id client_key
// and joins scopes with commas.
type handler struct {
	cfg    Config
	helper *oauth.Helper
	api    *restapi.Client
	now    func() time.Time
}

func (h *handler) BuildAuthURL(state string) string {
	q := url.Values{
		"client_key":    {h.cfg.ClientID},
		"response_type": {"code"},
		"scope":         {strings.Join(h.cfg.Scopes, ",")},
		"redirect_uri":  {h.cfg.RedirectURI},
	}
	if state != "" {
		q.Set("state", state)
	}
	return h.cfg.AuthURL + "?" + q.Encode()
}

func (h *handler) ExchangeCode(ctx context.Context, code string) domain.Response[*domain.OAuthToken] {
	return h.helper.ExchangeCodeForToken(ctx, oauth.ExchangeRequest{
		TokenURL:     h.cfg.tokenURL(),
		Code:         code,
		ClientID:     h.cfg.ClientID,
		ClientSecret: h.cfg.ClientSecret,
		RedirectURI:  h.cfg.RedirectURI,
		ExtraParams:  url.Values{"client_key": {h.cfg.ClientID}},
	})
}

func (h *handler) RefreshToken(ctx context.Context, current *domain.OAuthToken) domain.Response[*domain.OAuthToken] {
	if current.RefreshToken == "" {
		return domain.Failf[*domain.OAuthToken](domain.CodeRefreshFailed, "no TikTok refresh token available")
	}

	form := url.Values{
		"client_key":    {h.cfg.ClientID},
		"client_secret": {h.cfg.ClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {current.RefreshToken},
	}

	var resp oauth.TokenResponse
	if _, apiErr := h.api.PostForm(ctx, h.cfg.tokenURL(), form, nil, &resp); apiErr != nil {
		apiErr.Code = domain.CodeRefreshFailed
		return domain.Fail[*domain.OAuthToken](apiErr)
	}
	if resp.AccessToken == "" {
		return domain.Failf[*domain.OAuthToken](domain.CodeRefreshFailed, "TikTok refresh returned no access token")
	}

	token := resp.ToDomain(h.now())
	if token.RefreshToken == "" {
		token.RefreshToken = current.RefreshToken
	}
	return domain.OK(token)
}

func (h *handler) Revoke(ctx context.Context, accessToken string) error {
	form := url.Values{
		"client_key":    {h.cfg.ClientID},
		"client_secret": {h.cfg.ClientSecret},
		"token":         {accessToken},
	}
	if _, apiErr := h.api.PostForm(ctx, h.cfg.revokeURL(), form, nil, nil); apiErr != nil {
		return apiErr
	}
	return nil
}
