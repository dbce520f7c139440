// Package oauth provides the OAuth 2.0 flow helpers shared by every platform
// adapter: authorization URL construction, state generation, code exchange,
// refresh grants, expiry checks and host URL opening.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/sociallink/internal/core/domain"
)

// TokenResponse is the common JSON shape of vendor token endpoints.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ToDomain normalises the response, defaulting TokenType to Bearer.
func (r TokenResponse) ToDomain(now time.Time) *domain.OAuthToken {
	tokenType := r.TokenType
	if tokenType == "" {
		tokenType = domain.DefaultTokenType
	}
	t := &domain.OAuthToken{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    tokenType,
		Scope:        r.Scope,
		ExpiresIn:    r.ExpiresIn,
	}
	return t.WithExpiryFrom(now)
}

// Helper performs the vendor-neutral parts of the OAuth flow.
type Helper struct {
	client *http.Client
	now    func() time.Time
	logger *zap.Logger
}

// HelperOption configures a Helper.
type HelperOption func(*Helper)

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(c *http.Client) HelperOption {
	return func(h *Helper) {
		h.client = c
	}
}

// WithNow overrides the clock used to compute expiry.
func WithNow(now func() time.Time) HelperOption {
	return func(h *Helper) {
		h.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) HelperOption {
	return func(h *Helper) {
		h.logger = l.Named("oauth")
	}
}

// NewHelper creates a Helper. Without options it uses a 30 second client.
func NewHelper(opts ...HelperOption) *Helper {
	h := &Helper{
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GenerateAuthURL builds an authorization URL with client_id, redirect_uri,
// space-joined scope, response_type=code and state when state is non-empty.
// Extra vendor parameters can be added with oauth2.SetAuthURLParam.
func GenerateAuthURL(authorizeEndpoint, clientID, redirectURI string, scopes []string, state string, extra ...oauth2.AuthCodeOption) string {
	cfg := oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes:      scopes,
		Endpoint:    oauth2.Endpoint{AuthURL: authorizeEndpoint},
	}
	return cfg.AuthCodeURL(state, extra...)
}

// GenerateState returns a random opaque value for the state parameter.
func GenerateState() string {
	return uuid.NewString()
}

// ExchangeRequest describes an authorization_code grant.
type ExchangeRequest struct {
	TokenURL     string
	Code         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// ExtraParams are added to the form body.
	ExtraParams url.Values
}

// ExchangeCodeForToken performs the authorization_code grant as a
// form-encoded POST. Vendor rejections become API_ERROR failures carrying the
// vendor's error code and description; transport and decoding faults become
// NETWORK_ERROR.
func (h *Helper) ExchangeCodeForToken(ctx context.Context, req ExchangeRequest) domain.Response[*domain.OAuthToken] {
	cfg := oauth2.Config{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		RedirectURL:  req.RedirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  req.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	var opts []oauth2.AuthCodeOption
	for key, values := range req.ExtraParams {
		if len(values) > 0 {
			opts = append(opts, oauth2.SetAuthURLParam(key, values[0]))
		}
	}

	tok, err := cfg.Exchange(h.clientContext(ctx), req.Code, opts...)
	if err != nil {
		h.logger.Warn("code exchange failed", zap.String("token_url", req.TokenURL), zap.Error(err))
		return domain.Fail[*domain.OAuthToken](TokenError(err, "exchanging authorization code"))
	}
	return domain.OK(h.fromOAuth2(tok))
}

// RefreshRequest describes a refresh_token grant.
type RefreshRequest struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	// AuthStyle selects how client credentials are sent; zero auto-detects.
	AuthStyle oauth2.AuthStyle
}

// Refresh performs the refresh_token grant. When the vendor does not rotate
// the refresh token the one supplied is kept.
func (h *Helper) Refresh(ctx context.Context, req RefreshRequest) domain.Response[*domain.OAuthToken] {
	if req.RefreshToken == "" {
		return domain.Failf[*domain.OAuthToken](domain.CodeRefreshFailed, "no refresh token available")
	}

	cfg := oauth2.Config{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  req.TokenURL,
			AuthStyle: req.AuthStyle,
		},
	}

	tok, err := cfg.TokenSource(h.clientContext(ctx), &oauth2.Token{RefreshToken: req.RefreshToken}).Token()
	if err != nil {
		h.logger.Warn("refresh failed", zap.String("token_url", req.TokenURL), zap.Error(err))
		apiErr := TokenError(err, "refreshing token")
		apiErr.Code = domain.CodeRefreshFailed
		return domain.Fail[*domain.OAuthToken](apiErr)
	}

	token := h.fromOAuth2(tok)
	if token.RefreshToken == "" {
		token.RefreshToken = req.RefreshToken
	}
	return domain.OK(token)
}

// IsTokenExpired reports whether token is expired at now.
// A token without expiry never expires.
func IsTokenExpired(token *domain.OAuthToken, now time.Time) bool {
	return token.IsExpiredAt(now)
}

// CreateAuthHeaders returns the bearer Authorization header for accessToken.
func CreateAuthHeaders(accessToken string) http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+accessToken)
	return h
}

// TokenError converts a token endpoint failure into an APIError.
func TokenError(err error, action string) *domain.APIError {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return domain.NewAPIError(domain.CodeNetworkError, "%s: %v", action, err)
	}

	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}

	code, msg := re.ErrorCode, re.ErrorDescription
	if code == "" && msg == "" {
		code, msg = DescribeVendorError(re.Body)
	}
	if msg == "" {
		msg = code
	}
	if msg == "" {
		msg = fmt.Sprintf("token endpoint returned status %d", status)
	}

	apiErr := domain.NewAPIError(domain.CodeAPIError, "%s", msg).WithStatus(status)
	if code != "" {
		apiErr.WithDetail("vendor_code", code)
	}
	return apiErr
}

// DescribeVendorError extracts an error code and message from the error
// bodies used by the supported vendors:
//
//	{"error":"invalid_grant","error_description":"..."}       RFC 6749
//	{"error":{"message":"...","type":"OAuthException","code":190}}  Graph API
//	{"error":{"status":401,"message":"..."}}                  Spotify Web API
//	{"error":{"code":"access_token_invalid","message":"..."}} TikTok v2
//	{"error_type":"...","error_message":"..."}                Instagram
func DescribeVendorError(body []byte) (code, message string) {
	var probe struct {
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
		ErrorType        string          `json:"error_type"`
		ErrorMessage     string          `json:"error_message"`
		Message          string          `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return "", strings.TrimSpace(truncate(string(body), 200))
	}

	if probe.ErrorMessage != "" {
		return probe.ErrorType, probe.ErrorMessage
	}

	if len(probe.Error) > 0 {
		var s string
		if json.Unmarshal(probe.Error, &s) == nil {
			return s, probe.ErrorDescription
		}
		var nested struct {
			Message string          `json:"message"`
			Type    string          `json:"type"`
			Code    json.RawMessage `json:"code"`
		}
		if json.Unmarshal(probe.Error, &nested) == nil {
			code := nested.Type
			if code == "" && len(nested.Code) > 0 {
				code = strings.Trim(string(nested.Code), `"`)
			}
			return code, nested.Message
		}
	}

	return "", probe.Message
}

func (h *Helper) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, h.client)
}

func (h *Helper) fromOAuth2(tok *oauth2.Token) *domain.OAuthToken {
	resp := TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    expiresIn(tok, h.now()),
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		resp.Scope = scope
	}
	return resp.ToDomain(h.now())
}

// expiresIn reads expires_in from the raw response, falling back to the
// expiry computed by x/oauth2.
func expiresIn(tok *oauth2.Token, now time.Time) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	if secs := int64(tok.Expiry.Sub(now).Round(time.Second) / time.Second); secs > 0 {
		return secs
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
