// Package restapi provides the HTTP plumbing shared by the platform adapters:
// an instrumented client, per-platform rate limiting and the mapping of vendor
// responses onto the domain error taxonomy.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/custodia-labs/sociallink/internal/adapters/driven/oauth"
	"github.com/custodia-labs/sociallink/internal/core/domain"
)

// DefaultTimeout bounds every vendor request.
const DefaultTimeout = 15 * time.Second

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 4 << 20

// NewHTTPClient returns a client with OpenTelemetry instrumentation.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}

// Client performs authenticated JSON requests against one vendor API.
type Client struct {
	platform     domain.Platform
	http         *http.Client
	limiter      *RateLimiter
	logger       *zap.Logger
	tokenInQuery bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithRateLimiter replaces the platform's default limiter.
func WithRateLimiter(l *RateLimiter) Option {
	return func(cl *Client) {
		cl.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// WithTokenInQuery sends the access token as the access_token query
// parameter instead of an Authorization header.
func WithTokenInQuery() Option {
	return func(cl *Client) {
		cl.tokenInQuery = true
	}
}

// NewClient creates a client for platform.
func NewClient(platform domain.Platform, opts ...Option) *Client {
	c := &Client{
		platform: platform,
		http:     NewHTTPClient(DefaultTimeout),
		limiter:  NewRateLimiter(platform),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("restapi").With(zap.String("platform", string(platform)))
	return c
}

// HTTPClient returns the underlying HTTP client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Get performs an authenticated GET and decodes the JSON body into out.
// It returns the raw body on success.
func (c *Client) Get(ctx context.Context, token, endpoint string, query url.Values, out any) (json.RawMessage, *domain.APIError) {
	req, apiErr := c.newRequest(ctx, http.MethodGet, token, endpoint, query, nil)
	if apiErr != nil {
		return nil, apiErr
	}
	return c.do(req, out)
}

// PostJSON performs an authenticated POST with a JSON payload.
func (c *Client) PostJSON(ctx context.Context, token, endpoint string, query url.Values, payload, out any) (json.RawMessage, *domain.APIError) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.NewAPIError(domain.CodeNetworkError, "encoding request: %v", err)
	}
	req, apiErr := c.newRequest(ctx, http.MethodPost, token, endpoint, query, bytes.NewReader(body))
	if apiErr != nil {
		return nil, apiErr
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// PostForm performs an unauthenticated form-encoded POST, as used by token
// endpoints with vendor-specific parameters.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values, header http.Header, out any) (json.RawMessage, *domain.APIError) {
	req, apiErr := c.newRequest(ctx, http.MethodPost, "", endpoint, nil, strings.NewReader(form.Encode()))
	if apiErr != nil {
		return nil, apiErr
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.do(req, out)
}

// Delete performs an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, token, endpoint string, query url.Values) *domain.APIError {
	req, apiErr := c.newRequest(ctx, http.MethodDelete, token, endpoint, query, nil)
	if apiErr != nil {
		return apiErr
	}
	_, apiErr = c.do(req, nil)
	return apiErr
}

func (c *Client) newRequest(ctx context.Context, method, token, endpoint string, query url.Values, body io.Reader) (*http.Request, *domain.APIError) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, domain.NewAPIError(domain.CodeNetworkError, "invalid endpoint %q: %v", endpoint, err)
	}

	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if token != "" && c.tokenInQuery {
		q.Set("access_token", token)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, domain.NewAPIError(domain.CodeNetworkError, "creating request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" && !c.tokenInQuery {
		for k, vs := range oauth.CreateAuthHeaders(token) {
			req.Header[k] = vs
		}
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) (json.RawMessage, *domain.APIError) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		if errors.Is(err, ErrRateLimited) {
			c.logger.Debug("skipping request during backoff", zap.String("path", req.URL.Path), zap.Error(err))
			return nil, domain.NewAPIError(domain.CodeAPIError, "%s %v", c.platform.DisplayName(), err).
				WithStatus(http.StatusTooManyRequests).
				WithDetail("retry_after_seconds", int(c.limiter.Backoff().Seconds()))
		}
		return nil, domain.NewAPIError(domain.CodeNetworkError, "waiting for rate limiter: %v", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("method", req.Method), zap.String("path", req.URL.Path), zap.Error(err))
		return nil, domain.NewAPIError(domain.CodeNetworkError, "%s request failed: %v", c.platform.DisplayName(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.NewAPIError(domain.CodeNetworkError, "reading %s response: %v", c.platform.DisplayName(), err)
	}

	c.logger.Debug("request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.RecordRateLimitError(retryAfter(resp.Header.Get("Retry-After")))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.vendorError(resp.StatusCode, body)
	}

	if out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, domain.NewAPIError(domain.CodeNetworkError, "decoding %s response: %v", c.platform.DisplayName(), err)
		}
	}
	return json.RawMessage(body), nil
}

func (c *Client) vendorError(status int, body []byte) *domain.APIError {
	code, msg := oauth.DescribeVendorError(body)
	if msg == "" {
		msg = fmt.Sprintf("%s API returned status %d", c.platform.DisplayName(), status)
	}
	apiErr := domain.NewAPIError(domain.CodeAPIError, "%s", msg).WithStatus(status)
	if code != "" {
		apiErr.WithDetail("vendor_code", code)
	}
	c.logger.Debug("vendor error", zap.Int("status", status), zap.String("vendor_code", code), zap.String("message", msg))
	return apiErr
}

// retryAfter parses a Retry-After header given in seconds. The limiter caps
// the result at MaxBackoff.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
