package restapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sociallink/internal/core/domain"
)

func newTestClient(opts ...Option) *Client {
	opts = append([]Option{
		WithHTTPClient(&http.Client{Timeout: 5 * time.Second}),
		WithRateLimiter(NewRateLimiterWithConfig(RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000})),
	}, opts...)
	return NewClient(domain.PlatformSpotify, opts...)
}

func TestClient_Get_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"u1","display_name":"Ana"}`)
	}))
	defer server.Close()

	var out struct {
		ID   string `json:"id"`
		Name string `json:"display_name"`
	}
	raw, apiErr := newTestClient().Get(context.Background(), "tok", server.URL+"/v1/me", url.Values{"limit": {"5"}}, &out)

	require.Nil(t, apiErr)
	assert.Equal(t, "u1", out.ID)
	assert.Equal(t, "Ana", out.Name)
	assert.JSONEq(t, `{"id":"u1","display_name":"Ana"}`, string(raw))
}

func TestClient_TokenInQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		assert.Equal(t, "id,username", r.URL.Query().Get("fields"))
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	_, apiErr := newTestClient(WithTokenInQuery()).Get(context.Background(), "tok", server.URL+"/me?fields=id,username", nil, nil)
	assert.Nil(t, apiErr)
}

func TestClient_VendorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"status":401,"message":"The access token expired"}}`)
	}))
	defer server.Close()

	_, apiErr := newTestClient().Get(context.Background(), "tok", server.URL, nil, nil)

	require.NotNil(t, apiErr)
	assert.Equal(t, domain.CodeAPIError, apiErr.Code)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "The access token expired", apiErr.Message)
	assert.True(t, apiErr.RequiresReauth())
}

func TestClient_VendorErrorWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, apiErr := newTestClient().Get(context.Background(), "tok", server.URL, nil, nil)

	require.NotNil(t, apiErr)
	assert.Equal(t, "Spotify API returned status 502", apiErr.Message)
}

func TestClient_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))
	defer server.Close()

	var out map[string]any
	_, apiErr := newTestClient().Get(context.Background(), "tok", server.URL, nil, &out)

	require.NotNil(t, apiErr)
	assert.Equal(t, domain.CodeNetworkError, apiErr.Code)
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := server.URL
	server.Close()

	_, apiErr := newTestClient().Get(context.Background(), "tok", endpoint, nil, nil)

	require.NotNil(t, apiErr)
	assert.Equal(t, domain.CodeNetworkError, apiErr.Code)
}

func TestClient_PostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"max_count":10}`, string(body))
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer server.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	_, apiErr := newTestClient().PostJSON(context.Background(), "tok", server.URL, nil, map[string]int{"max_count": 10}, &out)

	require.Nil(t, apiErr)
	assert.True(t, out.OK)
}

func TestClient_PostForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		_, _ = io.WriteString(w, `{"access_token":"a"}`)
	}))
	defer server.Close()

	header := http.Header{"Cache-Control": {"no-cache"}}
	_, apiErr := newTestClient().PostForm(context.Background(), server.URL, url.Values{"grant_type": {"refresh_token"}}, header, nil)
	assert.Nil(t, apiErr)
}

func TestClient_Delete(t *testing.T) {
	var method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	defer server.Close()

	apiErr := newTestClient().Delete(context.Background(), "tok", server.URL, nil)

	assert.Nil(t, apiErr)
	assert.Equal(t, http.MethodDelete, method)
}

func TestClient_TooManyRequestsSetsBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	limiter := NewRateLimiterWithConfig(RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000})
	_, apiErr := newTestClient(WithRateLimiter(limiter)).Get(context.Background(), "tok", server.URL, nil, nil)

	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Greater(t, limiter.Backoff(), 25*time.Second, "limiter backs off after 429")
}

func TestClient_HugeRetryAfterFailsFast(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Retry-After", "86400")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	limiter := NewRateLimiterWithConfig(RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000})
	client := newTestClient(WithRateLimiter(limiter))

	_, apiErr := client.Get(context.Background(), "tok", server.URL, nil, nil)
	require.NotNil(t, apiErr)
	assert.LessOrEqual(t, limiter.Backoff(), MaxBackoff)

	start := time.Now()
	_, apiErr = client.Get(context.Background(), "tok", server.URL, nil, nil)

	assert.Less(t, time.Since(start), time.Second)
	require.NotNil(t, apiErr)
	assert.Equal(t, domain.CodeAPIError, apiErr.Code)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Contains(t, apiErr.Message, "rate limited")
	assert.Equal(t, 1, calls, "no request is sent during the backoff")
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 30*time.Second, retryAfter("30"))
	assert.Equal(t, time.Duration(0), retryAfter(""))
	assert.Equal(t, time.Duration(0), retryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(0)

	assert.Equal(t, DefaultTimeout, c.Timeout)
	assert.NotNil(t, c.Transport)
}
