package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sociallink/internal/connectors/connectortest"
	"github.com/custodia-labs/sociallink/internal/core/domain"
	"github.com/custodia-labs/sociallink/internal/core/services"
)

func newTestService(t *testing.T, mux *http.ServeMux) (*Service, *connectortest.Env) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	env := connectortest.NewEnv()
	svc := New(Config{
		ClientID:     "sp-client",
		ClientSecret: "sp-secret",
		RedirectURI:  "http://127.0.0.1:8888/callback",
		AuthURL:      srv.URL + "/authorize",
		TokenURL:     srv.URL + "/api/token",
		APIURL:       srv.URL + "/v1",
	}, env.Deps(srv.Client()))
	return svc, env
}

func TestAuthenticate(t *testing.T) {
	svc, env := newTestService(t, http.NewServeMux())

	require.True(t, svc.Authenticate(context.Background()).Success)

	u, err := url.Parse(env.Opener.Last())
	require.NoError(t, err)
	assert.Equal(t, "/authorize", u.Path)
	assert.Equal(t, "sp-client", u.Query().Get("client_id"))
	assert.Equal(t, "user-read-private user-read-email user-top-read playlist-read-private", u.Query().Get("scope"))

	state, ok := env.Value(t, domain.PlatformSpotify, services.SuffixOAuthState)
	require.True(t, ok)
	assert.Equal(t, state, u.Query().Get("state"))
}

func TestCallbackThenProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"BQD","token_type":"Bearer","scope":"user-read-private","expires_in":3600,"refresh_token":"AQC"}`)
	})
	mux.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer BQD", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"id":"ada","display_name":"Ada","images":[{"url":"https://i.scdn.co/a.jpg"}],"external_urls":{"spotify":"https://open.spotify.com/user/ada"},"followers":{"total":7}}`)
	})
	svc, env := newTestService(t, mux)
	ctx := context.Background()

	require.True(t, svc.Authenticate(ctx).Success)
	state, _ := env.Value(t, domain.PlatformSpotify, services.SuffixOAuthState)

	cb := svc.HandleAuthCallback(ctx, "code", state)
	require.True(t, cb.Success, "%v", cb.Err())
	assert.True(t, svc.IsConnected(ctx))

	resp := svc.GetUserProfile(ctx)
	require.True(t, resp.Success, "%v", resp.Err())
	assert.Equal(t, "Ada", resp.Data.DisplayName)
	assert.Equal(t, "https://i.scdn.co/a.jpg", resp.Data.AvatarURL)
	assert.Equal(t, int64(7), resp.Data.FollowerCount)
}

func TestGetContent_TracksThenPlaylists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/me/top/tracks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"items":[{"id":"t1","name":"Song","artists":[{"name":"Band"}],"album":{"name":"LP","release_date":"2020-01-31","images":[{"url":"https://i/lp.jpg"}]},"external_urls":{"spotify":"https://open.spotify.com/track/t1"}}],"total":1}`)
	})
	mux.HandleFunc("/v1/me/playlists", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"id":"p1","name":"Mix","description":"weekly","images":[]}],"next":"https://api.spotify.com/v1/me/playlists?offset=5","total":9}`)
	})
	svc, env := newTestService(t, mux)
	env.Connect(t, domain.PlatformSpotify, "BQD", "AQC", 3600)

	resp := svc.GetContent(context.Background(), 5)
	require.True(t, resp.Success, "%v", resp.Err())
	require.Len(t, resp.Data, 2)
	assert.Equal(t, domain.ContentTrack, resp.Data[0].Kind)
	assert.Equal(t, "Band · LP", resp.Data[0].Caption)
	assert.Equal(t, 2020, resp.Data[0].CreatedAt.Year())
	assert.Equal(t, domain.ContentPlaylist, resp.Data[1].Kind)
	assert.Equal(t, "Mix", resp.Data[1].Title)

	playlists := svc.GetPlaylists(context.Background(), 5)
	require.NotNil(t, playlists.Pagination)
	assert.Equal(t, 9, playlists.Pagination.Total)
}

func TestGetContent_FailureFailsWholeFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/me/top/tracks", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"status":403,"message":"Insufficient client scope"}}`)
	})
	mux.HandleFunc("/v1/me/playlists", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[],"total":0}`)
	})
	svc, env := newTestService(t, mux)
	env.Connect(t, domain.PlatformSpotify, "BQD", "", 0)

	resp := svc.GetContent(context.Background(), 0)
	require.False(t, resp.Success)
	assert.Empty(t, resp.Data)
	assert.Equal(t, "Insufficient client scope", resp.Error.Message)
	assert.Equal(t, http.StatusForbidden, resp.Error.Status)
	assert.False(t, resp.Error.RequiresReauth())
}

func TestGetContent_FetchesListsConcurrently(t *testing.T) {
	var arrived sync.WaitGroup
	arrived.Add(2)
	both := make(chan struct{})
	go func() {
		arrived.Wait()
		close(both)
	}()
	await := func(t *testing.T) {
		arrived.Done()
		select {
		case <-both:
		case <-time.After(2 * time.Second):
			t.Error("lists were fetched one after the other")
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/me/top/tracks", func(w http.ResponseWriter, r *http.Request) {
		await(t)
		fmt.Fprint(w, `{"items":[{"id":"t1","name":"Song"}],"total":1}`)
	})
	mux.HandleFunc("/v1/me/playlists", func(w http.ResponseWriter, r *http.Request) {
		await(t)
		fmt.Fprint(w, `{"items":[{"id":"p1","name":"Mix"}],"total":1}`)
	})
	svc, env := newTestService(t, mux)
	env.Connect(t, domain.PlatformSpotify, "BQD", "", 0)

	resp := svc.GetContent(context.Background(), 5)
	require.True(t, resp.Success, "%v", resp.Err())
	require.Len(t, resp.Data, 2)
	assert.Equal(t, domain.ContentTrack, resp.Data[0].Kind)
	assert.Equal(t, domain.ContentPlaylist, resp.Data[1].Kind)
}

func TestRefreshToken_BasicAuthKeepsRefreshToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "sp-client", user)
		assert.Equal(t, "sp-secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "AQC", r.PostForm.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"BQE","token_type":"Bearer","expires_in":3600}`)
	})
	svc, env := newTestService(t, mux)
	env.Connect(t, domain.PlatformSpotify, "BQD", "AQC", 10)

	resp := svc.RefreshToken(context.Background(), "")
	require.True(t, resp.Success, "%v", resp.Err())
	assert.Equal(t, "AQC", resp.Data.RefreshToken)

	stored, err := env.Creds.GetStoredToken(context.Background(), domain.PlatformSpotify)
	require.NoError(t, err)
	assert.Equal(t, "BQE", stored.AccessToken)
	assert.Equal(t, "AQC", stored.RefreshToken)
}

func TestRefreshToken_WithoutRefreshToken(t *testing.T) {
	svc, env := newTestService(t, http.NewServeMux())
	env.Connect(t, domain.PlatformSpotify, "BQD", "", 0)

	resp := svc.RefreshToken(context.Background(), "")
	require.False(t, resp.Success)
	assert.Equal(t, domain.CodeRefreshFailed, resp.Error.Code)
}
