package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sociallink/internal/core/domain"
)

func pendingToken() domain.Response[*domain.OAuthToken] {
	return domain.OK(&domain.OAuthToken{AccessToken: domain.PendingCallbackToken, TokenType: domain.DefaultTokenType})
}

func freeLoopbackPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestConnectCmd_Use(t *testing.T) {
	assert.Equal(t, "connect <platform>", connectCmd.Use)
}

func TestConnectCmd_PrintsCallbackHint(t *testing.T) {
	mgr, _ := setupCLITest(t)
	mgr.authResp = pendingToken()

	out, err := execute(t, "connect", "Spotify")

	require.NoError(t, err)
	assert.Equal(t, []domain.Platform{domain.PlatformSpotify}, mgr.authCalls)
	assert.Contains(t, out, "sociallink callback spotify <code> --state <state>")
	assert.Empty(t, mgr.callbackCalls)
}

func TestConnectCmd_AuthFailure(t *testing.T) {
	mgr, _ := setupCLITest(t)
	mgr.authResp = domain.Failf[*domain.OAuthToken](domain.CodeAuthError, "no URL handler")

	_, err := execute(t, "connect", "tiktok")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect tiktok failed")
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, domain.CodeAuthError, apiErr.Code)
}

func TestConnectCmd_ListenCapturesRedirect(t *testing.T) {
	mgr, cfg := setupCLITest(t)
	redirect := fmt.Sprintf("http://127.0.0.1:%d/callback", freeLoopbackPort(t))
	require.NoError(t, cfg.Set("instagram.redirect_uri", redirect))

	mgr.authResp = pendingToken()
	mgr.callbackResp = domain.OK(&domain.OAuthToken{
		AccessToken: "IGQV-long",
		ExpiresAt:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	mgr.onAuth = func() {
		resp, err := http.Get(redirect + "?code=abc&state=s-1")
		if err == nil {
			resp.Body.Close()
		}
	}

	out, err := execute(t, "connect", "instagram", "--listen", "--timeout", "5s")

	require.NoError(t, err)
	require.Len(t, mgr.callbackCalls, 1)
	assert.Equal(t, callbackCall{platform: domain.PlatformInstagram, code: "abc", state: "s-1"}, mgr.callbackCalls[0])
	assert.Contains(t, out, "Waiting for the Instagram redirect")
	assert.Contains(t, out, "Connected to Instagram.")
	assert.Contains(t, out, "Token expires")
}

func TestConnectCmd_ListenReportsDenial(t *testing.T) {
	mgr, cfg := setupCLITest(t)
	redirect := fmt.Sprintf("http://127.0.0.1:%d/cb", freeLoopbackPort(t))
	require.NoError(t, cfg.Set("facebook.redirect_uri", redirect))

	mgr.authResp = pendingToken()
	mgr.onAuth = func() {
		resp, err := http.Get(redirect + "?error=access_denied&error_description=User+denied")
		if err == nil {
			resp.Body.Close()
		}
	}

	_, err := execute(t, "connect", "facebook", "--listen", "--timeout", "5s")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_denied")
	assert.Empty(t, mgr.callbackCalls)
}

func TestConnectCmd_ListenTimesOut(t *testing.T) {
	mgr, cfg := setupCLITest(t)
	require.NoError(t, cfg.Set("spotify.redirect_uri",
		fmt.Sprintf("http://127.0.0.1:%d/callback", freeLoopbackPort(t))))
	mgr.authResp = pendingToken()

	_, err := execute(t, "connect", "spotify", "--listen", "--timeout", "50ms")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, mgr.callbackCalls)
}

func TestConnectCmd_ListenRejectsRemoteRedirect(t *testing.T) {
	mgr, cfg := setupCLITest(t)
	require.NoError(t, cfg.Set("spotify.redirect_uri", "https://example.com/callback"))

	_, err := execute(t, "connect", "spotify", "--listen")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot listen for Spotify redirect")
	assert.Empty(t, mgr.authCalls)
}

type stubOpener struct {
	opened []string
	err    error
}

func (o *stubOpener) Open(_ context.Context, url string) error {
	o.opened = append(o.opened, url)
	return o.err
}

func TestURLOpener_DelegatesToBrowser(t *testing.T) {
	setupCLITest(t)
	browser := &stubOpener{}

	err := NewURLOpener(browser).Open(context.Background(), "https://accounts.spotify.com/authorize?x=1")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://accounts.spotify.com/authorize?x=1"}, browser.opened)
}

func TestURLOpener_BrowserFailureSuggestsNoBrowser(t *testing.T) {
	setupCLITest(t)
	browser := &stubOpener{err: errors.New("xdg-open not found")}

	err := NewURLOpener(browser).Open(context.Background(), "https://www.tiktok.com/v2/auth/authorize/")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--no-browser")
}

func TestURLOpener_NoBrowserPrints(t *testing.T) {
	setupCLITest(t)
	browser := &stubOpener{}
	connectNoBrowser = true

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	defer rootCmd.SetOut(nil)

	err := NewURLOpener(browser).Open(context.Background(), "https://www.facebook.com/v19.0/dialog/oauth")

	require.NoError(t, err)
	assert.Empty(t, browser.opened)
	assert.Contains(t, buf.String(), "https://www.facebook.com/v19.0/dialog/oauth")
}

func TestCallbackCmd_PassesCodeAndState(t *testing.T) {
	mgr, _ := setupCLITest(t)
	mgr.callbackResp = domain.OK(&domain.OAuthToken{AccessToken: "tok"})

	out, err := execute(t, "callback", "tiktok", "code-1", "--state", "st")

	require.NoError(t, err)
	assert.Equal(t, []callbackCall{{platform: domain.PlatformTikTok, code: "code-1", state: "st"}}, mgr.callbackCalls)
	assert.Contains(t, out, "Connected to TikTok.")
	assert.NotContains(t, out, "Token expires")
}

func TestCallbackCmd_StateMismatch(t *testing.T) {
	mgr, _ := setupCLITest(t)
	mgr.callbackResp = domain.Failf[*domain.OAuthToken](domain.CodeStateMismatch, "state does not match")

	_, err := execute(t, "callback", "spotify", "code-1", "--state", "forged")

	require.Error(t, err)
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, domain.CodeStateMismatch, apiErr.Code)
}

func TestCallbackCmd_RequiresCode(t *testing.T) {
	setupCLITest(t)

	_, err := execute(t, "callback", "spotify")
	assert.Error(t, err)
}

func TestDisconnectCmd(t *testing.T) {
	mgr, _ := setupCLITest(t)
	mgr.disconnectResp = domain.OK(true)

	out, err := execute(t, "disconnect", "facebook")

	require.NoError(t, err)
	assert.Equal(t, []domain.Platform{domain.PlatformFacebook}, mgr.disconnected)
	assert.Contains(t, out, "Disconnected from Facebook.")
}

func TestDisconnectCmd_Failure(t *testing.T) {
	mgr, _ := setupCLITest(t)
	mgr.disconnectResp = domain.Failf[bool](domain.CodeDisconnectError, "storage unavailable")

	_, err := execute(t, "disconnect", "facebook")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage unavailable")
}
