package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sociallink/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sociallink/internal/core/domain"
)

// failingKV fails every operation with err.
type failingKV struct {
	err error
}

func (f *failingKV) Get(context.Context, string) (string, bool, error) { return "", false, f.err }
func (f *failingKV) Set(context.Context, string, string) error         { return f.err }
func (f *failingKV) MultiRemove(context.Context, ...string) error      { return f.err }
func (f *failingKV) Close() error                                      { return nil }

// fixedClock returns a clock that can be advanced by tests.
func fixedClock(t0 time.Time) (func() time.Time, func(time.Duration)) {
	now := t0
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func newTestCredentialStore(t *testing.T) (*CredentialStore, *memory.KeyValueStore, func(time.Duration)) {
	t.Helper()
	kv := memory.NewKeyValueStore()
	clock, advance := fixedClock(time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC))
	return NewCredentialStore(kv, WithClock(clock)), kv, advance
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "spotify_access_token", StorageKey(domain.PlatformSpotify, SuffixAccessToken))
	assert.Equal(t, "tiktok_user_data", StorageKey(domain.PlatformTikTok, SuffixUserData))
}

func TestCredentialStore_StoreToken_RoundTrip(t *testing.T) {
	store, _, _ := newTestCredentialStore(t)
	ctx := context.Background()

	err := store.StoreToken(ctx, domain.PlatformSpotify, &domain.OAuthToken{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    3600,
	})
	require.NoError(t, err)

	token, err := store.GetStoredToken(ctx, domain.PlatformSpotify)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "access", token.AccessToken)
	assert.Equal(t, "refresh", token.RefreshToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, store.Now().Add(time.Hour).UnixMilli(), token.ExpiresAt.UnixMilli())
}

func TestCredentialStore_StoreToken_OptionalFields(t *testing.T) {
	store, kv, _ := newTestCredentialStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreToken(ctx, domain.PlatformFacebook, &domain.OAuthToken{AccessToken: "only"}))

	token, err := store.GetStoredToken(ctx, domain.PlatformFacebook)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Empty(t, token.RefreshToken)
	assert.True(t, token.ExpiresAt.IsZero(), "no expires_in means no expiry")
	assert.Equal(t, 1, kv.Len())
}

func TestCredentialStore_StoreToken_ClearsStaleExpiry(t *testing.T) {
	store, _, _ := newTestCredentialStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreToken(ctx, domain.PlatformInstagram, &domain.OAuthToken{AccessToken: "a", ExpiresIn: 60}))
	require.NoError(t, store.StoreToken(ctx, domain.PlatformInstagram, &domain.OAuthToken{AccessToken: "b"}))

	token, err := store.GetStoredToken(ctx, domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, "b", token.AccessToken)
	assert.True(t, token.ExpiresAt.IsZero())
}

func TestCredentialStore_StoreToken_KeepsPreviousRefreshToken(t *testing.T) {
	store, _, _ := newTestCredentialStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreToken(ctx, domain.PlatformSpotify, &domain.OAuthToken{AccessToken: "a", RefreshToken: "r1"}))
	require.NoError(t, store.StoreToken(ctx, domain.PlatformSpotify, &domain.OAuthToken{AccessToken: "b"}))

	token, err := store.GetStoredToken(ctx, domain.PlatformSpotify)
	require.NoError(t, err)
	assert.Equal(t, "r1", token.RefreshToken)
}

func TestCredentialStore_StoreToken_RejectsInvalid(t *testing.T) {
	store, kv, _ := newTestCredentialStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.StoreToken(ctx, domain.PlatformSpotify, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.StoreToken(ctx, domain.PlatformSpotify, &domain.OAuthToken{}), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.StoreToken(ctx, domain.PlatformSpotify,
		&domain.OAuthToken{AccessToken: domain.PendingCallbackToken}), domain.ErrInvalidInput)
	assert.Equal(t, 0, kv.Len())
}

func TestCredentialStore_GetStoredToken_NoAccessToken(t *testing.T) {
	store, kv, _ := newTestCredentialStore(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "tiktok_refresh_token", "r"))
	require.NoError(t, kv.Set(ctx, "tiktok_expires_at", "1700000000000"))

	token, err := store.GetStoredToken(ctx, domain.PlatformTikTok)
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestCredentialStore_GetStoredToken_CorruptExpiry(t *testing.T) {
	store, kv, _ := newTestCredentialStore(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "tiktok_access_token", "a"))
	require.NoError(t, kv.Set(ctx, "tiktok_expires_at", "soon"))

	_, err := store.GetStoredToken(ctx, domain.PlatformTikTok)
	assert.Error(t, err)
}

func TestCredentialStore_ExpiryScenario(t *testing.T) {
	store, _, advance := newTestCredentialStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreToken(ctx, domain.PlatformSpotify, &domain.OAuthToken{AccessToken: "a", ExpiresIn: 3600}))
	token, err := store.GetStoredToken(ctx, domain.PlatformSpotify)
	require.NoError(t, err)

	advance(1000 * time.Second)
	assert.False(t, token.IsExpiredAt(store.Now()))

	advance(3000 * time.Second)
	assert.True(t, token.IsExpiredAt(store.Now()))
}

func TestCredentialStore_RemoveStoredTokens(t *testing.T) {
	store, kv, _ := newTestCredentialStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreToken(ctx, domain.PlatformInstagram, &domain.OAuthToken{
		AccessToken: "a", RefreshToken: "r", ExpiresIn: 100,
	}))
	require.NoError(t, store.StoreUserData(ctx, domain.PlatformInstagram, json.RawMessage(`{"id":"1"}`)))
	require.NoError(t, store.StoreLastSync(ctx, domain.PlatformInstagram, store.Now()))
	require.NoError(t, store.StorePendingState(ctx, domain.PlatformInstagram, "s"))
	require.NoError(t, store.StoreToken(ctx, domain.PlatformSpotify, &domain.OAuthToken{AccessToken: "keep"}))

	require.NoError(t, store.RemoveStoredTokens(ctx, domain.PlatformInstagram))

	token, err := store.GetStoredToken(ctx, domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Nil(t, token)
	data, err := store.GetStoredUserData(ctx, domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, 1, kv.Len(), "only the other platform's token remains")
}

func TestCredentialStore_UserData(t *testing.T) {
	store, _, _ := newTestCredentialStore(t)
	ctx := context.Background()

	data, err := store.GetStoredUserData(ctx, domain.PlatformTikTok)
	require.NoError(t, err)
	assert.Nil(t, data)

	payload := json.RawMessage(`{"open_id":"x","display_name":"Jo"}`)
	require.NoError(t, store.StoreUserData(ctx, domain.PlatformTikTok, payload))

	data, err = store.GetStoredUserData(ctx, domain.PlatformTikTok)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(data))
}

func TestCredentialStore_LastSync(t *testing.T) {
	store, _, _ := newTestCredentialStore(t)
	ctx := context.Background()

	at, err := store.GetLastSync(ctx, domain.PlatformFacebook)
	require.NoError(t, err)
	assert.Nil(t, at)

	require.NoError(t, store.StoreLastSync(ctx, domain.PlatformFacebook, store.Now()))

	at, err = store.GetLastSync(ctx, domain.PlatformFacebook)
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.True(t, at.Equal(store.Now()))
}

func TestCredentialStore_PendingState(t *testing.T) {
	store, _, _ := newTestCredentialStore(t)
	ctx := context.Background()

	state, err := store.GetPendingState(ctx, domain.PlatformSpotify)
	require.NoError(t, err)
	assert.Empty(t, state)

	require.NoError(t, store.StorePendingState(ctx, domain.PlatformSpotify, "abc"))

	state, err = store.GetPendingState(ctx, domain.PlatformSpotify)
	require.NoError(t, err)
	assert.Equal(t, "abc", state)

	state, err = store.GetPendingState(ctx, domain.PlatformSpotify)
	require.NoError(t, err)
	assert.Equal(t, "abc", state, "reading does not consume")

	require.NoError(t, store.ClearPendingState(ctx, domain.PlatformSpotify))
	state, err = store.GetPendingState(ctx, domain.PlatformSpotify)
	require.NoError(t, err)
	assert.Empty(t, state)
}

func TestCredentialStore_StorageFaultsPropagate(t *testing.T) {
	boom := errors.New("disk full")
	store := NewCredentialStore(&failingKV{err: boom})
	ctx := context.Background()

	assert.ErrorIs(t, store.StoreToken(ctx, domain.PlatformSpotify, &domain.OAuthToken{AccessToken: "a"}), boom)
	_, err := store.GetStoredToken(ctx, domain.PlatformSpotify)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, store.RemoveStoredTokens(ctx, domain.PlatformSpotify), boom)
	assert.ErrorIs(t, store.StoreUserData(ctx, domain.PlatformSpotify, json.RawMessage(`{}`)), boom)
}
