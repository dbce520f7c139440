package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("spotify.client_id", "cid"))

	val, ok := store.Get("spotify.client_id")
	assert.True(t, ok)
	assert.Equal(t, "cid", val)
	assert.Equal(t, "cid", store.GetString("spotify.client_id"))
}

func TestConfigStore_Set_EmptyKey(t *testing.T) {
	store := NewConfigStore()
	assert.Error(t, store.Set("", "value"))
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store := NewConfigStore()

	val, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.Empty(t, store.GetString("missing"))
	assert.Zero(t, store.GetInt("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_GetString_WrongType(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("http.timeout_seconds", 30))
	assert.Empty(t, store.GetString("http.timeout_seconds"))
}

func TestConfigStore_GetInt(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("a", 30))
	require.NoError(t, store.Set("b", int64(45)))
	require.NoError(t, store.Set("c", 12.0))
	require.NoError(t, store.Set("d", "60"))

	assert.Equal(t, 30, store.GetInt("a"))
	assert.Equal(t, 45, store.GetInt("b"))
	assert.Equal(t, 12, store.GetInt("c"))
	assert.Zero(t, store.GetInt("d"))
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("slice", []string{"user-read-email", "user-top-read"}))
	require.NoError(t, store.Set("any", []any{"user_profile", 7, "user_media"}))
	require.NoError(t, store.Set("csv", "public_profile, email,,user_posts"))
	require.NoError(t, store.Set("int", 5))

	assert.Equal(t, []string{"user-read-email", "user-top-read"}, store.GetStringSlice("slice"))
	assert.Equal(t, []string{"user_profile", "user_media"}, store.GetStringSlice("any"))
	assert.Equal(t, []string{"public_profile", "email", "user_posts"}, store.GetStringSlice("csv"))
	assert.Nil(t, store.GetStringSlice("int"))
}

func TestConfigStore_SaveCountsCalls(t *testing.T) {
	store := NewConfigStore()
	assert.Zero(t, store.Saves())

	require.NoError(t, store.Save())
	require.NoError(t, store.Save())

	assert.Equal(t, 2, store.Saves())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n)
			_ = store.Set(key, n)
			_ = store.GetInt(key)
			_ = store.Save()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 49, store.GetInt("k49"))
	assert.Equal(t, 50, store.Saves())
}
