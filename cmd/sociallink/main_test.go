package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sociallink/internal/adapters/driven/oauth"
	"github.com/custodia-labs/sociallink/internal/core/domain"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))
}

func TestBuild_MemoryBackend(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[storage]
backend = "memory"

[spotify]
client_id = "spotify-cid"
`)

	a, err := build(dir, &oauth.PrintOpener{W: os.Stderr})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "spotify-cid", a.settings.Get(domain.PlatformSpotify).ClientID)
	for _, p := range domain.AllPlatforms() {
		svc, err := a.manager.GetService(p)
		require.NoError(t, err)
		assert.Equal(t, p, svc.Platform())
	}
	assert.False(t, a.manager.HasAnyConnections(context.Background()))
}

func TestBuild_SQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	writeConfig(t, dir, `
[storage]
data_dir = "`+filepath.ToSlash(dataDir)+`"
`)

	a, err := build(dir, &oauth.PrintOpener{W: os.Stderr})
	require.NoError(t, err)

	statuses := a.manager.GetAllConnectionStatuses(context.Background())
	require.Len(t, statuses, len(domain.AllPlatforms()))
	for _, s := range statuses {
		assert.False(t, s.IsConnected)
	}
	require.NoError(t, a.Close())

	_, err = os.Stat(filepath.Join(dataDir, "credentials.db"))
	assert.NoError(t, err)
}
