// Command sociallink connects Instagram, Facebook, TikTok and Spotify
// accounts over OAuth and syncs their profile and content.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/sociallink/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sociallink/internal/adapters/driven/oauth"
	"github.com/custodia-labs/sociallink/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sociallink/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sociallink/internal/adapters/driving/cli"
	"github.com/custodia-labs/sociallink/internal/connectors"
	"github.com/custodia-labs/sociallink/internal/connectors/facebook"
	"github.com/custodia-labs/sociallink/internal/connectors/instagram"
	"github.com/custodia-labs/sociallink/internal/connectors/restapi"
	"github.com/custodia-labs/sociallink/internal/connectors/spotify"
	"github.com/custodia-labs/sociallink/internal/connectors/tiktok"
	"github.com/custodia-labs/sociallink/internal/core/domain"
	"github.com/custodia-labs/sociallink/internal/core/ports/driven"
	"github.com/custodia-labs/sociallink/internal/core/services"
	"github.com/custodia-labs/sociallink/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// configDirEnv overrides the config directory.
const configDirEnv = "SOCIALLINK_CONFIG_DIR"

func main() {
	os.Exit(run())
}

func run() int {
	defer logger.Sync()

	a, err := build(os.Getenv(configDirEnv), oauth.NewBrowserOpener())
	if err != nil {
		fmt.Fprintf(os.Stderr, "sociallink: %v\n", err)
		return 1
	}
	defer a.Close()

	cli.SetVersion(version)
	cli.SetSettingsService(a.settings)
	cli.SetConnectionManager(a.manager)

	if err := cli.Execute(); err != nil {
		return 1
	}
	return 0
}

// app holds the wired services and the resources to release on exit.
type app struct {
	settings *services.SettingsService
	manager  *services.ConnectionManager
	kv       driven.KeyValueStore
}

// Close releases the key-value store.
func (a *app) Close() error {
	return a.kv.Close()
}

// build wires config, storage, adapters and the connection manager.
func build(configDir string, browser driven.URLOpener) (*app, error) {
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settings := services.NewSettingsService(configStore)

	kv, err := openKeyValueStore(settings)
	if err != nil {
		return nil, err
	}

	creds := services.NewCredentialStore(kv, services.WithCredentialLogger(logger.L()))
	deps := connectors.Deps{
		Credentials: creds,
		Opener:      cli.NewURLOpener(browser),
		HTTPClient:  restapi.NewHTTPClient(time.Duration(settings.HTTPTimeoutSeconds()) * time.Second),
		Logger:      logger.L(),
	}

	adapters := []driven.PlatformService{
		newInstagram(settings.Get(domain.PlatformInstagram), deps),
		newFacebook(settings.Get(domain.PlatformFacebook), deps),
		newTikTok(settings.Get(domain.PlatformTikTok), deps),
		newSpotify(settings.Get(domain.PlatformSpotify), deps),
	}

	return &app{
		settings: settings,
		manager:  services.NewConnectionManager(creds, adapters),
		kv:       kv,
	}, nil
}

func openKeyValueStore(settings *services.SettingsService) (driven.KeyValueStore, error) {
	if settings.StorageBackend() == services.BackendMemory {
		logger.Debug("using in-memory credential storage")
		return memory.NewKeyValueStore(), nil
	}
	store, err := sqlite.NewStore(settings.DataDir())
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}
	logger.Debug("credential storage at %s", store.Path())
	return store, nil
}

func newInstagram(s domain.PlatformSettings, deps connectors.Deps) driven.PlatformService {
	return instagram.New(instagram.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		RedirectURI:  s.RedirectURI,
		Scopes:       s.Scopes,
	}, deps)
}

func newFacebook(s domain.PlatformSettings, deps connectors.Deps) driven.PlatformService {
	return facebook.New(facebook.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		RedirectURI:  s.RedirectURI,
		Scopes:       s.Scopes,
	}, deps)
}

func newTikTok(s domain.PlatformSettings, deps connectors.Deps) driven.PlatformService {
	return tiktok.New(tiktok.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		RedirectURI:  s.RedirectURI,
		Scopes:       s.Scopes,
	}, deps)
}

func newSpotify(s domain.PlatformSettings, deps connectors.Deps) driven.PlatformService {
	return spotify.New(spotify.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		RedirectURI:  s.RedirectURI,
		Scopes:       s.Scopes,
	}, deps)
}
