package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sociallink/internal/core/domain"
)

var (
	configClientID     string
	configClientSecret string
	configRedirectURI  string
	configScopes       []string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage platform OAuth client settings",
	Long: `View and configure the OAuth client registered with each platform.

Client IDs and secrets can also be supplied through the environment as
SOCIALLINK_<PLATFORM>_CLIENT_ID and SOCIALLINK_<PLATFORM>_CLIENT_SECRET.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show [platform]",
	Short: "Show current settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <platform>",
	Short: "Set the OAuth client for a platform",
	Long: `Sets the OAuth client for a platform. Without flags the values are
prompted for interactively; the client secret is read without echo.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigSet,
}

func init() {
	configSetCmd.Flags().StringVar(&configClientID, "client-id", "", "OAuth client ID (TikTok client key)")
	configSetCmd.Flags().StringVar(&configClientSecret, "client-secret", "", "OAuth client secret")
	configSetCmd.Flags().StringVar(&configRedirectURI, "redirect-uri", "", "registered redirect URI")
	configSetCmd.Flags().StringSliceVar(&configScopes, "scopes", nil, "scopes to request instead of the defaults")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	platforms := domain.AllPlatforms()
	if len(args) > 0 {
		p, err := domain.ParsePlatform(args[0])
		if err != nil {
			return err
		}
		platforms = []domain.Platform{p}
	}

	for _, p := range platforms {
		s := settingsService.Get(p)
		cmd.Println(titleStyle.Render("[" + p.DisplayName() + "]"))
		clientID := s.ClientID
		if clientID == "" {
			clientID = "(not set)"
		}
		cmd.Printf("  Client ID: %s\n", clientID)
		cmd.Printf("  Client secret: %s\n", maskSecret(s.ClientSecret))
		cmd.Printf("  Redirect URI: %s\n", s.RedirectURI)
		if len(s.Scopes) > 0 {
			cmd.Printf("  Scopes: %s\n", strings.Join(s.Scopes, ", "))
		} else {
			cmd.Printf("  Scopes: %s\n", mutedStyle.Render("(platform defaults)"))
		}
		cmd.Println()
	}

	if len(args) == 0 {
		cmd.Println(titleStyle.Render("[Storage]"))
		cmd.Printf("  Backend: %s\n", settingsService.StorageBackend())
		cmd.Printf("  Data dir: %s\n", settingsService.DataDir())
		cmd.Printf("  HTTP timeout: %ds\n", settingsService.HTTPTimeoutSeconds())
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	platform, err := domain.ParsePlatform(args[0])
	if err != nil {
		return err
	}

	current := settingsService.Get(platform)
	settings := domain.PlatformSettings{Platform: platform}

	flags := cmd.Flags()
	if flags.Changed("client-id") || flags.Changed("client-secret") ||
		flags.Changed("redirect-uri") || flags.Changed("scopes") {
		settings.ClientID = orDefault(configClientID, current.ClientID)
		settings.ClientSecret = configClientSecret
		settings.RedirectURI = configRedirectURI
		settings.Scopes = configScopes
	} else {
		settings = promptSettings(cmd, current)
	}

	if settings.ClientID == "" {
		return fmt.Errorf("%s client id is required", platform.DisplayName())
	}
	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Printf("%s client configured.\n", platform.DisplayName())
	return nil
}

func promptSettings(cmd *cobra.Command, current domain.PlatformSettings) domain.PlatformSettings {
	reader := bufio.NewReader(stdin)
	s := domain.PlatformSettings{Platform: current.Platform}

	cmd.Printf("Client ID [%s]: ", current.ClientID)
	s.ClientID = orDefault(readLine(reader), current.ClientID)

	cmd.Print("Client secret (empty keeps the current one): ")
	s.ClientSecret = readSecret(reader)
	cmd.Println()

	cmd.Printf("Redirect URI [%s]: ", current.RedirectURI)
	s.RedirectURI = readLine(reader)

	cmd.Printf("Scopes, comma separated [%s]: ", strings.Join(current.Scopes, ","))
	if raw := readLine(reader); raw != "" {
		for _, scope := range strings.Split(raw, ",") {
			if scope = strings.TrimSpace(scope); scope != "" {
				s.Scopes = append(s.Scopes, scope)
			}
		}
	}
	return s
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
