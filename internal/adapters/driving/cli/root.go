// Package cli provides the sociallink command-line interface.
//
// Commands talk to the core through the driving ports only. The services are
// injected by cmd/sociallink before Execute is called.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sociallink/internal/core/ports/driving"
	"github.com/custodia-labs/sociallink/internal/logger"
)

var (
	version = "dev"
	verbose bool
)

var (
	connectionManager driving.ConnectionManager
	settingsService   driving.SettingsService
)

var rootCmd = &cobra.Command{
	Use:   "sociallink",
	Short: "Connect Instagram, Facebook, TikTok and Spotify accounts",
	Long: `sociallink manages OAuth connections to Instagram, Facebook, TikTok and
Spotify. It stores tokens locally, refreshes them and fetches the connected
profile and recent content from each platform.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetConnectionManager injects the connection manager.
func SetConnectionManager(m driving.ConnectionManager) {
	connectionManager = m
}

// SetSettingsService injects the settings service.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
