package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sociallink/internal/core/domain"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List supported platforms and whether they are connected",
	Args:  cobra.NoArgs,
	RunE:  runPlatforms,
}

func init() {
	rootCmd.AddCommand(platformsCmd)
}

func runPlatforms(cmd *cobra.Command, _ []string) error {
	if connectionManager == nil {
		return errors.New("connection manager not configured")
	}

	ctx := cmd.Context()
	connected := make(map[domain.Platform]bool)
	for _, p := range connectionManager.GetConnectedPlatforms(ctx) {
		connected[p] = true
	}

	for _, p := range domain.AllPlatforms() {
		mark := mutedStyle.Render("-")
		if connected[p] {
			mark = successStyle.Render("✓")
		}
		configured := ""
		if settingsService != nil && !settingsService.Get(p).IsConfigured() {
			configured = warningStyle.Render(" (no client id)")
		}
		cmd.Printf("%s %s %s%s\n", mark, nameStyle.Render(p.DisplayName()), mutedStyle.Render(string(p)), configured)
	}
	cmd.Printf("\n%d of %d connected\n", connectionManager.GetConnectedCount(ctx), len(domain.AllPlatforms()))
	return nil
}
