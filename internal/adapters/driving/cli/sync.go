package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sociallink/internal/core/domain"
)

var syncJSON bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch profile and content from connected platforms",
	Long: `Fetches the profile and recent content of every connected platform.
Platforms that fail are reported; the others are still synchronised.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "output synced data as JSON")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if connectionManager == nil {
		return errors.New("connection manager not configured")
	}

	ctx := cmd.Context()
	if !connectionManager.HasAnyConnections(ctx) {
		cmd.Println("No connected platforms to sync.")
		return nil
	}

	resp := connectionManager.SyncAllPlatforms(ctx)
	if !resp.Success {
		return fmt.Errorf("sync failed: %w", resp.Err())
	}

	if syncJSON {
		return outputJSON(cmd, resp.Data)
	}

	for _, p := range domain.AllPlatforms() {
		data, ok := resp.Data[p]
		if !ok {
			continue
		}
		who := ""
		if data.Profile != nil {
			who = data.Profile.Username
			if who == "" {
				who = data.Profile.DisplayName
			}
		}
		cmd.Printf("%s %s %s\n",
			nameStyle.Render(p.DisplayName()),
			successStyle.Render(fmt.Sprintf("%d items", len(data.Content))),
			mutedStyle.Render(who))
	}

	if resp.Error != nil {
		cmd.Println(warningStyle.Render(resp.Error.Message))
	}
	return nil
}
