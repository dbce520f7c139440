package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sociallink/internal/core/domain"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the stored token of every platform",
	Args:  cobra.NoArgs,
	RunE:  runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	if connectionManager == nil {
		return errors.New("connection manager not configured")
	}

	results := connectionManager.RefreshAllTokens(cmd.Context())
	for _, p := range domain.AllPlatforms() {
		r, ok := results[p]
		if !ok {
			continue
		}
		name := nameStyle.Render(p.DisplayName())
		switch {
		case r.Success:
			cmd.Println(name + " " + successStyle.Render("refreshed"))
		case r.Error != nil && r.Error.Code == domain.CodeNotConnected:
			cmd.Println(name + " " + mutedStyle.Render("not connected"))
		default:
			cmd.Println(name + " " + errorStyle.Render(fmt.Sprintf("failed: %v", r.Err())))
		}
	}
	return nil
}
