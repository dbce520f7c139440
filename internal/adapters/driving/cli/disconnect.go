package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sociallink/internal/core/domain"
)

var disconnectCmd = &cobra.Command{
	Use:   "disconnect <platform>",
	Short: "Remove stored credentials for a platform",
	Long: `Revokes the token where the platform supports it and removes every
credential stored for the platform. Revocation failures do not stop removal.`,
	Args: cobra.ExactArgs(1),
	RunE: runDisconnect,
}

func init() {
	rootCmd.AddCommand(disconnectCmd)
}

func runDisconnect(cmd *cobra.Command, args []string) error {
	if connectionManager == nil {
		return errors.New("connection manager not configured")
	}
	platform, err := domain.ParsePlatform(args[0])
	if err != nil {
		return err
	}

	resp := connectionManager.DisconnectPlatform(cmd.Context(), platform)
	if !resp.Success {
		return fmt.Errorf("disconnect %s failed: %w", platform, resp.Err())
	}

	cmd.Printf("Disconnected from %s.\n", platform.DisplayName())
	return nil
}
