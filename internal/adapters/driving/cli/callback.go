package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sociallink/internal/core/domain"
)

var callbackState string

var callbackCmd = &cobra.Command{
	Use:   "callback <platform> <code>",
	Short: "Complete the OAuth flow with an authorization code",
	Long: `Exchanges the code from the platform's redirect for a token and stores it.

Pass the state parameter from the same redirect with --state. A state that
does not match the pending authorization is rejected.`,
	Args: cobra.ExactArgs(2),
	RunE: runCallback,
}

func init() {
	callbackCmd.Flags().StringVar(&callbackState, "state", "", "state parameter from the redirect")
	rootCmd.AddCommand(callbackCmd)
}

func runCallback(cmd *cobra.Command, args []string) error {
	if connectionManager == nil {
		return errors.New("connection manager not configured")
	}
	platform, err := domain.ParsePlatform(args[0])
	if err != nil {
		return err
	}
	return completeCallback(cmd, platform, args[1], callbackState)
}
