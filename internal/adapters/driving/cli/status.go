package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sociallink/internal/core/domain"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status [platform]",
	Short: "Show connection status",
	Long: `Checks each platform's stored token against the vendor and reports whether
it is connected, when it last synced and whether it needs re-authorization.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if connectionManager == nil {
		return errors.New("connection manager not configured")
	}
	ctx := cmd.Context()

	var statuses []domain.ConnectionStatus
	if len(args) > 0 {
		platform, err := domain.ParsePlatform(args[0])
		if err != nil {
			return err
		}
		statuses = []domain.ConnectionStatus{connectionManager.GetConnectionStatus(ctx, platform)}
	} else {
		statuses = connectionManager.GetAllConnectionStatuses(ctx)
	}

	if statusJSON {
		return outputJSON(cmd, statuses)
	}

	cmd.Println(titleStyle.Render("Connections"))
	cmd.Println()
	for _, s := range statuses {
		cmd.Println(formatStatus(s))
	}
	return nil
}

func formatStatus(s domain.ConnectionStatus) string {
	name := nameStyle.Render(s.Platform.DisplayName())

	var state string
	switch {
	case s.IsConnected:
		state = successStyle.Render("connected")
	case s.RequiresReauth:
		state = warningStyle.Render("reconnect required")
	case s.Error != "":
		state = errorStyle.Render("error")
	default:
		state = mutedStyle.Render("not connected")
	}

	line := "  " + name + " " + state
	if s.LastSync != nil {
		line += mutedStyle.Render(" (last sync " + s.LastSync.Local().Format(time.DateTime) + ")")
	}
	if s.Error != "" {
		line += "\n  " + mutedStyle.Render(fmt.Sprintf("%12s %s", "", s.Error))
	}
	return line
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
