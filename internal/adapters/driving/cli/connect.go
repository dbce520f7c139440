package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sociallink/internal/adapters/driven/oauth"
	callback "github.com/custodia-labs/sociallink/internal/adapters/driving/oauth"
	"github.com/custodia-labs/sociallink/internal/core/domain"
	"github.com/custodia-labs/sociallink/internal/core/ports/driven"
)

var (
	connectListen    bool
	connectNoBrowser bool
	connectTimeout   time.Duration
)

var connectCmd = &cobra.Command{
	Use:   "connect <platform>",
	Short: "Start the OAuth flow for a platform",
	Long: `Opens the platform's authorization page in the browser.

After approving access, the platform redirects to the configured redirect URI
with a code. Either pass that code to "sociallink callback", or use --listen
to capture it with a local listener on a loopback redirect URI.`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().BoolVar(&connectListen, "listen", false, "capture the redirect on the loopback redirect URI")
	connectCmd.Flags().BoolVar(&connectNoBrowser, "no-browser", false, "print the authorization URL instead of opening it")
	connectCmd.Flags().DurationVar(&connectTimeout, "timeout", 5*time.Minute, "how long --listen waits for the redirect")
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	if connectionManager == nil {
		return errors.New("connection manager not configured")
	}
	platform, err := domain.ParsePlatform(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var srv *callback.CallbackServer
	if connectListen {
		if settingsService == nil {
			return errors.New("settings service not configured")
		}
		srv, err = callback.NewCallbackServer(settingsService.Get(platform).RedirectURI)
		if err != nil {
			return fmt.Errorf("cannot listen for %s redirect: %w", platform.DisplayName(), err)
		}
		if err := srv.Start(); err != nil {
			return fmt.Errorf("cannot listen for %s redirect: %w", platform.DisplayName(), err)
		}
		defer srv.Stop() //nolint:errcheck // best effort on exit
	}

	resp := connectionManager.AuthenticatePlatform(ctx, platform)
	if !resp.Success {
		return fmt.Errorf("connect %s failed: %w", platform, resp.Err())
	}

	if srv == nil {
		cmd.Printf("Authorize sociallink in the browser, then run:\n\n  sociallink callback %s <code> --state <state>\n", platform)
		return nil
	}

	cmd.Printf("Waiting for the %s redirect on %s ...\n", platform.DisplayName(), srv.URL())
	waitCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	cb, err := srv.Wait(waitCtx)
	if err != nil {
		return fmt.Errorf("connect %s failed: %w", platform, err)
	}

	return completeCallback(cmd, platform, cb.Code, cb.State)
}

// completeCallback hands the code to the manager and reports the result.
func completeCallback(cmd *cobra.Command, platform domain.Platform, code, state string) error {
	resp := connectionManager.HandleAuthCallback(cmd.Context(), platform, code, state)
	if !resp.Success {
		return fmt.Errorf("callback for %s failed: %w", platform, resp.Err())
	}
	cmd.Println(successStyle.Render(fmt.Sprintf("Connected to %s.", platform.DisplayName())))
	if token := resp.Data; token != nil && !token.ExpiresAt.IsZero() {
		cmd.Println(mutedStyle.Render("Token expires " + token.ExpiresAt.Local().Format(time.RFC1123)))
	}
	return nil
}

// commandOpener opens authorization URLs for the running command. With
// --no-browser it prints the URL to the command's output instead.
type commandOpener struct {
	browser driven.URLOpener
}

// NewURLOpener wraps browser so that connect --no-browser prints the URL.
func NewURLOpener(browser driven.URLOpener) driven.URLOpener {
	return &commandOpener{browser: browser}
}

// Open implements driven.URLOpener.
func (o *commandOpener) Open(ctx context.Context, rawURL string) error {
	if connectNoBrowser || o.browser == nil {
		return (&oauth.PrintOpener{W: rootCmd.OutOrStdout()}).Open(ctx, rawURL)
	}
	if err := o.browser.Open(ctx, rawURL); err != nil {
		return fmt.Errorf("%w (retry with --no-browser)", err)
	}
	return nil
}
