package oauth

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/custodia-labs/sociallink/internal/core/domain"
	"github.com/custodia-labs/sociallink/internal/core/ports/driven"
)

var (
	_ driven.URLOpener = (*BrowserOpener)(nil)
	_ driven.URLOpener = (*PrintOpener)(nil)
)

// BrowserOpener opens URLs in the default browser.
type BrowserOpener struct {
	goos    string
	command func(ctx context.Context, name string, args ...string) error
}

// NewBrowserOpener creates an opener for the running OS.
func NewBrowserOpener() *BrowserOpener {
	return &BrowserOpener{
		goos: runtime.GOOS,
		command: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Start()
		},
	}
}

// Open opens rawURL. Only http and https URLs are accepted.
func (o *BrowserOpener) Open(ctx context.Context, rawURL string) error {
	if err := checkScheme(rawURL); err != nil {
		return err
	}

	switch o.goos {
	case "darwin":
		return o.command(ctx, "open", rawURL)
	case "linux", "freebsd", "openbsd", "netbsd":
		return o.command(ctx, "xdg-open", rawURL)
	case "windows":
		return o.command(ctx, "rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		return fmt.Errorf("%w: no URL handler for %s", domain.ErrUnsupportedScheme, o.goos)
	}
}

// PrintOpener writes the URL for the user to open manually.
// Used on headless hosts.
type PrintOpener struct {
	W io.Writer
}

// Open prints rawURL.
func (o *PrintOpener) Open(_ context.Context, rawURL string) error {
	if err := checkScheme(rawURL); err != nil {
		return err
	}
	_, err := fmt.Fprintf(o.W, "Open this URL to authorize:\n\n  %s\n\n", rawURL)
	return err
}

func checkScheme(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parsing URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return nil
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedScheme, u.Scheme)
	}
}
