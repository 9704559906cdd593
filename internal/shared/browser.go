package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// OpenBrowser opens an http(s) URL, such as the Spotify consent page, in the default browser.
func OpenBrowser(rawURL string) error {
	cmd, err := browserCommand(runtime.GOOS, rawURL)
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	go cmd.Wait()
	return nil
}

// browserCommand builds the launcher for goos. Windows goes through rundll32 because
// `cmd /c start` splits the authorize URL at its first &.
func browserCommand(goos, rawURL string) (*exec.Cmd, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: not an http(s) URL: %q", ErrInvalidArgument, rawURL)
	}

	switch goos {
	case "darwin":
		return exec.Command("open", rawURL), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", rawURL), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL), nil
	default:
		return nil, fmt.Errorf("%w: no browser launcher for %s", ErrServiceUnavailable, goos)
	}
}
