package browser

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// LocalLauncher launches a Playwright-managed Chromium on this machine.
type LocalLauncher struct {
	runtime  *Runtime
	headless bool
}

// NewLocalLauncher creates a launcher backed by the shared runtime.
func NewLocalLauncher(runtime *Runtime, headless bool) *LocalLauncher {
	return &LocalLauncher{
		runtime:  runtime,
		headless: headless,
	}
}

// Launch starts a fresh Chromium instance.
func (l *LocalLauncher) Launch(ctx context.Context, sessionID string) (*Instance, error) {
	b, err := l.runtime.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Instance{Browser: b}, nil
}
