package browser

import (
	"context"
	"fmt"
)

// RemoteLauncher connects to a hosted automation broker over CDP. The
// broker owns the browser's lifecycle; closing the connection releases
// the remote session.
type RemoteLauncher struct {
	runtime *Runtime
	wsURL   string
}

// NewRemoteLauncher creates a launcher that dials the broker's
// websocket endpoint. Credentials are carried in the URL.
func NewRemoteLauncher(runtime *Runtime, wsURL string) *RemoteLauncher {
	return &RemoteLauncher{
		runtime: runtime,
		wsURL:   wsURL,
	}
}

// Launch connects to the broker and returns the remote browser.
func (l *RemoteLauncher) Launch(ctx context.Context, sessionID string) (*Instance, error) {
	b, err := l.runtime.pw.Chromium.ConnectOverCDP(l.wsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to automation broker: %w", err)
	}

	return &Instance{Browser: b}, nil
}
