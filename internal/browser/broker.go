package browser

import (
	"context"
	"fmt"

	"github.com/courtbot-app/courtbot/internal/config"
)

// Broker routes browser acquisition to the launcher for the configured
// deployment mode and owns launcher lifecycle.
type Broker struct {
	launcher  Launcher
	container *ContainerLauncher
}

// NewBroker builds the launcher for the given mode.
func NewBroker(cfg *config.Config, runtime *Runtime) (*Broker, error) {
	b := &Broker{}

	switch cfg.Mode {
	case config.ModeRemote:
		b.launcher = NewRemoteLauncher(runtime, cfg.BrokerWSURL)
	case config.ModeContainer:
		launcher, err := NewContainerLauncher(runtime)
		if err != nil {
			return nil, err
		}
		b.launcher = launcher
		b.container = launcher
	case config.ModeLocal:
		b.launcher = NewLocalLauncher(runtime, cfg.Headless)
	default:
		return nil, fmt.Errorf("unsupported deployment mode: %q", cfg.Mode)
	}

	return b, nil
}

// Prepare performs mode-specific startup work (pulling the Chrome image
// in container mode). Safe to call in every mode.
func (b *Broker) Prepare(ctx context.Context) error {
	if b.container != nil {
		return b.container.EnsureImage(ctx)
	}
	return nil
}

// Launch acquires a browser for the given automation session.
func (b *Broker) Launch(ctx context.Context, sessionID string) (*Instance, error) {
	return b.launcher.Launch(ctx, sessionID)
}

// Close releases launcher resources.
func (b *Broker) Close() error {
	if b.container != nil {
		return b.container.Close()
	}
	return nil
}
