// Package browser acquires Chromium instances for automation sessions.
//
// Three deployment modes are supported: a hosted automation broker
// reached over CDP, a locally dockerised Chrome, and a Playwright-managed
// local browser. All three yield a connected playwright.Browser behind
// the same Launcher interface.
package browser

import (
	"context"
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
)

// Launcher acquires one browser for one automation session.
type Launcher interface {
	Launch(ctx context.Context, sessionID string) (*Instance, error)
}

// Instance is an acquired browser plus its teardown.
type Instance struct {
	Browser playwright.Browser
	release func(ctx context.Context) error
}

// Close disconnects the browser and releases whatever backs it
// (container, broker slot, local process).
func (i *Instance) Close(ctx context.Context) error {
	if err := i.Browser.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	if i.release != nil {
		return i.release(ctx)
	}
	return nil
}

// Runtime wraps the shared Playwright driver process. It must be started
// before any launcher is used and stopped at shutdown.
type Runtime struct {
	pw *playwright.Playwright
}

// StartRuntime installs (if needed) and starts the Playwright driver.
// Output is discarded so the driver's install chatter stays out of logs.
func StartRuntime() (*Runtime, error) {
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	return &Runtime{pw: pw}, nil
}

// Stop shuts the Playwright driver down.
func (r *Runtime) Stop() error {
	if r.pw == nil {
		return nil
	}
	if err := r.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	r.pw = nil
	return nil
}
