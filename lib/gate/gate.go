// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/facegate/lib/clock"
)

var (
	// ErrRequiresAuthentication is returned when privileged mode is
	// requested for a window that is not authenticated.
	ErrRequiresAuthentication = errors.New("gate: privileged mode requires prior authentication")

	// ErrNoWindow is returned for an empty window ID.
	ErrNoWindow = errors.New("gate: window ID is required")
)

// KioskController switches the physical privileged mode of a window.
type KioskController interface {
	SetKiosk(window string, enabled bool) error
}

// Config configures a Gate.
type Config struct {
	// Kiosk receives mode changes. Nil means the mode is tracked
	// only inside the gate.
	Kiosk KioskController

	Clock  clock.Clock
	Logger *slog.Logger
}

// Gate owns the authenticated-window set and the privileged-mode flags.
type Gate struct {
	kiosk  KioskController
	clock  clock.Clock
	logger *slog.Logger

	mu sync.Mutex

	// authenticated maps window ID to the time it was granted.
	authenticated map[string]time.Time
	privileged    map[string]bool
}

// New returns a gate with no authenticated windows.
func New(cfg Config) *Gate {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Gate{
		kiosk:         cfg.Kiosk,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		authenticated: make(map[string]time.Time),
		privileged:    make(map[string]bool),
	}
}

// Grant adds window to the authenticated set.
func (g *Gate) Grant(window string) error {
	if window == "" {
		return ErrNoWindow
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authenticated[window] = g.clock.Now()
	g.logger.Info("window authenticated", "window", window)
	return nil
}

// Revoke removes window from the authenticated set and takes it out
// of privileged mode. Revoking an unknown window is a no-op. The
// window is revoked even when the kiosk controller fails; the
// controller's error is returned.
func (g *Gate) Revoke(window string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.revokeLocked(window)
}

func (g *Gate) revokeLocked(window string) error {
	_, wasAuthenticated := g.authenticated[window]
	delete(g.authenticated, window)
	if wasAuthenticated {
		g.logger.Info("window authentication revoked", "window", window)
	}
	if !g.privileged[window] {
		return nil
	}
	return g.disableLocked(window)
}

func (g *Gate) disableLocked(window string) error {
	delete(g.privileged, window)
	if g.kiosk == nil {
		return nil
	}
	if err := g.kiosk.SetKiosk(window, false); err != nil {
		g.logger.Error("disabling kiosk mode failed", "window", window, "error", err)
		return fmt.Errorf("gate: disabling kiosk mode for %s: %w", window, err)
	}
	return nil
}

// RevokeAll revokes every window. Kiosk controller errors are joined;
// every window is revoked regardless.
func (g *Gate) RevokeAll() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	windows := make(map[string]struct{}, len(g.authenticated)+len(g.privileged))
	for window := range g.authenticated {
		windows[window] = struct{}{}
	}
	for window := range g.privileged {
		windows[window] = struct{}{}
	}
	var errs []error
	for window := range windows {
		if err := g.revokeLocked(window); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetPrivilegedMode enables or disables privileged mode for window.
//
// Disabling always succeeds from the gate's point of view: the window
// leaves the privileged set and the authenticated set regardless of
// prior state, and only a kiosk controller failure is reported.
// Enabling requires the window to be authenticated.
func (g *Gate) SetPrivilegedMode(window string, enable bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !enable {
		delete(g.authenticated, window)
		var err error
		if g.kiosk != nil {
			if err = g.kiosk.SetKiosk(window, false); err != nil {
				err = fmt.Errorf("gate: disabling kiosk mode for %s: %w", window, err)
			}
		}
		delete(g.privileged, window)
		g.logger.Info("privileged mode disabled", "window", window)
		return err
	}

	if window == "" {
		return ErrNoWindow
	}
	if _, ok := g.authenticated[window]; !ok {
		g.logger.Warn("privileged mode refused", "window", window)
		return ErrRequiresAuthentication
	}
	if g.kiosk != nil {
		if err := g.kiosk.SetKiosk(window, true); err != nil {
			return fmt.Errorf("gate: enabling kiosk mode for %s: %w", window, err)
		}
	}
	g.privileged[window] = true
	g.logger.Info("privileged mode enabled", "window", window)
	return nil
}

// CloseWindow drops all state for a window that no longer exists. It
// is Revoke under a different name: a closed window keeps nothing.
func (g *Gate) CloseWindow(window string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	err := g.revokeLocked(window)
	g.logger.Debug("window closed", "window", window)
	return err
}

// Authenticated reports whether window is in the authenticated set.
func (g *Gate) Authenticated(window string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.authenticated[window]
	return ok
}

// Privileged reports whether window is in privileged mode.
func (g *Gate) Privileged(window string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.privileged[window]
}

// AuthenticatedSince returns when window was last granted, and false
// if it is not authenticated.
func (g *Gate) AuthenticatedSince(window string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	granted, ok := g.authenticated[window]
	return granted, ok
}

// Counts returns the number of authenticated and privileged windows.
func (g *Gate) Counts() (authenticated, privileged int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.authenticated), len(g.privileged)
}
