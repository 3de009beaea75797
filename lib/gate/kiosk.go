// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"log/slog"
	"sync"
)

// LogKiosk is a KioskController for hosts without a display to lock.
// It remembers the requested mode per window and logs each change.
type LogKiosk struct {
	logger *slog.Logger

	mu      sync.Mutex
	enabled map[string]bool
}

// NewLogKiosk returns a LogKiosk. A nil logger discards.
func NewLogKiosk(logger *slog.Logger) *LogKiosk {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogKiosk{logger: logger, enabled: make(map[string]bool)}
}

func (k *LogKiosk) SetKiosk(window string, enabled bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if enabled {
		k.enabled[window] = true
	} else {
		delete(k.enabled, window)
	}
	k.logger.Info("kiosk mode changed", "window", window, "enabled", enabled)
	return nil
}

// Enabled reports the last mode set for window.
func (k *LogKiosk) Enabled(window string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.enabled[window]
}
