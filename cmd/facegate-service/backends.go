// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/facegate/lib/audit"
	"github.com/bureau-foundation/facegate/lib/clock"
	"github.com/bureau-foundation/facegate/lib/config"
	"github.com/bureau-foundation/facegate/lib/identity"
)

// backends is the opened identity store and audit sink, plus whatever
// must be closed on shutdown.
type backends struct {
	store   identity.Store
	sink    audit.Sink
	closers []func() error
	logger  *slog.Logger
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			b.logger.Warn("closing backend failed", "error", err)
		}
	}
	b.closers = nil
}

func openBackends(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*backends, error) {
	opened := &backends{logger: logger}

	store, closeStore, err := openIdentityStore(ctx, cfg, clk, logger.With("component", "identity"))
	if err != nil {
		return nil, err
	}
	opened.store = store
	if closeStore != nil {
		opened.closers = append(opened.closers, closeStore)
	}

	sink, closeSink, err := openAuditSink(cfg, clk, logger.With("component", "audit"))
	if err != nil {
		opened.close()
		return nil, err
	}
	opened.sink = sink
	if closeSink != nil {
		opened.closers = append(opened.closers, closeSink)
	}
	return opened, nil
}

func openIdentityStore(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *slog.Logger) (identity.Store, func() error, error) {
	switch cfg.Identity.Backend {
	case config.BackendMemory:
		logger.Warn("identity store is in memory; enrollments are lost on restart")
		return identity.NewMemory(clk), nil, nil

	case config.BackendSQLite:
		store, err := identity.OpenSQLite(identity.SQLiteConfig{
			Path:   cfg.Identity.Path,
			Clock:  clk,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case config.BackendFile:
		store, err := identity.NewFileStore(identity.FileConfig{
			Path:   cfg.Identity.Path,
			Clock:  clk,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case config.BackendMongo:
		store, err := identity.OpenMongo(ctx, identity.MongoConfig{
			URI:        cfg.Identity.Mongo.URI,
			Database:   cfg.Identity.Mongo.Database,
			Collection: cfg.Identity.Mongo.Collection,
			Clock:      clk,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, err
		}
		closeStore := func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return store.Close(ctx)
		}
		return store, closeStore, nil
	}
	return nil, nil, fmt.Errorf("unknown identity backend %q", cfg.Identity.Backend)
}

func openAuditSink(cfg *config.Config, clk clock.Clock, logger *slog.Logger) (audit.Sink, func() error, error) {
	switch cfg.Audit.Backend {
	case config.BackendMemory:
		logger.Warn("audit sink is in memory; attempts are lost on restart")
		return audit.NewMemory(clk), nil, nil

	case config.BackendJournal:
		journal, err := audit.OpenJournal(audit.JournalConfig{
			Path:   cfg.Audit.Path,
			Clock:  clk,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return journal, journal.Close, nil

	case config.BackendSQLite:
		sink, err := audit.OpenSQLite(audit.SQLiteConfig{
			Path:   cfg.Audit.Path,
			Clock:  clk,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
}
