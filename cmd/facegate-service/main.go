// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/facegate/lib/cli"
	"github.com/bureau-foundation/facegate/lib/clock"
	"github.com/bureau-foundation/facegate/lib/config"
	"github.com/bureau-foundation/facegate/lib/faceauth"
	"github.com/bureau-foundation/facegate/lib/gate"
	"github.com/bureau-foundation/facegate/lib/process"
	"github.com/bureau-foundation/facegate/lib/service"
	"github.com/bureau-foundation/facegate/lib/verify"
	"github.com/bureau-foundation/facegate/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
		debug       bool
	)
	flags := pflag.NewFlagSet("facegate-service", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "configuration file (default: $FACEGATE_CONFIG or built-in defaults)")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	flags.BoolVar(&debug, "debug", false, "log at debug level")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &process.ExitError{Code: 2, Err: err}
	}

	if showVersion {
		fmt.Printf("facegate-service %s\n", version.Info())
		return nil
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := cli.NewCommandLogger(level)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	daemon, err := newDaemon(ctx, cfg, clock.Real(), logger)
	if err != nil {
		return err
	}
	defer daemon.close()

	return daemon.serve(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// daemon holds the wired components for one process.
type daemon struct {
	config *config.Config
	logger *slog.Logger

	core     *faceauth.Core
	backends *backends
}

func newDaemon(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *slog.Logger) (*daemon, error) {
	opened, err := openBackends(ctx, cfg, clk, logger)
	if err != nil {
		return nil, err
	}

	verifier, err := verify.New(verify.Config{
		Store:  opened.store,
		Sink:   opened.sink,
		Logger: logger.With("component", "verify"),
	})
	if err != nil {
		opened.close()
		return nil, err
	}
	authorization := gate.New(gate.Config{
		Kiosk:  gate.NewLogKiosk(logger.With("component", "kiosk")),
		Clock:  clk,
		Logger: logger.With("component", "gate"),
	})
	core, err := faceauth.New(faceauth.Config{
		Verifier:       verifier,
		Gate:           authorization,
		Sink:           opened.sink,
		ElevateOnMatch: cfg.Kiosk.ElevateOnMatch,
		Logger:         logger.With("component", "faceauth"),
	})
	if err != nil {
		opened.close()
		return nil, err
	}

	return &daemon{config: cfg, logger: logger, core: core, backends: opened}, nil
}

// serve runs the socket server, and the HTTP server if configured,
// until ctx is cancelled.
func (d *daemon) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	socketServer := service.NewSocketServer(d.config.Paths.Socket, d.logger.With("component", "socket"))
	d.core.RegisterActions(socketServer)

	errs := make(chan error, 2)
	running := 1
	go func() { errs <- socketServer.Serve(ctx) }()

	if d.config.HTTP.Address != "" {
		httpServer := service.NewHTTPServer(service.HTTPServerConfig{
			Address: d.config.HTTP.Address,
			Handler: newRouter(d.core),
			Logger:  d.logger.With("component", "http"),
		})
		running++
		go func() { errs <- httpServer.Serve(ctx) }()
	}

	d.logger.Info("facegate service running",
		"version", version.Short(),
		"environment", d.config.Environment,
		"socket", d.config.Paths.Socket,
		"http", d.config.HTTP.Address,
		"identity_backend", d.config.Identity.Backend,
		"audit_backend", d.config.Audit.Backend,
	)

	var firstErr error
	for range running {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
			d.logger.Error("server failed, shutting down", "error", err)
			cancel()
		}
	}
	d.logger.Info("shut down")
	return firstErr
}

func (d *daemon) close() {
	d.backends.close()
}
