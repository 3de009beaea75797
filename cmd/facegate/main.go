// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/facegate/lib/cli"
	"github.com/bureau-foundation/facegate/lib/clock"
	"github.com/bureau-foundation/facegate/lib/config"
	"github.com/bureau-foundation/facegate/lib/process"
	"github.com/bureau-foundation/facegate/lib/service"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		color:     cli.ColorEnabled(os.Stdout),
		clock:     clock.Real(),
		newLogger: cli.NewCommandLogger,
	}
	return a.root().Execute(ctx, os.Args[1:])
}

// app carries the process streams and the flags every command shares.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	color  bool
	clock  clock.Clock

	newLogger func(slog.Level) *slog.Logger

	socket     string
	configPath string
	jsonOutput bool
	debug      bool
}

// flags returns a flag set for name with the shared flags registered.
func (a *app) flags(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.StringVar(&a.socket, "socket", "", "daemon socket (default: $FACEGATE_SOCKET, then the configured socket)")
	flags.StringVar(&a.configPath, "config", "", "configuration file used to locate the socket (default: $FACEGATE_CONFIG)")
	flags.BoolVar(&a.jsonOutput, "json", false, "write machine-readable JSON instead of styled text")
	flags.BoolVar(&a.debug, "debug", false, "log at debug level")
	return flags
}

func (a *app) logger(command string) *slog.Logger {
	level := slog.LevelWarn
	if a.debug {
		level = slog.LevelDebug
	}
	return a.newLogger(level).With("command", command)
}

func (a *app) printer() *cli.Printer {
	return cli.NewPrinter(a.stdout, a.color)
}

// socketPath resolves the daemon socket: --socket, then
// FACEGATE_SOCKET, then the configuration file, then the default state
// directory.
func (a *app) socketPath() (string, error) {
	if a.socket != "" {
		return a.socket, nil
	}
	if fromEnv := os.Getenv("FACEGATE_SOCKET"); fromEnv != "" {
		return fromEnv, nil
	}
	cfg, err := a.config()
	if err != nil {
		return "", err
	}
	if cfg != nil {
		return cfg.Paths.Socket, nil
	}
	return filepath.Join(config.Default().Paths.State, "facegate.sock"), nil
}

// config loads the file named by --config or FACEGATE_CONFIG. It
// returns nil without error when neither is set.
func (a *app) config() (*config.Config, error) {
	path := a.configPath
	if path == "" {
		path = os.Getenv("FACEGATE_CONFIG")
	}
	if path == "" {
		return nil, nil
	}
	return config.LoadFile(path)
}

func (a *app) client() (*service.ServiceClient, error) {
	path, err := a.socketPath()
	if err != nil {
		return nil, err
	}
	return service.NewServiceClient(path), nil
}

func (a *app) root() *cli.Command {
	return &cli.Command{
		Name:    "facegate",
		Summary: "Face-embedding authentication client",
		Description: `Enroll identities, verify live descriptors, and drive login sessions
against a running facegate-service.

Descriptors are JSON arrays of 128 finite numbers. Commands that take a
descriptor read it from the named file, or from stdin when no file is
given.`,
		HelpOutput: a.stderr,
		Subcommands: []*cli.Command{
			a.enrollCommand(),
			a.verifyCommand(),
			a.scanCommand(),
			a.registerCommand(),
			a.lockCommand(),
			a.kioskCommand(),
			a.logCommand(),
			a.closeCommand(),
			a.statusCommand(),
			a.auditCommand(),
			a.versionCommand(),
		},
	}
}
