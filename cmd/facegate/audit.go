// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/facegate/lib/audit"
	"github.com/bureau-foundation/facegate/lib/cli"
	"github.com/bureau-foundation/facegate/lib/config"
	"github.com/bureau-foundation/facegate/lib/process"
)

func (a *app) auditCommand() *cli.Command {
	return &cli.Command{
		Name:    "audit",
		Summary: "Inspect the authentication audit log",
		Description: `Work with audit data on disk. These commands read the files directly
and do not need the daemon. When no path is given, the path configured
for the matching backend in $FACEGATE_CONFIG (or --config) is used.`,
		Subcommands: []*cli.Command{
			a.auditVerifyCommand(),
			a.auditExportCommand(),
			a.auditRecentCommand(),
		},
	}
}

// auditPath returns args[0], or the configured path when the
// configured audit backend is backend.
func (a *app) auditPath(args []string, backend string) (string, error) {
	if len(args) > 1 {
		return "", usageError("expected at most one path, got %d arguments", len(args))
	}
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, err := a.config()
	if err != nil {
		return "", err
	}
	if cfg == nil {
		return "", usageError("no path given and no configuration to find one")
	}
	if cfg.Audit.Backend != backend {
		return "", usageError("configured audit backend is %q, not %q; pass a path", cfg.Audit.Backend, backend)
	}
	return cfg.Audit.Path, nil
}

func (a *app) auditVerifyCommand() *cli.Command {
	return &cli.Command{
		Name:    "verify",
		Summary: "Check the hash chain of an audit journal",
		Description: `Recompute every line's hash and check that each line links to the one
before it. Exits 1 and names the first bad line if the journal was
edited, reordered, or truncated in the middle.

A path ending in .zst is read as an archive written by "audit export".`,
		Usage: "facegate audit verify [journal.jsonl | export.jsonl.zst]",
		Flags: func() *pflag.FlagSet { return a.flags("audit verify") },
		Run: func(ctx context.Context, args []string) error {
			path, err := a.auditPath(args, config.BackendJournal)
			if err != nil {
				return err
			}
			var count int
			if strings.HasSuffix(path, ".zst") {
				count, err = verifyExport(path)
			} else {
				count, err = audit.VerifyJournal(path)
			}
			if a.jsonOutput {
				report := map[string]any{"path": path, "records": count, "valid": err == nil}
				if err != nil {
					report["error"] = err.Error()
				}
				if writeErr := cli.WriteJSON(a.stdout, report); writeErr != nil {
					return writeErr
				}
				if err != nil {
					return &process.ExitError{Code: 1}
				}
				return nil
			}
			if err != nil {
				a.printer().Failure("%s", err)
				return &process.ExitError{Code: 1}
			}
			a.printer().Success("%d records, chain intact", count)
			return nil
		},
	}
}

// verifyExport checks the chain inside a compressed export.
func verifyExport(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening export: %w", err)
	}
	defer file.Close()
	reader, err := audit.OpenExport(file)
	if err != nil {
		return 0, err
	}
	defer reader.Close()
	return audit.VerifyChain(reader)
}

func (a *app) auditExportCommand() *cli.Command {
	var output string
	return &cli.Command{
		Name:    "export",
		Summary: "Write a zstd-compressed copy of an audit journal",
		Usage:   "facegate audit export [journal.jsonl] --output FILE",
		Examples: []cli.Example{
			{Description: "Archive today's journal", Command: "facegate audit export --output audit-$(date +%F).jsonl.zst"},
		},
		Flags: func() *pflag.FlagSet {
			flags := a.flags("audit export")
			flags.StringVarP(&output, "output", "o", "-", "destination file, or - for stdout")
			return flags
		},
		Run: func(ctx context.Context, args []string) error {
			path, err := a.auditPath(args, config.BackendJournal)
			if err != nil {
				return err
			}

			var w io.Writer = a.stdout
			if output != "-" {
				file, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer file.Close()
				w = file
			}

			written, err := audit.ExportJournal(path, w)
			if err != nil {
				return err
			}
			if output != "-" {
				a.printer().Success("exported %d bytes of %s to %s", written, path, output)
			}
			return nil
		},
	}
}

func (a *app) auditRecentCommand() *cli.Command {
	var (
		userID string
		limit  int
	)
	return &cli.Command{
		Name:    "recent",
		Summary: "List the newest attempts from a SQLite audit database",
		Usage:   "facegate audit recent [audit.db] [--user USER] [--limit 20]",
		Flags: func() *pflag.FlagSet {
			flags := a.flags("audit recent")
			flags.StringVar(&userID, "user", "", "only this user's attempts")
			flags.IntVar(&limit, "limit", 20, "maximum number of attempts")
			return flags
		},
		Run: func(ctx context.Context, args []string) error {
			path, err := a.auditPath(args, config.BackendSQLite)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("audit database: %w", err)
			}
			sink, err := audit.OpenSQLite(audit.SQLiteConfig{Path: path, Logger: a.logger("audit recent")})
			if err != nil {
				return err
			}
			defer sink.Close()

			records, err := sink.Recent(ctx, userID, limit)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				if records == nil {
					records = []audit.Record{}
				}
				return cli.WriteJSON(a.stdout, records)
			}

			printer := a.printer()
			for _, record := range records {
				line := fmt.Sprintf("%s  %-8s %-10s %s",
					record.Timestamp.Format("2006-01-02 15:04:05"), record.Outcome, record.UserID, record.Reason)
				switch record.Outcome {
				case audit.OutcomeSuccess:
					printer.Success("%s", line)
				case audit.OutcomeLockout:
					printer.Warning("%s", line)
				default:
					printer.Failure("%s", line)
				}
			}
			return nil
		},
	}
}
