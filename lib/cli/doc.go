// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework shared by the facegate binaries.
//
// [Command] is a named node with optional [Command.Subcommands], a
// lazily built pflag.FlagSet, and a Run function. [Command.Execute]
// routes arguments down the tree, parses flags, and prints help with
// examples. Unknown commands and flags get a "did you mean" suggestion
// when the Levenshtein distance is at most 3.
//
// [NewCommandLogger] picks a text handler for terminals and JSON
// otherwise. [Printer] renders status lines with lipgloss, using a
// termenv color profile chosen from the output stream.
package cli
