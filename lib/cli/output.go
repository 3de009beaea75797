// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// WriteJSON writes value to w as indented JSON.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// ColorEnabled reports whether styled output should be used for file.
// NO_COLOR disables it regardless of the terminal.
func ColorEnabled(file *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// Printer writes styled status lines.
type Printer struct {
	out     io.Writer
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	label   lipgloss.Style
}

// NewPrinter returns a Printer writing to w. With color off the output
// is plain text.
func NewPrinter(w io.Writer, color bool) *Printer {
	profile := termenv.Ascii
	if color {
		profile = termenv.ANSI256
	}
	// SetColorProfile is needed as well: the renderer otherwise
	// re-detects the profile from the environment.
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)

	return &Printer{
		out:     w,
		success: renderer.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		failure: renderer.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		warning: renderer.NewStyle().Foreground(lipgloss.Color("214")),
		label:   renderer.NewStyle().Foreground(lipgloss.Color("245")).Width(12),
	}
}

// Success prints a line prefixed with a check mark.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.out, p.success.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Failure prints a line prefixed with a cross.
func (p *Printer) Failure(format string, args ...any) {
	fmt.Fprintln(p.out, p.failure.Render("✗ "+fmt.Sprintf(format, args...)))
}

// Warning prints an unprefixed highlighted line.
func (p *Printer) Warning(format string, args ...any) {
	fmt.Fprintln(p.out, p.warning.Render(fmt.Sprintf(format, args...)))
}

// Field prints an aligned "label value" pair.
func (p *Printer) Field(label string, value any) {
	fmt.Fprintf(p.out, "  %s %v\n", p.label.Render(label), value)
}
