// Package ui renders hookwatch CLI output with optional ANSI colour.
package ui

import (
	"fmt"

	"github.com/alfredjeanlab/hookwatch/internal/model"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent  = 74  // blue
	colorMuted   = 245 // medium gray
	colorReport  = 179 // amber
	colorAdmin   = 141 // purple
	colorGeneral = 250 // light gray
	colorAlert   = 203 // red
	colorOK      = 114 // green
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderAlert returns s in the alert (red) color.
func RenderAlert(s string) string { return paint(colorAlert, s) }

// RenderOK returns s in green.
func RenderOK(s string) string { return paint(colorOK, s) }

// RenderKind returns s in the color associated with kind.
func RenderKind(kind model.Kind, s string) string {
	switch kind {
	case model.KindReport:
		return paint(colorReport, s)
	case model.KindAdminAction:
		return paint(colorAdmin, s)
	default:
		return paint(colorGeneral, s)
	}
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// Configure disables color unless ShouldUseColor allows it. disable forces
// it off regardless.
func Configure(disable bool) {
	if disable || !ShouldUseColor() {
		ForceNoColor()
	}
}
