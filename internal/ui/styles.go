package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorOpen   = 114 // green
	colorClosed = 174 // red
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(colorCmd, s) }

// RenderGateState colors a gate state: green for open, red for closed.
func RenderGateState(s string) string {
	if s == "open" {
		return render(colorOpen, s)
	}
	return render(colorClosed, s)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
