package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the holon ASCII art banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	// Subtle gradient from teal to indigo.
	lines := []struct {
		text, color string
	}{
		{" _           _             ", "#2dd4bf"},
		{"| |__   ___ | | ___  _ __  ", "#22d3ee"},
		{"| '_ \\ / _ \\| |/ _ \\| '_ \\ ", "#38bdf8"},
		{"| | | | (_) | | (_) | | | |", "#60a5fa"},
		{"|_| |_|\\___/|_|\\___/|_| |_|", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  "+version).Faint())
	fmt.Fprintln(w)
}
