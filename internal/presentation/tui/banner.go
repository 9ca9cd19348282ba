package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the hanconv banner to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Red to gold, in the colours of a printed seal.
	lines := []struct{ text, color string }{
		{" _                                 ", "#ef4444"},
		{"| |__   __ _ _ __   ___ ___  _ ____   __", "#f97316"},
		{"| '_ \\ / _` | '_ \\ / __/ _ \\| '_ \\ \\ / /", "#f59e0b"},
		{"| | | | (_| | | | | (_| (_) | | | \\ V / ", "#eab308"},
		{"|_| |_|\\__,_|_| |_|\\___\\___/|_| |_|\\_/  ", "#facc15"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  简繁转换 · translation  "+version).Faint())
	fmt.Fprintln(w)
}
