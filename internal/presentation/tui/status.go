package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"

	"github.com/aretw0/hanconv/pkg/environment"
)

// Colors per notice severity.
const (
	colorInfo    = "#22c55e"
	colorWarning = "#f59e0b"
	colorError   = "#ef4444"
)

// Notifier returns an environment.Notifier printing colored notices to w.
func Notifier(w io.Writer) environment.Notifier {
	return func(n environment.Notice) {
		PrintNotice(w, n)
	}
}

// PrintNotice writes one notice followed by its manual commands, if any.
func PrintNotice(w io.Writer, n environment.Notice) {
	p := termenv.ColorProfile()

	label, color := "info", colorInfo
	switch n.Severity {
	case environment.SeverityWarning:
		label, color = "warn", colorWarning
	case environment.SeverityError:
		label, color = "error", colorError
	}

	tag := termenv.String(fmt.Sprintf("[%s]", label)).Foreground(p.Color(color)).Bold()
	fmt.Fprintf(w, "%s %s\n", tag, n.Message)
	for _, cmd := range n.Manual {
		fmt.Fprintf(w, "    %s\n", termenv.String(cmd).Faint())
	}
}

// Failure renders an error message in the error colour.
func Failure(msg string) string {
	return termenv.String(msg).Foreground(termenv.ColorProfile().Color(colorError)).String()
}
