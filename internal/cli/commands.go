package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aretw0/hanconv/internal/presentation/tui"
	"github.com/aretw0/hanconv/pkg/domain"
)

// ErrNotReady is returned by RunProvision when dependencies are still missing.
var ErrNotReady = errors.New("dependencies are not ready")

// ErrUnhealthy is returned by RunDiagnose when a check failed.
var ErrUnhealthy = errors.New("diagnostics reported failures")

// RunProvision checks the environment, installs missing libraries and
// prints a summary to w. Notices are delivered by the converter's notifier.
func RunProvision(ctx context.Context, svc Service, w io.Writer) error {
	report := svc.Provision(ctx)

	if report.RuntimeErr != nil {
		fmt.Fprintln(w, tui.Failure(report.RuntimeErr.Error()))
		return report.RuntimeErr
	}

	printSystemMessage(w, "%s", report.RuntimeVersion)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range report.Libraries {
		state := "ok"
		if !s.Present {
			state = "missing"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", s.Library.ImportName, s.Library.PackageSpec, state)
	}
	_ = tw.Flush()

	if report.Install != nil && !report.Install.Success {
		return report.Install.Err
	}
	if !report.Ready {
		return ErrNotReady
	}
	printSystemMessage(w, "Ready in %s.", report.Duration.Round(time.Millisecond))
	return nil
}

// Diagnose output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// RunDiagnose writes the diagnostics report to w. Markdown is rendered for
// the terminal when pretty is set.
func RunDiagnose(ctx context.Context, svc Service, format string, pretty bool, w io.Writer) error {
	report := svc.Diagnose(ctx)

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(report); err != nil {
			return err
		}
	case FormatMarkdown:
		md := report.Markdown()
		if pretty {
			rendered, err := tui.NewRenderer()(md)
			if err == nil {
				md = rendered
			}
		}
		fmt.Fprint(w, md)
	case FormatText, "":
		fmt.Fprint(w, report.Text())
	default:
		return fmt.Errorf("unknown format %q (supported: text, markdown, json)", format)
	}

	if !report.Healthy() {
		return ErrUnhealthy
	}
	return nil
}

// RunActions lists the supported actions.
func RunActions(w io.Writer, asJSON bool) error {
	actions := domain.Actions()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(actions)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTION\tTARGET\tDESCRIPTION")
	for _, a := range actions {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Kind, a.Target, a.Description)
	}
	return tw.Flush()
}
