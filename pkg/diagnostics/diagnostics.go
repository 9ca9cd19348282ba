// Package diagnostics aggregates environment checks into a single report.
//
// Generate is read-only apart from the one trial conversion it performs,
// and a failing check never prevents the checks after it from running.
package diagnostics

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/aretw0/hanconv/internal/logging"
	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/aretw0/hanconv/pkg/environment"
)

// TrialText is converted with TrialAction to measure an end-to-end round trip.
const (
	TrialText   = "簡體字轉換測試"
	TrialAction = domain.ActionSimplify
)

// SlowTrial marks a successful trial as a warning.
const SlowTrial = 10 * time.Second

// Converter runs the trial conversion.
type Converter interface {
	Dispatch(ctx context.Context, req domain.ConversionRequest) domain.ConversionResult
}

// ScriptLocator resolves the worker script.
type ScriptLocator interface {
	Resolve() (string, error)
	Candidates() []string
}

// Diagnostics collects the collaborators a report inspects.
type Diagnostics struct {
	probe        *environment.Probe
	locator      ScriptLocator
	converter    Converter
	libraries    []domain.LibrarySpec
	version      string
	extensionDir string
	logger       *slog.Logger
}

// Option configures Diagnostics.
type Option func(*Diagnostics)

// WithVersion sets the version shown in the host section.
func WithVersion(v string) Option {
	return func(d *Diagnostics) {
		d.version = v
	}
}

// WithExtensionDir records the host-reported extension directory.
func WithExtensionDir(dir string) Option {
	return func(d *Diagnostics) {
		d.extensionDir = dir
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Diagnostics) {
		d.logger = logger
	}
}

// New creates a report generator.
func New(probe *environment.Probe, loc ScriptLocator, conv Converter, libs []domain.LibrarySpec, opts ...Option) *Diagnostics {
	d := &Diagnostics{
		probe:     probe,
		locator:   loc,
		converter: conv,
		libraries: libs,
		version:   "dev",
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Generate runs every check in order and returns the report.
func (d *Diagnostics) Generate(ctx context.Context) *Report {
	report := &Report{GeneratedAt: time.Now()}

	d.host(report)
	d.interpreter(ctx, report)
	d.libs(ctx, report)
	d.script(report)
	d.trial(ctx, report)

	report.CompletedAt = time.Now()
	d.logger.Info("diagnostics complete",
		"pass", report.Summary.Pass,
		"warn", report.Summary.Warn,
		"fail", report.Summary.Fail,
		"duration", report.CompletedAt.Sub(report.GeneratedAt),
	)
	return report
}

func (d *Diagnostics) host(r *Report) {
	wd, _ := os.Getwd()
	r.Host = HostInfo{
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		Version:      d.version,
		GoVersion:    runtime.Version(),
		WorkingDir:   wd,
		ExtensionDir: d.extensionDir,
	}

	if d.extensionDir == "" {
		r.add(Check{Section: SectionHost, Name: "extension directory", Status: StatusWarn, Message: "not reported by the host"})
		return
	}
	info, err := os.Stat(d.extensionDir)
	switch {
	case err != nil:
		r.add(Check{Section: SectionHost, Name: "extension directory", Status: StatusWarn, Message: err.Error()})
	case !info.IsDir():
		r.add(Check{Section: SectionHost, Name: "extension directory", Status: StatusWarn, Message: d.extensionDir + " is not a directory"})
	default:
		r.add(Check{Section: SectionHost, Name: "extension directory", Status: StatusPass, Message: d.extensionDir})
	}
}

func (d *Diagnostics) interpreter(ctx context.Context, r *Report) {
	version, err := d.probe.CheckRuntime(ctx)
	if err != nil {
		r.add(Check{Section: SectionRuntime, Name: "interpreter version", Status: StatusFail, Message: err.Error()})
	} else {
		r.add(Check{Section: SectionRuntime, Name: "interpreter version", Status: StatusPass, Message: version})
	}

	path, err := d.probe.Executable(ctx)
	if err != nil {
		r.add(Check{Section: SectionRuntime, Name: "interpreter path", Status: StatusFail, Message: err.Error()})
		return
	}
	r.add(Check{Section: SectionRuntime, Name: "interpreter path", Status: StatusPass, Message: path})
}

func (d *Diagnostics) libs(ctx context.Context, r *Report) {
	for _, s := range d.probe.ProbeLibraries(ctx, d.libraries) {
		name := s.Library.ImportName
		if s.Present {
			r.add(Check{Section: SectionLibraries, Name: name, Status: StatusPass, Message: "available"})
			continue
		}
		r.add(Check{
			Section: SectionLibraries,
			Name:    name,
			Status:  StatusFail,
			Message: "not available",
			Details: map[string]any{"package": s.Library.PackageSpec, "detail": s.Detail},
		})
	}
}

func (d *Diagnostics) script(r *Report) {
	path, err := d.locator.Resolve()
	if err != nil {
		r.add(Check{
			Section: SectionScript,
			Name:    "resolution",
			Status:  StatusFail,
			Message: err.Error(),
			Details: map[string]any{"attempted": d.locator.Candidates()},
		})
		return
	}
	r.add(Check{Section: SectionScript, Name: "resolution", Status: StatusPass, Message: path})

	info, err := os.Stat(path)
	switch {
	case err != nil:
		r.add(Check{Section: SectionScript, Name: "integrity", Status: StatusFail, Message: err.Error()})
	case info.Size() == 0:
		r.add(Check{Section: SectionScript, Name: "integrity", Status: StatusWarn, Message: "file is empty"})
	default:
		r.add(Check{
			Section: SectionScript,
			Name:    "integrity",
			Status:  StatusPass,
			Message: fmt.Sprintf("%d bytes", info.Size()),
			Details: map[string]any{"size": info.Size()},
		})
	}
}

func (d *Diagnostics) trial(ctx context.Context, r *Report) {
	start := time.Now()
	res := d.converter.Dispatch(ctx, domain.ConversionRequest{Text: TrialText, Action: TrialAction})
	elapsed := time.Since(start)

	details := map[string]any{"input": TrialText, "duration_ms": elapsed.Milliseconds()}
	if !res.OK() {
		details["kind"] = res.Kind()
		r.add(Check{Section: SectionConversion, Name: string(TrialAction), Status: StatusFail, Message: res.Err.Error(), Details: details})
		return
	}

	details["output"] = res.Output
	status := StatusPass
	if elapsed > SlowTrial {
		status = StatusWarn
	}
	r.add(Check{
		Section: SectionConversion,
		Name:    string(TrialAction),
		Status:  status,
		Message: fmt.Sprintf("%s -> %s in %dms", TrialText, res.Output, elapsed.Milliseconds()),
		Details: details,
	})
}
