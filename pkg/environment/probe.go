package environment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/hanconv/internal/logging"
	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/aretw0/hanconv/pkg/ports"
)

// LibraryStatus is the probe result for one library.
type LibraryStatus struct {
	Library domain.LibrarySpec `json:"library"`
	Present bool               `json:"present"`
	Detail  string             `json:"detail,omitempty"`
}

// Probe performs read-only presence checks against the interpreter.
type Probe struct {
	runtime     ports.ExternalRuntime
	interpreter string
	logger      *slog.Logger
	hooks       domain.Hooks
}

// ProbeOption configures a Probe.
type ProbeOption func(*Probe)

// WithProbeLogger sets the structured logger.
func WithProbeLogger(logger *slog.Logger) ProbeOption {
	return func(p *Probe) {
		p.logger = logger
	}
}

// WithProbeHooks registers observer callbacks.
func WithProbeHooks(hooks domain.Hooks) ProbeOption {
	return func(p *Probe) {
		p.hooks = hooks
	}
}

// NewProbe creates a probe for the given interpreter.
func NewProbe(rt ports.ExternalRuntime, interpreter string, opts ...ProbeOption) *Probe {
	p := &Probe{
		runtime:     rt,
		interpreter: interpreter,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckRuntime runs `<interpreter> --version` and returns the reported
// version. Python 2 prints the version on stderr, so both streams count.
func (p *Probe) CheckRuntime(ctx context.Context) (string, error) {
	cmd := domain.Command{Name: p.interpreter, Args: []string{"--version"}}
	out, err := p.runtime.Run(ctx, cmd)

	var version string
	if err == nil {
		version = firstLine(out.Stdout)
		if version == "" {
			version = firstLine(out.Stderr)
		}
	}
	present := err == nil && out.Succeeded() && version != ""
	p.emit(ctx, p.interpreter, present)

	switch {
	case err != nil:
		return "", &domain.ConversionError{
			Kind:    domain.KindRuntimeUnavailable,
			Message: fmt.Sprintf("interpreter %q is not invocable: %v; install Python 3.6+ and add it to PATH", p.interpreter, err),
			Err:     err,
		}
	case !present:
		return "", &domain.ConversionError{
			Kind:     domain.KindRuntimeUnavailable,
			Message:  fmt.Sprintf("interpreter %q did not report a version", p.interpreter),
			ExitCode: out.ExitCode,
			Stderr:   out.Stderr,
		}
	}

	p.logger.Info("runtime available", "interpreter", p.interpreter, "version", version)
	return version, nil
}

// Executable asks the interpreter for its absolute path (sys.executable).
func (p *Probe) Executable(ctx context.Context) (string, error) {
	cmd := domain.Command{Name: p.interpreter, Args: []string{"-c", "import sys; print(sys.executable)"}}
	out, err := p.runtime.Run(ctx, cmd)
	if err != nil {
		return "", &domain.ConversionError{Kind: domain.KindRuntimeUnavailable, Message: err.Error(), Err: err}
	}
	path := firstLine(out.Stdout)
	if !out.Succeeded() || path == "" {
		return "", &domain.ConversionError{
			Kind:     domain.KindRuntimeUnavailable,
			Message:  "interpreter did not report its executable path",
			ExitCode: out.ExitCode,
			Stderr:   out.Stderr,
		}
	}
	return path, nil
}

// CheckLibrary runs `<interpreter> -c "import <name>"`; nil means present.
func (p *Probe) CheckLibrary(ctx context.Context, importName string) error {
	cmd := domain.Command{Name: p.interpreter, Args: []string{"-c", "import " + importName}}
	out, err := p.runtime.Run(ctx, cmd)

	present := err == nil && out.Succeeded()
	p.emit(ctx, importName, present)
	if present {
		return nil
	}

	msg := fmt.Sprintf("library %s is not importable", importName)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	} else if detail := lastLine(out.Stderr); detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	return &domain.ConversionError{
		Kind:     domain.KindLibraryMissing,
		Message:  msg,
		ExitCode: out.ExitCode,
		Stderr:   out.Stderr,
		Err:      err,
	}
}

// ProbeLibraries checks each library in order, starting the next probe only
// after the previous one has finished.
func (p *Probe) ProbeLibraries(ctx context.Context, libs []domain.LibrarySpec) []LibraryStatus {
	statuses := make([]LibraryStatus, 0, len(libs))
	for _, lib := range libs {
		err := p.CheckLibrary(ctx, lib.ImportName)
		status := LibraryStatus{Library: lib, Present: err == nil}
		if err != nil {
			status.Detail = err.Error()
			p.logger.Info("library missing", "library", lib.ImportName, "description", lib.Description)
		} else {
			p.logger.Info("library present", "library", lib.ImportName, "description", lib.Description)
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Missing filters the statuses down to the absent libraries, in order.
func Missing(statuses []LibraryStatus) []domain.LibrarySpec {
	var missing []domain.LibrarySpec
	for _, s := range statuses {
		if !s.Present {
			missing = append(missing, s.Library)
		}
	}
	return missing
}

func (p *Probe) emit(ctx context.Context, target string, present bool) {
	domain.Emit(ctx, p.hooks.OnProbe, &domain.ProbeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventProbe},
		Target:    target,
		Present:   present,
	})
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
