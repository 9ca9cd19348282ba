package environment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/hanconv/internal/logging"
	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/aretw0/hanconv/pkg/ports"
)

// InstallOutcome is the result of one batched install.
type InstallOutcome struct {
	Success  bool     `json:"success"`
	Packages []string `json:"packages,omitempty"`

	// Command is the exact command line that was run.
	Command string `json:"command,omitempty"`

	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`

	// Manual lists one command per package for the user to run by hand.
	Manual []string `json:"manual,omitempty"`

	Err *domain.ConversionError `json:"-"`
}

// Installer runs the package manager for missing libraries.
type Installer struct {
	runtime        ports.ExternalRuntime
	packageManager string
	logger         *slog.Logger
	hooks          domain.Hooks
}

// InstallerOption configures an Installer.
type InstallerOption func(*Installer)

// WithInstallerLogger sets the structured logger.
func WithInstallerLogger(logger *slog.Logger) InstallerOption {
	return func(i *Installer) {
		i.logger = logger
	}
}

// WithInstallerHooks registers observer callbacks.
func WithInstallerHooks(hooks domain.Hooks) InstallerOption {
	return func(i *Installer) {
		i.hooks = hooks
	}
}

// NewInstaller creates an installer driving packageManager (e.g. "pip").
func NewInstaller(rt ports.ExternalRuntime, packageManager string, opts ...InstallerOption) *Installer {
	i := &Installer{
		runtime:        rt,
		packageManager: packageManager,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install runs `<pm> install <spec>...` once for all missing libraries.
// It always returns an outcome; an empty list succeeds without spawning.
func (i *Installer) Install(ctx context.Context, missing []domain.LibrarySpec) InstallOutcome {
	if len(missing) == 0 {
		return InstallOutcome{Success: true}
	}

	specs := domain.PackageSpecs(missing)
	cmd := domain.Command{Name: i.packageManager, Args: append([]string{"install"}, specs...)}
	outcome := InstallOutcome{Packages: specs, Command: cmd.String()}

	i.logger.Info("installing libraries", "command", outcome.Command)
	out, err := i.runtime.Run(ctx, cmd)
	outcome.Stdout = out.Stdout
	outcome.Stderr = out.Stderr

	switch {
	case err != nil:
		outcome.Err = &domain.ConversionError{
			Kind:    domain.KindInstallFailed,
			Message: fmt.Sprintf("could not run %s: %v", i.packageManager, err),
			Err:     err,
		}
	case !out.Succeeded():
		outcome.Err = &domain.ConversionError{
			Kind:     domain.KindInstallFailed,
			Message:  fmt.Sprintf("%s exited with %s", outcome.Command, describeExit(out)),
			ExitCode: out.ExitCode,
			Stderr:   out.Stderr,
		}
	default:
		outcome.Success = true
	}

	if !outcome.Success {
		outcome.Manual = i.manual(specs)
		i.logger.Error("install failed", "command", outcome.Command, "error", outcome.Err, "stderr", out.Stderr)
	} else {
		i.logger.Info("install succeeded", "packages", specs)
	}

	domain.Emit(ctx, i.hooks.OnInstall, &domain.InstallEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventInstall},
		Packages:  specs,
		Success:   outcome.Success,
	})
	return outcome
}

func (i *Installer) manual(specs []string) []string {
	lines := make([]string, 0, len(specs))
	for _, s := range specs {
		lines = append(lines, domain.JoinCommandLine([]string{i.packageManager, "install", s}))
	}
	return lines
}

func describeExit(out domain.ProcessOutcome) string {
	if out.ExitCode == nil {
		return "no exit status"
	}
	return fmt.Sprintf("code %d", *out.ExitCode)
}
