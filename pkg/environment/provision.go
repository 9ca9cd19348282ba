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

// DefaultLockTTL bounds how long one host may hold the install lock.
const DefaultLockTTL = 15 * time.Minute

// provisionLockKey is shared by every host installing into the same environment.
const provisionLockKey = "provision"

// Severity grades a Notice.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notice is a user-facing provisioning message. Manual carries commands the
// user can run by hand when provisioning could not complete.
type Notice struct {
	Severity Severity
	Message  string
	Manual   []string
}

// Notifier delivers notices to the host UI.
type Notifier func(Notice)

// ProvisionReport summarizes one provisioning run.
type ProvisionReport struct {
	RuntimeVersion string                  `json:"runtime_version,omitempty"`
	RuntimeErr     *domain.ConversionError `json:"-"`
	Libraries      []LibraryStatus         `json:"libraries,omitempty"`
	Install        *InstallOutcome         `json:"install,omitempty"`
	Ready          bool                    `json:"ready"`
	Duration       time.Duration           `json:"duration"`
}

// Missing lists the libraries absent at probe time.
func (r ProvisionReport) Missing() []domain.LibrarySpec {
	return Missing(r.Libraries)
}

// Provisioner checks the environment and installs what is missing.
type Provisioner struct {
	probe       *Probe
	installer   *Installer
	libraries   []domain.LibrarySpec
	autoInstall bool
	locker      ports.Locker
	lockTTL     time.Duration
	notify      Notifier
	logger      *slog.Logger
}

// ProvisionerOption configures a Provisioner.
type ProvisionerOption func(*Provisioner)

// WithNotifier sets the callback receiving user-facing notices.
func WithNotifier(n Notifier) ProvisionerOption {
	return func(p *Provisioner) {
		p.notify = n
	}
}

// WithLocker serializes installs across hosts sharing the environment.
func WithLocker(l ports.Locker, ttl time.Duration) ProvisionerOption {
	return func(p *Provisioner) {
		p.locker = l
		if ttl > 0 {
			p.lockTTL = ttl
		}
	}
}

// WithAutoInstall toggles installation of missing libraries. When disabled
// the provisioner only reports what is missing.
func WithAutoInstall(enabled bool) ProvisionerOption {
	return func(p *Provisioner) {
		p.autoInstall = enabled
	}
}

// WithProvisionerLogger sets the structured logger.
func WithProvisionerLogger(logger *slog.Logger) ProvisionerOption {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

// NewProvisioner creates a provisioner for libs.
func NewProvisioner(probe *Probe, installer *Installer, libs []domain.LibrarySpec, opts ...ProvisionerOption) *Provisioner {
	p := &Provisioner{
		probe:       probe,
		installer:   installer,
		libraries:   libs,
		autoInstall: true,
		lockTTL:     DefaultLockTTL,
		notify:      func(Notice) {},
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start runs provisioning in the background. The channel receives exactly
// one report and is then closed.
func (p *Provisioner) Start(ctx context.Context) <-chan ProvisionReport {
	ch := make(chan ProvisionReport, 1)
	go func() {
		defer close(ch)
		ch <- p.Run(ctx)
	}()
	return ch
}

// Run probes the runtime, then every library in order, then installs the
// missing subset in one batch.
func (p *Provisioner) Run(ctx context.Context) ProvisionReport {
	start := time.Now()
	report := p.run(ctx)
	report.Duration = time.Since(start)
	p.logger.Info("provisioning finished", "ready", report.Ready, "duration", report.Duration)
	return report
}

func (p *Provisioner) run(ctx context.Context) ProvisionReport {
	var report ProvisionReport

	version, err := p.probe.CheckRuntime(ctx)
	if err != nil {
		report.RuntimeErr = asConversionError(err)
		p.logger.Error("runtime unavailable", "error", err)
		p.notify(Notice{Severity: SeverityError, Message: "Python runtime not found: install Python 3.6+ and add it to PATH"})
		return report
	}
	report.RuntimeVersion = version

	report.Libraries = p.probe.ProbeLibraries(ctx, p.libraries)
	missing := Missing(report.Libraries)
	if len(missing) == 0 {
		report.Ready = true
		p.notify(Notice{Severity: SeverityInfo, Message: "All dependencies are ready"})
		return report
	}

	names := importNames(missing)
	if !p.autoInstall {
		p.notify(Notice{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Missing libraries: %s", strings.Join(names, ", ")),
			Manual:   p.installer.manual(domain.PackageSpecs(missing)),
		})
		return report
	}

	if p.locker != nil {
		unlock, err := p.locker.Lock(ctx, provisionLockKey, p.lockTTL)
		if err != nil {
			p.logger.Warn("could not acquire provisioning lock, skipping install", "error", err)
			p.notify(Notice{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Another installation is in progress; missing libraries: %s", strings.Join(names, ", ")),
				Manual:   p.installer.manual(domain.PackageSpecs(missing)),
			})
			return report
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				p.logger.Warn("failed to release provisioning lock", "error", err)
			}
		}()

		// Another holder may have installed them while we waited.
		report.Libraries = merge(report.Libraries, p.probe.ProbeLibraries(ctx, missing))
		missing = Missing(report.Libraries)
		if len(missing) == 0 {
			report.Ready = true
			p.notify(Notice{Severity: SeverityInfo, Message: "All dependencies are ready"})
			return report
		}
	}

	p.notify(Notice{Severity: SeverityInfo, Message: "Installing missing libraries..."})
	outcome := p.installer.Install(ctx, missing)
	report.Install = &outcome

	if !outcome.Success {
		p.notify(Notice{
			Severity: SeverityError,
			Message:  fmt.Sprintf("Library installation failed: %v. Run manually: %s", outcome.Err, outcome.Command),
			Manual:   outcome.Manual,
		})
		return report
	}

	report.Ready = true
	p.notify(Notice{Severity: SeverityInfo, Message: "Dependencies installed; all features are available"})
	return report
}

// merge overlays fresh statuses onto earlier ones, keeping the original order.
func merge(prev, fresh []LibraryStatus) []LibraryStatus {
	byName := make(map[string]LibraryStatus, len(fresh))
	for _, s := range fresh {
		byName[s.Library.ImportName] = s
	}
	out := make([]LibraryStatus, len(prev))
	for i, s := range prev {
		if f, ok := byName[s.Library.ImportName]; ok {
			s = f
		}
		out[i] = s
	}
	return out
}

func importNames(libs []domain.LibrarySpec) []string {
	names := make([]string, 0, len(libs))
	for _, l := range libs {
		names = append(names, l.ImportName)
	}
	return names
}

func asConversionError(err error) *domain.ConversionError {
	if ce, ok := err.(*domain.ConversionError); ok {
		return ce
	}
	return &domain.ConversionError{Kind: domain.KindRuntimeUnavailable, Message: err.Error(), Err: err}
}
