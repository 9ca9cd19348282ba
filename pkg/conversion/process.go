package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/aretw0/hanconv/internal/logging"
	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/aretw0/hanconv/pkg/ports"
)

// DefaultTimeout bounds a single conversion.
const DefaultTimeout = 30 * time.Second

// DefaultInterpreterArgs force unbuffered, UTF-8 mode on the worker.
var DefaultInterpreterArgs = []string{"-u", "-X", "utf8"}

// UTF8Env forces UTF-8 on the worker's standard streams regardless of locale.
var UTF8Env = []string{"PYTHONIOENCODING=utf-8", "PYTHONUTF8=1"}

// Process spawns the worker, one process per request.
type Process struct {
	runtime         ports.ExternalRuntime
	interpreter     string
	interpreterArgs []string
	env             []string
	timeout         time.Duration
	logger          *slog.Logger
}

// ProcessOption configures a Process.
type ProcessOption func(*Process)

// WithInterpreterArgs replaces the arguments placed before the script path.
func WithInterpreterArgs(args ...string) ProcessOption {
	return func(p *Process) {
		p.interpreterArgs = args
	}
}

// WithEnv appends KEY=VALUE pairs to the worker's environment.
func WithEnv(env ...string) ProcessOption {
	return func(p *Process) {
		p.env = append(p.env, env...)
	}
}

// WithTimeout bounds each run. Zero disables the bound.
func WithTimeout(d time.Duration) ProcessOption {
	return func(p *Process) {
		p.timeout = d
	}
}

// WithProcessLogger sets the structured logger.
func WithProcessLogger(logger *slog.Logger) ProcessOption {
	return func(p *Process) {
		p.logger = logger
	}
}

// NewProcess creates a worker runner for interpreter.
func NewProcess(rt ports.ExternalRuntime, interpreter string, opts ...ProcessOption) *Process {
	p := &Process{
		runtime:         rt,
		interpreter:     interpreter,
		interpreterArgs: DefaultInterpreterArgs,
		env:             append([]string(nil), UTF8Env...),
		timeout:         DefaultTimeout,
		logger:          logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Command builds the worker invocation for req.
func (p *Process) Command(scriptPath string, req domain.ConversionRequest) domain.Command {
	args := make([]string, 0, len(p.interpreterArgs)+3)
	args = append(args, p.interpreterArgs...)
	args = append(args, scriptPath, string(req.Action), req.Text)
	return domain.Command{Name: p.interpreter, Args: args, Env: p.env}
}

// Run executes the worker once and classifies the outcome. It never retries.
func (p *Process) Run(ctx context.Context, scriptPath string, req domain.ConversionRequest) domain.ConversionResult {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	out, err := p.runtime.Run(ctx, p.Command(scriptPath, req))
	// A worker that finished before the deadline keeps its result even if
	// the context expired while the outcome was being collected.
	if out.TimedOut || (err != nil && ctx.Err() != nil) {
		return domain.Failure(p.interrupted(ctx, out))
	}
	if err != nil {
		p.logger.Error("failed to start worker", "interpreter", p.interpreter, "error", err)
		return domain.Failure(&domain.ConversionError{
			Kind:    domain.KindProcessSpawnFailed,
			Message: fmt.Sprintf("failed to start %s: %v", p.interpreter, err),
			Err:     err,
		})
	}
	return Classify(out)
}

func (p *Process) interrupted(ctx context.Context, out domain.ProcessOutcome) *domain.ConversionError {
	cause := ctx.Err()
	if cause == nil {
		cause = context.DeadlineExceeded
	}
	msg := "conversion cancelled"
	if errors.Is(cause, context.DeadlineExceeded) {
		msg = fmt.Sprintf("conversion timed out after %s", p.timeout)
	}
	p.logger.Warn("worker interrupted", "reason", cause)
	return &domain.ConversionError{
		Kind:     domain.KindTimeout,
		Message:  msg,
		ExitCode: out.ExitCode,
		Stderr:   out.Stderr,
		Err:      cause,
	}
}

// Classify applies the exit-code policy to a finished worker.
func Classify(out domain.ProcessOutcome) domain.ConversionResult {
	stderr := strings.TrimSpace(out.Stderr)

	if !out.CleanOrUnknownExit() {
		msg := fmt.Sprintf("worker exited with code %d", *out.ExitCode)
		if stderr != "" {
			msg += ": " + stderr
		}
		return domain.Failure(&domain.ConversionError{
			Kind:     domain.KindProcessExitedNonZero,
			Message:  msg,
			ExitCode: out.ExitCode,
			Stderr:   out.Stderr,
		})
	}

	stdout := decode(out.Stdout)
	if stdout == "" {
		msg := "no result produced"
		if stderr != "" {
			msg = "worker produced no output: " + stderr
		}
		return domain.Failure(&domain.ConversionError{
			Kind:     domain.KindEmptyResult,
			Message:  msg,
			ExitCode: out.ExitCode,
			Stderr:   out.Stderr,
		})
	}
	return domain.Success(stdout)
}

// decode strips a leading byte order mark and replaces ill-formed UTF-8.
// Well-formed output passes through unchanged.
func decode(s string) string {
	decoded, _, err := transform.String(unicode.UTF8BOM.NewDecoder(), s)
	if err != nil {
		return s
	}
	return decoded
}
