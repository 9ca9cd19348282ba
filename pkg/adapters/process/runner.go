package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	goruntime "runtime"
	"time"

	"github.com/aretw0/hanconv/internal/logging"
	"github.com/aretw0/hanconv/pkg/domain"
)

// DefaultGracePeriod is how long a cancelled process may take to exit after
// the interrupt before it is killed.
const DefaultGracePeriod = 5 * time.Second

// Stream identifies one of the child's output streams.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// ChunkObserver receives every output chunk as it arrives. Chunks of the
// two streams are delivered from different goroutines, so implementations
// must be safe for concurrent use. The slice is only valid during the call.
type ChunkObserver func(stream Stream, chunk []byte)

// Runner implements ports.ExternalRuntime by spawning local processes.
type Runner struct {
	baseDir     string
	env         []string
	gracePeriod time.Duration
	observer    ChunkObserver
	logger      *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithEnv appends KEY=VALUE pairs to every child's environment.
func WithEnv(env ...string) RunnerOption {
	return func(r *Runner) {
		r.env = append(r.env, env...)
	}
}

// WithGracePeriod sets the interrupt-to-kill delay used on cancellation.
func WithGracePeriod(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.gracePeriod = d
	}
}

// WithChunkObserver streams output chunks to fn while the process runs.
func WithChunkObserver(fn ChunkObserver) RunnerOption {
	return func(r *Runner) {
		r.observer = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		gracePeriod: DefaultGracePeriod,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the command, accumulates stdout and stderr concurrently and
// returns once the process has exited and both streams are drained.
// Only a failure to start the process is returned as an error.
func (r *Runner) Run(ctx context.Context, c domain.Command) (domain.ProcessOutcome, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = r.baseDir
	cmd.Env = append(cmd.Environ(), r.env...)
	cmd.Env = append(cmd.Env, c.Env...)

	// Interrupt first so the child can flush; WaitDelay escalates to a kill.
	cmd.Cancel = func() error {
		if goruntime.GOOS == "windows" {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.gracePeriod

	var stdout, stderr bytes.Buffer
	cmd.Stdout = r.sink(Stdout, &stdout)
	cmd.Stderr = r.sink(Stderr, &stderr)

	r.logger.Debug("starting process", "command", c.Name, "args", len(c.Args))
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return domain.ProcessOutcome{}, err
	}

	waitErr := cmd.Wait()

	outcome := domain.ProcessOutcome{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(cmd, waitErr),
		TimedOut: waitErr != nil && ctx.Err() != nil,
	}

	r.logger.Debug("process finished",
		"command", c.Name,
		"duration", time.Since(start),
		"exit_code", outcome.ExitCode,
		"stdout_bytes", len(outcome.Stdout),
		"stderr_bytes", len(outcome.Stderr),
		"cancelled", outcome.TimedOut,
	)

	return outcome, nil
}

func (r *Runner) sink(stream Stream, buf *bytes.Buffer) io.Writer {
	return &chunkWriter{stream: stream, buf: buf, observer: r.observer, logger: r.logger}
}

// exitCode maps Wait's result to an exit status; nil means the process
// was terminated abnormally (signal) and reported no code.
func exitCode(cmd *exec.Cmd, waitErr error) *int {
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return domain.ExitStatus(code)
		}
		return nil
	}
	if cmd.ProcessState == nil {
		return nil
	}
	if code := cmd.ProcessState.ExitCode(); code >= 0 {
		return domain.ExitStatus(code)
	}
	return nil
}

// chunkWriter accumulates one stream. exec copies each stream from its own
// goroutine, so a writer is never written concurrently.
type chunkWriter struct {
	stream   Stream
	buf      *bytes.Buffer
	observer ChunkObserver
	logger   *slog.Logger
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	if w.observer != nil {
		w.observer(w.stream, p)
	}
	w.logger.Debug("received chunk", "stream", w.stream, "bytes", len(p))
	return len(p), nil
}
