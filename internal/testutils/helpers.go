package testutils

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/stretchr/testify/require"
)

// Response is a scripted reply of a FakeRuntime.
type Response struct {
	Outcome domain.ProcessOutcome
	Err     error
}

// Exit builds a response for a process that exited with code and streams.
func Exit(code int, stdout, stderr string) Response {
	return Response{Outcome: domain.ProcessOutcome{ExitCode: domain.ExitStatus(code), Stdout: stdout, Stderr: stderr}}
}

// SpawnError builds a response for a process that could not be started.
func SpawnError(err error) Response {
	return Response{Err: err}
}

// FakeRuntime is a scripted ports.ExternalRuntime. Responses are matched by
// the longest registered prefix of the rendered command line; unmatched
// commands fall back to Default.
type FakeRuntime struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []domain.Command
	active    int
	maxActive int

	// Default is returned for commands without a registered response.
	Default Response

	// Hook, if set, runs inside Run before the response is returned.
	Hook func(ctx context.Context, cmd domain.Command)
}

// NewFakeRuntime creates a runtime answering every unmatched call with exit 0.
func NewFakeRuntime() *FakeRuntime {
	return &FakeRuntime{
		responses: make(map[string]Response),
		Default:   Exit(0, "", ""),
	}
}

// On registers the response for commands whose rendered line starts with prefix.
func (f *FakeRuntime) On(prefix string, r Response) *FakeRuntime {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = r
	return f
}

// Run records the call and returns the scripted response.
func (f *FakeRuntime) Run(ctx context.Context, cmd domain.Command) (domain.ProcessOutcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	r := f.match(cmd.String())
	hook := f.Hook
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if hook != nil {
		hook(ctx, cmd)
	}
	if ctx.Err() != nil && r.Err == nil {
		r.Outcome.TimedOut = true
	}
	return r.Outcome, r.Err
}

// Calls returns a copy of every command seen so far, in order.
func (f *FakeRuntime) Calls() []domain.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallLines renders every recorded command as a command line.
func (f *FakeRuntime) CallLines() []string {
	calls := f.Calls()
	lines := make([]string, 0, len(calls))
	for _, c := range calls {
		lines = append(lines, c.String())
	}
	return lines
}

// MaxConcurrent reports the highest number of overlapping Run calls.
func (f *FakeRuntime) MaxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive
}

func (f *FakeRuntime) match(line string) Response {
	best := -1
	r := f.Default
	for prefix, resp := range f.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > best {
			best = len(prefix)
			r = resp
		}
	}
	return r
}

// WriteScript creates a worker script stub named name in dir and returns
// its absolute path. It fails the test immediately on error.
func WriteScript(t *testing.T, dir, name string) string {
	t.Helper()

	absDir, err := filepath.Abs(dir)
	require.NoError(t, err, "Failed to get absolute path for script dir")

	path := filepath.Join(absDir, name)
	require.NoError(t, os.WriteFile(path, []byte("import sys\n"), 0o644), "Failed to write script stub")
	return path
}
