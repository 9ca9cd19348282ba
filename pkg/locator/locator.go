// Package locator resolves the worker script on disk.
package locator

import (
	"os"
	"path/filepath"

	"github.com/aretw0/hanconv/pkg/domain"
)

// DefaultScript is the worker's file name.
const DefaultScript = "converter.py"

// missingExtensionDir is reported in place of the extension candidate when
// the host did not provide a directory.
const missingExtensionDir = "(extension directory not reported)"

// Locator finds the worker script. Candidates are, in order: the host's
// extension directory, the directory of the running executable, and the
// current working directory. Nothing is cached; every call re-checks disk.
type Locator struct {
	script       string
	extensionDir string
	executable   func() (string, error)
	workingDir   func() (string, error)
	stat         func(string) (os.FileInfo, error)
}

// Option configures a Locator.
type Option func(*Locator)

// WithExtensionDir sets the host-reported extension directory.
func WithExtensionDir(dir string) Option {
	return func(l *Locator) {
		l.extensionDir = dir
	}
}

// WithExecutable overrides how the running executable's path is discovered.
func WithExecutable(fn func() (string, error)) Option {
	return func(l *Locator) {
		l.executable = fn
	}
}

// WithWorkingDir overrides how the current working directory is discovered.
func WithWorkingDir(fn func() (string, error)) Option {
	return func(l *Locator) {
		l.workingDir = fn
	}
}

// New creates a locator for script (DefaultScript when empty).
func New(script string, opts ...Option) *Locator {
	if script == "" {
		script = DefaultScript
	}
	l := &Locator{
		script:     script,
		executable: os.Executable,
		workingDir: os.Getwd,
		stat:       os.Stat,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Script returns the file name being searched for.
func (l *Locator) Script() string {
	return l.script
}

// Candidates lists the paths Resolve checks, in order. Candidates whose
// base directory cannot be determined are reported with a placeholder.
func (l *Locator) Candidates() []string {
	if filepath.IsAbs(l.script) {
		return []string{l.script}
	}

	candidates := make([]string, 0, 3)
	if l.extensionDir != "" {
		candidates = append(candidates, l.join(l.extensionDir))
	} else {
		candidates = append(candidates, missingExtensionDir)
	}

	if exe, err := l.executable(); err == nil {
		candidates = append(candidates, l.join(filepath.Dir(exe)))
	} else {
		candidates = append(candidates, "(executable directory unavailable: "+err.Error()+")")
	}

	if wd, err := l.workingDir(); err == nil {
		candidates = append(candidates, l.join(wd))
	} else {
		candidates = append(candidates, "(working directory unavailable: "+err.Error()+")")
	}
	return candidates
}

// Resolve returns the first existing candidate, or a ScriptNotFound error
// listing every attempted path.
func (l *Locator) Resolve() (string, error) {
	candidates := l.Candidates()
	for _, c := range candidates {
		if !filepath.IsAbs(c) {
			continue
		}
		if info, err := l.stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", domain.ScriptNotFoundError(l.script, candidates)
}

func (l *Locator) join(dir string) string {
	path := filepath.Join(dir, l.script)
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
