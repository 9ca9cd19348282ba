package ports

import (
	"context"

	"github.com/aretw0/hanconv/pkg/domain"
)

// ExternalRuntime runs external processes on behalf of the probe, the
// installer and the conversion pipeline. It is the only component that
// touches the host's PATH-resolved interpreter and package manager.
type ExternalRuntime interface {
	// Run executes cmd to completion and returns its outcome.
	// A non-nil error means the process could not be started at all; every
	// other failure (non-zero exit, timeout, signal) is described by the
	// returned ProcessOutcome.
	Run(ctx context.Context, cmd domain.Command) (domain.ProcessOutcome, error)
}

// RuntimeFunc adapts a function to ExternalRuntime.
type RuntimeFunc func(ctx context.Context, cmd domain.Command) (domain.ProcessOutcome, error)

// Run calls f(ctx, cmd).
func (f RuntimeFunc) Run(ctx context.Context, cmd domain.Command) (domain.ProcessOutcome, error) {
	return f(ctx, cmd)
}
