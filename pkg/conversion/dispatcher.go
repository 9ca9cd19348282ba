package conversion

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/aretw0/hanconv/internal/logging"
	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/aretw0/hanconv/pkg/ports"
)

// ScriptResolver locates the worker script for one dispatch.
type ScriptResolver interface {
	Resolve() (string, error)
}

// Dispatcher is the public entry point for conversions.
type Dispatcher struct {
	resolver ScriptResolver
	process  *Process
	cache    ports.ResultCache
	hooks    domain.Hooks
	logger   *slog.Logger
	newID    func() string
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithCache enables the result cache. Only successful outputs are stored.
func WithCache(c ports.ResultCache) DispatcherOption {
	return func(d *Dispatcher) {
		d.cache = c
	}
}

// WithHooks registers observer callbacks.
func WithHooks(hooks domain.Hooks) DispatcherOption {
	return func(d *Dispatcher) {
		d.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithRequestIDs overrides request ID generation.
func WithRequestIDs(fn func() string) DispatcherOption {
	return func(d *Dispatcher) {
		d.newID = fn
	}
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(resolver ScriptResolver, process *Process, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		resolver: resolver,
		process:  process,
		logger:   logging.NewNop(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Convert transforms text with action and returns the replacement text.
// On failure the error is a *domain.ConversionError whose message is fit to
// show the user as is.
func (d *Dispatcher) Convert(ctx context.Context, text string, action domain.ActionKind) (string, error) {
	return d.Dispatch(ctx, domain.ConversionRequest{Text: text, Action: action}).Unpack()
}

// Dispatch runs one request end to end and always returns exactly one result.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.ConversionRequest) domain.ConversionResult {
	id := d.newID()
	start := time.Now()
	logger := d.logger.With("request_id", id, "action", req.Action)

	domain.Emit(ctx, d.hooks.OnConvertStart, &domain.ConvertEvent{
		EventBase: domain.EventBase{Timestamp: start, Type: domain.EventConvertStart, RequestID: id},
		Action:    req.Action,
		Chars:     utf8.RuneCountInString(req.Text),
	})

	res := d.dispatch(ctx, logger, req)
	res.RequestID = id
	elapsed := time.Since(start)

	if res.OK() {
		logger.Info("conversion succeeded", "duration", elapsed, "cached", res.Cached)
	} else {
		logger.Warn("conversion failed", "kind", res.Kind(), "error", res.Err, "duration", elapsed)
	}

	domain.Emit(ctx, d.hooks.OnConvertDone, &domain.ConvertEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventConvertDone, RequestID: id},
		Action:    req.Action,
		Chars:     utf8.RuneCountInString(req.Text),
		Duration:  elapsed,
		Kind:      res.Kind(),
		Cached:    res.Cached,
	})
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, logger *slog.Logger, req domain.ConversionRequest) domain.ConversionResult {
	if err := req.Validate(); err != nil {
		return domain.Failure(asConversionError(err, domain.KindInvalidInput))
	}

	var key string
	if d.cache != nil {
		key = ports.CacheKey(req)
		out, err := d.cache.Get(ctx, key)
		switch {
		case err == nil:
			res := domain.Success(out)
			res.Cached = res.OK()
			if res.OK() {
				return res
			}
		case !errors.Is(err, ports.ErrCacheMiss):
			logger.Warn("cache lookup failed", "error", err)
		}
	}

	script, err := d.resolver.Resolve()
	if err != nil {
		return domain.Failure(asConversionError(err, domain.KindScriptNotFound))
	}
	logger.Debug("resolved worker script", "path", script)

	res := d.process.Run(ctx, script, req)
	if res.OK() && d.cache != nil {
		if err := d.cache.Set(ctx, key, res.Output); err != nil {
			logger.Warn("cache store failed", "error", err)
		}
	}
	return res
}

func asConversionError(err error, fallback domain.ErrorKind) *domain.ConversionError {
	var ce *domain.ConversionError
	if errors.As(err, &ce) {
		return ce
	}
	return &domain.ConversionError{Kind: fallback, Message: err.Error(), Err: err}
}
