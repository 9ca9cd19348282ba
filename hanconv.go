package hanconv

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/hanconv/internal/logging"
	"github.com/aretw0/hanconv/pkg/adapters/memory"
	"github.com/aretw0/hanconv/pkg/adapters/process"
	"github.com/aretw0/hanconv/pkg/adapters/redis"
	"github.com/aretw0/hanconv/pkg/config"
	"github.com/aretw0/hanconv/pkg/conversion"
	"github.com/aretw0/hanconv/pkg/diagnostics"
	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/aretw0/hanconv/pkg/environment"
	"github.com/aretw0/hanconv/pkg/locator"
	"github.com/aretw0/hanconv/pkg/persistence/middleware"
	"github.com/aretw0/hanconv/pkg/ports"
)

// Version is the release of this module.
//
//go:embed VERSION
var Version string

// Converter is the high-level entry point for the hanconv library.
// It wires the probe, installer, locator, worker process and dispatcher
// from a single configuration.
type Converter struct {
	cfg         config.Config
	runtime     ports.ExternalRuntime
	cache       ports.ResultCache
	locker      ports.Locker
	hooks       domain.Hooks
	notifier    environment.Notifier
	logger      *slog.Logger
	locatorOpts []locator.Option
	redisClient *backend.Client

	probe       *environment.Probe
	installer   *environment.Installer
	provisioner *environment.Provisioner
	locator     *locator.Locator
	dispatcher  *conversion.Dispatcher
	diagnostics *diagnostics.Diagnostics
}

// Option defines a functional option for configuring the Converter.
type Option func(*Converter)

// WithRuntime replaces the process runtime, e.g. with a scripted fake.
func WithRuntime(rt ports.ExternalRuntime) Option {
	return func(c *Converter) {
		c.runtime = rt
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.Hooks) Option {
	return func(c *Converter) {
		c.hooks = c.hooks.Merge(hooks)
	}
}

// WithCache overrides the cache selected by the configuration.
func WithCache(cache ports.ResultCache) Option {
	return func(c *Converter) {
		c.cache = cache
	}
}

// WithLocker guards provisioning with a lock.
func WithLocker(l ports.Locker) Option {
	return func(c *Converter) {
		c.locker = l
	}
}

// WithNotifier receives user-facing provisioning notices.
func WithNotifier(n environment.Notifier) Option {
	return func(c *Converter) {
		c.notifier = n
	}
}

// WithLocatorOptions passes extra options to the script locator.
func WithLocatorOptions(opts ...locator.Option) Option {
	return func(c *Converter) {
		c.locatorOpts = append(c.locatorOpts, opts...)
	}
}

// New initializes a Converter from cfg.
func New(cfg config.Config, opts ...Option) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Converter{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if c.runtime == nil {
		c.runtime = process.NewRunner(process.WithLogger(c.logger))
	}

	if err := c.setupBackends(); err != nil {
		return nil, err
	}

	c.probe = environment.NewProbe(c.runtime, cfg.Interpreter,
		environment.WithProbeLogger(c.logger),
		environment.WithProbeHooks(c.hooks),
	)
	c.installer = environment.NewInstaller(c.runtime, cfg.PackageManager,
		environment.WithInstallerLogger(c.logger),
		environment.WithInstallerHooks(c.hooks),
	)

	provOpts := []environment.ProvisionerOption{environment.WithProvisionerLogger(c.logger)}
	if c.notifier != nil {
		provOpts = append(provOpts, environment.WithNotifier(c.notifier))
	}
	if c.locker != nil {
		provOpts = append(provOpts, environment.WithLocker(c.locker, cfg.InstallTimeout.Std()))
	}
	c.provisioner = environment.NewProvisioner(c.probe, c.installer, cfg.Libraries, provOpts...)

	c.locator = locator.New(cfg.Script, append([]locator.Option{locator.WithExtensionDir(cfg.ExtensionDir)}, c.locatorOpts...)...)

	proc := conversion.NewProcess(c.runtime, cfg.Interpreter,
		conversion.WithInterpreterArgs(cfg.InterpreterArgs...),
		conversion.WithTimeout(cfg.Timeout.Std()),
		conversion.WithProcessLogger(c.logger),
	)
	dispOpts := []conversion.DispatcherOption{
		conversion.WithLogger(c.logger),
		conversion.WithHooks(c.hooks),
	}
	// The diagnostics trial always spawns the worker, so it never sees the cache.
	live := conversion.NewDispatcher(c.locator, proc, dispOpts...)
	if c.cache != nil {
		dispOpts = append(dispOpts, conversion.WithCache(c.cache))
	}
	c.dispatcher = conversion.NewDispatcher(c.locator, proc, dispOpts...)

	c.diagnostics = diagnostics.New(c.probe, c.locator, live, cfg.Libraries,
		diagnostics.WithVersion(Version),
		diagnostics.WithExtensionDir(cfg.ExtensionDir),
		diagnostics.WithLogger(c.logger),
	)
	return c, nil
}

// setupBackends builds the cache and lock named by the configuration,
// unless they were injected.
func (c *Converter) setupBackends() error {
	needRedis := (c.cache == nil && c.cfg.Cache.Backend == "redis") ||
		(c.locker == nil && c.cfg.Redis.LockProvisioning)
	if needRedis {
		c.redisClient = backend.NewClient(&backend.Options{
			Addr:     c.cfg.Redis.Addr,
			Password: c.cfg.Redis.Password,
			DB:       c.cfg.Redis.DB,
		})
	}

	if c.cache == nil {
		switch c.cfg.Cache.Backend {
		case "memory":
			c.cache = memory.NewCache(
				memory.WithTTL(c.cfg.Cache.TTL.Std()),
				memory.WithMaxEntries(c.cfg.Cache.MaxEntries),
			)
		case "redis":
			c.cache = redis.NewFromClient(c.redisClient,
				redis.WithTTL(c.cfg.Cache.TTL.Std()),
				redis.WithPrefix(c.cfg.Redis.Prefix),
			)
		case "", "none":
		default:
			return fmt.Errorf("unknown cache backend %q", c.cfg.Cache.Backend)
		}
	}

	if c.cache != nil {
		mws := []middleware.Middleware{middleware.NewLoggingMiddleware(c.logger)}
		if keys := c.cfg.Cache.EncryptionKeys; len(keys) > 0 {
			enc, err := middleware.ParseKeys(keys...)
			if err != nil {
				return fmt.Errorf("cache encryption: %w", err)
			}
			mw, err := middleware.NewEncryptionMiddleware(enc)
			if err != nil {
				return fmt.Errorf("cache encryption: %w", err)
			}
			mws = append(mws, mw)
		}
		c.cache = middleware.Chain(c.cache, mws...)
	}

	if c.locker == nil {
		if c.cfg.Redis.LockProvisioning {
			c.locker = redis.NewLocker(c.redisClient, c.cfg.Redis.Prefix)
		} else {
			// Serializes installs started by this process only.
			c.locker = memory.NewLocker()
		}
	}
	return nil
}

// Convert transforms text with action. On failure the returned error is a
// *domain.ConversionError whose message can be shown to the user unchanged;
// the caller keeps its original text.
func (c *Converter) Convert(ctx context.Context, text string, action domain.ActionKind) (string, error) {
	return c.dispatcher.Convert(ctx, text, action)
}

// Dispatch runs one request and returns the full result.
func (c *Converter) Dispatch(ctx context.Context, req domain.ConversionRequest) domain.ConversionResult {
	return c.dispatcher.Dispatch(ctx, req)
}

// Provision checks the environment and installs missing libraries,
// bounded by the configured install timeout.
func (c *Converter) Provision(ctx context.Context) environment.ProvisionReport {
	if d := c.cfg.InstallTimeout.Std(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return c.provisioner.Run(ctx)
}

// StartProvisioning runs Provision in the background. Conversions are not
// blocked while it runs.
func (c *Converter) StartProvisioning(ctx context.Context) <-chan environment.ProvisionReport {
	ch := make(chan environment.ProvisionReport, 1)
	go func() {
		defer close(ch)
		ch <- c.Provision(ctx)
	}()
	return ch
}

// Diagnose produces a diagnostics report, including one trial conversion.
func (c *Converter) Diagnose(ctx context.Context) *diagnostics.Report {
	return c.diagnostics.Generate(ctx)
}

// ResolveScript returns the worker script path that the next dispatch would use.
func (c *Converter) ResolveScript() (string, error) {
	return c.locator.Resolve()
}

// Config returns the configuration the converter was built from.
func (c *Converter) Config() config.Config {
	return c.cfg
}

// Ping checks connectivity of the configured backends.
func (c *Converter) Ping(ctx context.Context) error {
	if c.redisClient == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", c.cfg.Redis.Addr, err)
	}
	return nil
}

// Close releases backend connections.
func (c *Converter) Close() error {
	if c.redisClient != nil {
		return c.redisClient.Close()
	}
	return nil
}
