package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/hanconv"
	"github.com/aretw0/hanconv/pkg/config"
	"github.com/aretw0/hanconv/pkg/observability"
)

// Options holds the persistent flags shared by every command.
type Options struct {
	ConfigPath   string
	Debug        bool
	LogLevel     string
	LogJSON      bool
	ExtensionDir string
	Python       string
	Timeout      time.Duration
	CacheBackend string
}

// LoadConfig reads the configuration file and applies flag overrides.
// The default file is optional; an explicitly named one must exist.
func LoadConfig(opts Options) (config.Config, error) {
	path, explicit := opts.ConfigPath, opts.ConfigPath != ""
	if !explicit {
		path = config.DefaultFile
	}

	cfg, err := config.Load(path, explicit)
	if err != nil {
		return config.Config{}, fmt.Errorf("error loading config: %w", err)
	}

	if opts.ExtensionDir != "" {
		cfg.ExtensionDir = opts.ExtensionDir
	}
	if opts.Python != "" {
		cfg.Interpreter = opts.Python
	}
	if opts.Timeout > 0 {
		cfg.Timeout = config.Duration(opts.Timeout)
	}
	if opts.CacheBackend != "" {
		cfg.Cache.Backend = opts.CacheBackend
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// NewConverter builds a converter with standard CLI conventions.
func NewConverter(opts Options, extra ...hanconv.Option) (*hanconv.Converter, *slog.Logger, error) {
	logger, err := createLogger(opts)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	convOpts := []hanconv.Option{hanconv.WithLogger(logger)}
	if opts.Debug {
		convOpts = append(convOpts, hanconv.WithHooks(observability.LoggingHooks(logger)))
	}
	convOpts = append(convOpts, extra...)

	conv, err := hanconv.New(cfg, convOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing hanconv: %w", err)
	}
	logger.Debug("converter ready", "interpreter", cfg.Interpreter, "cache", cfg.Cache.Backend)
	return conv, logger, nil
}
