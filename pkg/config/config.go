package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/hanconv/pkg/domain"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "hanconv.yaml"

// Environment variables overriding file values.
const (
	EnvInterpreter    = "HANCONV_PYTHON"
	EnvPackageManager = "HANCONV_PIP"
	EnvExtensionDir   = "HANCONV_EXTENSION_DIR"
	EnvTimeout        = "HANCONV_TIMEOUT"
	EnvRedisAddr      = "HANCONV_REDIS_ADDR"
	EnvCacheKey       = "HANCONV_CACHE_KEY"
)

// Config holds every setting of the orchestration layer.
type Config struct {
	// Interpreter runs the worker and the probes (resolved through PATH).
	Interpreter string `yaml:"interpreter" json:"interpreter" validate:"required"`

	// InterpreterArgs precede the script path on every worker invocation.
	InterpreterArgs []string `yaml:"interpreter_args" json:"interpreter_args"`

	// PackageManager installs missing libraries.
	PackageManager string `yaml:"package_manager" json:"package_manager" validate:"required"`

	// Script is the worker's fixed file name.
	Script string `yaml:"script" json:"script" validate:"required"`

	// ExtensionDir is the host-reported installation directory, the first
	// place the worker script is looked for. Optional.
	ExtensionDir string `yaml:"extension_dir" json:"extension_dir"`

	// Timeout bounds one conversion. Zero disables it.
	Timeout Duration `yaml:"timeout" json:"timeout" validate:"gte=0"`

	// InstallTimeout bounds one package manager run. Zero disables it.
	InstallTimeout Duration `yaml:"install_timeout" json:"install_timeout" validate:"gte=0"`

	// AutoProvision runs provisioning in the background when a host starts.
	AutoProvision bool `yaml:"auto_provision" json:"auto_provision"`

	Libraries []domain.LibrarySpec `yaml:"libraries" json:"libraries" validate:"required,min=1,dive"`

	Cache CacheConfig `yaml:"cache" json:"cache"`
	Redis RedisConfig `yaml:"redis" json:"redis"`
}

// CacheConfig selects the optional result cache.
type CacheConfig struct {
	Backend    string   `yaml:"backend" json:"backend" validate:"omitempty,oneof=none memory redis"`
	TTL        Duration `yaml:"ttl" json:"ttl" validate:"gte=0"`
	MaxEntries int      `yaml:"max_entries" json:"max_entries" validate:"gte=0"`

	// EncryptionKeys are base64 AES-256 keys. When set, cached outputs are
	// encrypted with the first key; the others are only used to decrypt.
	EncryptionKeys []string `yaml:"encryption_keys" json:"encryption_keys,omitempty" validate:"dive,base64"`
}

// RedisConfig is shared by the Redis cache and the provisioning lock.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	// LockProvisioning guards dependency installation with a Redis lock.
	LockProvisioning bool `yaml:"lock_provisioning" json:"lock_provisioning"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Interpreter:     "python",
		InterpreterArgs: []string{"-u", "-X", "utf8"},
		PackageManager:  "pip",
		Script:          "converter.py",
		Timeout:         Duration(30 * time.Second),
		InstallTimeout:  Duration(10 * time.Minute),
		AutoProvision:   true,
		Libraries:       domain.DefaultLibraries(),
		Cache: CacheConfig{
			Backend:    "none",
			TTL:        Duration(24 * time.Hour),
			MaxEntries: 1024,
		},
		Redis: RedisConfig{
			Prefix: "hanconv:",
		},
	}
}

// Load reads a configuration file (YAML or JSON) on top of the defaults,
// applies environment overrides and validates the result.
// A missing file is not an error unless explicit is true.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) || explicit {
				return Config{}, err
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
		return nil
	}

	// Default to YAML
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvInterpreter); v != "" {
		c.Interpreter = v
	}
	if v := os.Getenv(EnvPackageManager); v != "" {
		c.PackageManager = v
	}
	if v := os.Getenv(EnvExtensionDir); v != "" {
		c.ExtensionDir = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(EnvCacheKey); v != "" {
		// The environment key becomes the active one; file keys stay as fallbacks.
		c.Cache.EncryptionKeys = append([]string{v}, c.Cache.EncryptionKeys...)
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		c.Timeout = Duration(d)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("invalid configuration: cache backend redis requires redis.addr")
	}
	if c.Redis.LockProvisioning && c.Redis.Addr == "" {
		return fmt.Errorf("invalid configuration: redis.lock_provisioning requires redis.addr")
	}
	return nil
}

// Duration is a time.Duration written as "30s" in YAML and JSON.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
