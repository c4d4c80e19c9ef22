package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jellydator/validation"
)

const (
	defaultHost      = "https://ronin.rest"
	defaultOutputDir = "."
	defaultRetries   = 3
	defaultTimeout   = 30
	maxRetries       = 15

	configFile = "config.json"
)

// ErrUnknownKey is returned by Set for a key that is not in Keys.
var ErrUnknownKey = errors.New("unknown config key")

// Load reads config from dir (or creates defaults). dir defaults to ~/.ronexport.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".ronexport")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.configDir = dir

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// Validate checks every field is usable.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Host, validation.Required, validation.By(httpURL)),
		validation.Field(&c.Retries, validation.Min(0), validation.Max(maxRetries)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(1)),
		validation.Field(&c.OtelEndpoint, validation.Length(0, 512)),
	)
}

// Set parses value for key and applies it if the result validates.
// The config is left untouched on error.
func (c *Config) Set(key, value string) error {
	next := *c
	value = strings.TrimSpace(value)

	switch key {
	case "host":
		next.Host = strings.TrimRight(value, "/")
	case "output_dir":
		next.OutputDir = value
	case "retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("retries: %w", err)
		}
		next.Retries = n
	case "timeout":
		n, err := strconv.Atoi(strings.TrimSuffix(value, "s"))
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		next.Timeout = n
	case "skip_self":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("skip_self: %w", err)
		}
		next.SkipSelf = b
	case "otel_endpoint":
		next.OtelEndpoint = value
	default:
		return fmt.Errorf("%w %q (valid: %s)", ErrUnknownKey, key, strings.Join(Keys, ", "))
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		Host:      defaultHost,
		OutputDir: defaultOutputDir,
		Retries:   defaultRetries,
		Timeout:   defaultTimeout,
		configDir: dir,
	}
}

func httpURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
}
