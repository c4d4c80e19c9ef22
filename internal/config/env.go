package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvSource looks up environment variables.
type EnvSource interface {
	Lookup(key string) (string, bool)
}

// EnvMap is an EnvSource backed by a map, handy in tests.
type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

type osEnv struct{}

func (osEnv) Lookup(key string) (string, bool) { return os.LookupEnv(key) }

// FromEnviron returns the process environment as an EnvSource.
func FromEnviron() EnvSource { return osEnv{} }

// LoadDotEnv loads path into the process environment if it exists.
// Variables that are already set win over the file.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides fields from source. Empty variables are ignored.
func (c *Config) ApplyEnv(source EnvSource) error {
	if raw, ok := lookup(source, EnvHost); ok {
		c.Host = strings.TrimRight(raw, "/")
	}
	if raw, ok := lookup(source, EnvOutputDir); ok {
		c.OutputDir = raw
	}
	if raw, ok := lookup(source, EnvRetries); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRetries, err)
		}
		c.Retries = n
	}
	if raw, ok := lookup(source, EnvTimeout); ok {
		n, err := strconv.Atoi(strings.TrimSuffix(raw, "s"))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		c.Timeout = n
	}
	if raw, ok := lookup(source, EnvSkipSelf); ok {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSkipSelf, err)
		}
		c.SkipSelf = b
	}
	if raw, ok := lookup(source, EnvOtelEndpoint); ok {
		c.OtelEndpoint = raw
	}
	return c.Validate()
}

func lookup(source EnvSource, key string) (string, bool) {
	raw, ok := source.Lookup(key)
	raw = strings.TrimSpace(raw)
	return raw, ok && raw != ""
}
