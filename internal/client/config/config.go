package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	StartupGated      = "gated"
	StartupBackground = "background"
)

// Environment variables overriding file values.
const (
	EnvAPIBaseURL     = "GALLERY_API_BASE_URL"
	EnvAuthScheme     = "GALLERY_AUTH_SCHEME"
	EnvHTTPTimeout    = "GALLERY_HTTP_TIMEOUT"
	EnvStorageDriver  = "GALLERY_STORAGE_DRIVER"
	EnvStoragePath    = "GALLERY_STORAGE_PATH"
	EnvStartup        = "GALLERY_STARTUP"
	EnvLogLevel       = "GALLERY_LOG_LEVEL"
	defaultAPIBaseURL = "http://localhost:8000/api/"
)

type Config struct {
	API      APIConfig     `toml:"api"`
	Storage  StorageConfig `toml:"storage"`
	Startup  string        `toml:"startup"`
	LogLevel string        `toml:"log_level"`
}

type APIConfig struct {
	BaseURL    string   `toml:"base_url"`
	AuthScheme string   `toml:"auth_scheme"`
	Timeout    Duration `toml:"timeout"`
}

type StorageConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

// Duration decodes from strings such as "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() Config {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return Config{
		API: APIConfig{
			BaseURL:    defaultAPIBaseURL,
			AuthScheme: "Token",
			Timeout:    Duration{10 * time.Second},
		},
		Storage: StorageConfig{
			Driver: "toml",
			Path:   filepath.Join(dir, "gallery", "session.toml"),
		},
		Startup:  StartupGated,
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, the TOML file at path (if
// any), the given .env files and the environment, later sources winning.
// A missing file at path is not an error; a malformed one is.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		_, err := toml.DecodeFile(path, &cfg)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load config '%s': %w", path, err)
		}
	}

	var present []string
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return cfg, fmt.Errorf("failed to load env files: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.API.BaseURL, EnvAPIBaseURL)
	set(&c.API.AuthScheme, EnvAuthScheme)
	set(&c.Storage.Driver, EnvStorageDriver)
	set(&c.Storage.Path, EnvStoragePath)
	set(&c.Startup, EnvStartup)
	set(&c.LogLevel, EnvLogLevel)

	if v := strings.TrimSpace(os.Getenv(EnvHTTPTimeout)); v != "" {
		if err := c.API.Timeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid %s value '%s': %w", EnvHTTPTimeout, v, err)
		}
	}
	return nil
}

// OverrideBaseURL replaces the API base URL when u is set and validates
// the result.
func (c *Config) OverrideBaseURL(u string) error {
	if u == "" {
		return nil
	}
	c.API.BaseURL = u
	return c.Validate()
}

func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("invalid api base url '%s', must be http(s)", c.API.BaseURL)
	}
	if c.API.Timeout.Duration < 0 {
		return fmt.Errorf("invalid http timeout %s", c.API.Timeout)
	}
	switch c.Storage.Driver {
	case "toml", "bolt", "sqlite":
	default:
		return fmt.Errorf("invalid storage driver '%s', must be toml, bolt or sqlite", c.Storage.Driver)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}
	switch c.Startup {
	case StartupGated, StartupBackground:
	default:
		return fmt.Errorf("invalid startup policy '%s', must be gated or background", c.Startup)
	}
	return nil
}
