// Package config loads habitrack settings.
//
// Sources are applied in order, later ones winning:
//   - built-in defaults
//   - the YAML file (~/.config/habitrack/config.yaml unless --config is given)
//   - a .env file in the working directory, if present
//   - HABITRACK_* environment variables
//   - command-line flags (see Overrides)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/habitrack/internal/constants"
)

// Environment variable names.
const (
	EnvAPIURL    = "HABITRACK_API_URL"
	EnvHealthURL = "HABITRACK_HEALTH_URL"
	EnvTimeout   = "HABITRACK_TIMEOUT"
	EnvCache     = "HABITRACK_CACHE"
	EnvDebug     = "HABITRACK_DEBUG"
)

type Config struct {
	// APIURL is the base URL every API path is appended to.
	APIURL string `yaml:"api_url"`

	// HealthURL is probed by the warm-up before signup.
	HealthURL string `yaml:"health_url"`

	// Timeout bounds each HTTP request, e.g. "10s".
	Timeout time.Duration `yaml:"timeout"`

	// Cache enables the local snapshot cache used to render before the
	// first fetch completes.
	Cache bool `yaml:"cache"`

	// CachePath is the SQLite file for the snapshot cache.
	CachePath string `yaml:"cache_path"`

	Debug bool `yaml:"debug"`

	// ConfigDir holds logs and the default cache. Not read from YAML.
	ConfigDir string `yaml:"-"`

	// Source is the config file that was read, empty when none was found.
	Source string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := ExpandHome(constants.DefaultConfigDir)
	return &Config{
		APIURL:    constants.DefaultBaseURL,
		HealthURL: constants.DefaultHealthURL,
		Timeout:   constants.DefaultTimeout,
		Cache:     true,
		CachePath: filepath.Join(dir, constants.CacheFileName),
		ConfigDir: dir,
	}
}

// Options selects where Load reads from. Empty fields use the defaults.
type Options struct {
	// Path is an explicit config file; unlike the default location it must exist.
	Path string

	// EnvFile is the dotenv file to read. Defaults to ".env".
	EnvFile string

	// Getenv replaces os.Getenv, for tests.
	Getenv func(string) string
}

// Overrides carries values from command-line flags.
type Overrides struct {
	APIURL  string
	Debug   bool
	NoCache bool
}

// Load builds the configuration from every source except flags.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	path := opts.Path
	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.ConfigDir, constants.ConfigFileName)
	}
	path = ExpandHome(path)
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	} else {
		cfg.Source = path
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}

	cfg.CachePath = ExpandHome(cfg.CachePath)
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := getenv(EnvHealthURL); v != "" {
		c.HealthURL = v
	}
	if v := getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTimeout, v, err)
		}
		c.Timeout = d
	}
	if v := getenv(EnvCache); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvCache, v, err)
		}
		c.Cache = b
	}
	if v := getenv(EnvDebug); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvDebug, v, err)
		}
		c.Debug = b
	}
	return nil
}

// Apply layers flag values on top of the loaded configuration.
func (c *Config) Apply(o Overrides) error {
	if o.APIURL != "" {
		c.APIURL = o.APIURL
	}
	if o.Debug {
		c.Debug = true
	}
	if o.NoCache {
		c.Cache = false
	}
	return c.Validate()
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	for _, f := range []struct{ name, raw string }{{"api_url", c.APIURL}, {"health_url", c.HealthURL}} {
		u, err := url.Parse(f.raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute http(s) URL, got %q", f.name, f.raw))
		}
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Cache && c.CachePath == "" {
		errs = append(errs, errors.New("cache_path is required when the cache is enabled"))
	}
	return errors.Join(errs...)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
