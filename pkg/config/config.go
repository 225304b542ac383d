package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cuemby/timeclock/pkg/geo"
	"github.com/cuemby/timeclock/pkg/types"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file
const (
	EnvAPIURL       = "TIMECLOCK_API_URL"
	EnvDataDir      = "TIMECLOCK_DATA_DIR"
	EnvRadiusMeters = "TIMECLOCK_RADIUS_METERS"
	EnvLogLevel     = "TIMECLOCK_LOG_LEVEL"
	EnvLogJSON      = "TIMECLOCK_LOG_JSON"
	EnvTimeout      = "TIMECLOCK_TIMEOUT"
	EnvFixFile      = "TIMECLOCK_FIX_FILE"
)

// Config is the client configuration
type Config struct {
	APIURL             string         `yaml:"api_url"`
	DataDir            string         `yaml:"data_dir"`
	RadiusMeters       float64        `yaml:"radius_meters"`
	Timeout            time.Duration  `yaml:"timeout"`
	LogLevel           string         `yaml:"log_level"`
	LogJSON            bool           `yaml:"log_json"`
	SelfieMaxDimension int            `yaml:"selfie_max_dimension"`
	JournalKeep        int            `yaml:"journal_keep"`
	Location           LocationConfig `yaml:"location"`
}

// LocationConfig selects the device position source
type LocationConfig struct {
	Latitude  *float64      `yaml:"latitude,omitempty"`
	Longitude *float64      `yaml:"longitude,omitempty"`
	FixFile   string        `yaml:"fix_file,omitempty"`
	MaxAge    time.Duration `yaml:"max_age"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		APIURL:             "http://localhost:5000/api",
		DataDir:            defaultDataDir(),
		RadiusMeters:       geo.DefaultRadiusMeters,
		Timeout:            10 * time.Second,
		LogLevel:           "info",
		SelfieMaxDimension: 640,
		JournalKeep:        500,
		Location: LocationConfig{
			MaxAge: 2 * time.Minute,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".timeclock"
	}
	return filepath.Join(home, ".timeclock")
}

// DefaultPath returns the config file location used when none is given
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// Load builds the configuration from defaults, the YAML file at path, any .env
// files and the process environment, in increasing precedence. A missing file at
// the default path is not an error; a missing explicit path is.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables already set in the environment
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.APIURL = v
	}
	if v, ok := lookup(EnvDataDir); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := lookup(EnvRadiusMeters); ok && v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRadiusMeters, err)
		}
		c.RadiusMeters = r
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvLogJSON); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvLogJSON, err)
		}
		c.LogJSON = b
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v, ok := lookup(EnvFixFile); ok && v != "" {
		c.Location.FixFile = v
	}
	return nil
}

// Validate checks the configuration for obvious mistakes
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_url %q: must be an http(s) URL", c.APIURL)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.RadiusMeters <= 0 {
		return fmt.Errorf("radius_meters must be positive, got %v", c.RadiusMeters)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if (c.Location.Latitude == nil) != (c.Location.Longitude == nil) {
		return fmt.Errorf("location.latitude and location.longitude must be set together")
	}
	if c.Location.Latitude != nil {
		p := types.Point{Latitude: *c.Location.Latitude, Longitude: *c.Location.Longitude}
		if !geo.ValidPoint(p) {
			return fmt.Errorf("invalid location %v,%v", p.Latitude, p.Longitude)
		}
	}
	return nil
}

// Locator returns the position source the configuration selects. A fix file
// wins over static coordinates; with neither, location is unsupported.
func (c *Config) Locator() geo.Locator {
	switch {
	case c.Location.FixFile != "":
		return geo.NewFileLocator(c.Location.FixFile, c.Location.MaxAge)
	case c.Location.Latitude != nil && c.Location.Longitude != nil:
		return geo.NewStaticLocator(*c.Location.Latitude, *c.Location.Longitude)
	default:
		return geo.UnsupportedLocator{}
	}
}

// Save writes the configuration as YAML, creating the parent directory
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
