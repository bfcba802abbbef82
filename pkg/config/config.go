package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrEmptyFile    = errors.New("configuration file is empty")
)

// ServerConfig configures the mock server transport.
type ServerConfig struct {
	Host         string `json:"host,omitempty" yaml:"host,omitempty"`
	Port         int    `json:"port,omitempty" yaml:"port,omitempty"`
	MaxBodyBytes int64  `json:"maxBodyBytes,omitempty" yaml:"maxBodyBytes,omitempty"`
}

// InterceptorConfig configures the passive proxy.
type InterceptorConfig struct {
	Upstream        string `json:"upstream,omitempty" yaml:"upstream,omitempty"`
	ProposeFixtures bool   `json:"proposeFixtures,omitempty" yaml:"proposeFixtures,omitempty"`
}

// RecorderConfig configures the broker upload client. An empty endpoint
// disables recording.
type RecorderConfig struct {
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	BatchSize int    `json:"batchSize,omitempty" yaml:"batchSize,omitempty"`
	// FlushInterval is a Go duration string, e.g. "5s".
	FlushInterval string `json:"flushInterval,omitempty" yaml:"flushInterval,omitempty"`
}

// FlushIntervalDuration parses the flush interval, falling back to 5s
// when unset or unparseable.
func (r RecorderConfig) FlushIntervalDuration() time.Duration {
	if d, err := time.ParseDuration(r.FlushInterval); err == nil && d > 0 {
		return d
	}
	return 5 * time.Second
}

// LogConfig configures operational logging.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Config is the root configuration.
type Config struct {
	// Service is the provider being mocked or observed.
	Service string `json:"service" yaml:"service"`
	// Consumer is the application under test.
	Consumer string `json:"consumer,omitempty" yaml:"consumer,omitempty"`
	// Version is the consumer version.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	// Spec is the path to the service specification file.
	Spec string `json:"spec" yaml:"spec"`
	// Fixtures are paths to fixture files loaded at startup.
	Fixtures []string `json:"fixtures,omitempty" yaml:"fixtures,omitempty"`

	Server      ServerConfig      `json:"server,omitempty" yaml:"server,omitempty"`
	Interceptor InterceptorConfig `json:"interceptor,omitempty" yaml:"interceptor,omitempty"`
	Recorder    RecorderConfig    `json:"recorder,omitempty" yaml:"recorder,omitempty"`
	Log         LogConfig         `json:"log,omitempty" yaml:"log,omitempty"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         4290,
			MaxBodyBytes: 1 << 20,
		},
		Recorder: RecorderConfig{
			BatchSize:     50,
			FlushInterval: "5s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file over the defaults. The format is
// detected by extension: .yaml and .yml parse as YAML, everything else
// as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse json config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields no command can run without.
func (c *Config) Validate() error {
	if c.Service == "" {
		return errors.New("config: service is required")
	}
	if c.Spec == "" {
		return errors.New("config: spec path is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Server.Port)
	}
	return nil
}
