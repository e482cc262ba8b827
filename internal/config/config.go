// Package config loads the typed configuration. Sources are applied in
// order, each overriding the previous one: defaults, YAML file, environment,
// command line.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "prometheus-pve-sd"
	EnvPrefix  = "PROMETHEUS_PVE_SD_"
	configName = "config.yml"
	outputName = "pve.json"
)

var logLevels = []string{"debug", "info", "warning", "error", "critical"}

type Config struct {
	Logging        LoggingConfig `yaml:"logging"`
	OutputFile     string        `yaml:"output_file" validate:"required"`
	OutputFileMode string        `yaml:"output_file_mode" validate:"required,filemode"`
	LoopDelay      int           `yaml:"loop_delay" validate:"min=1"`
	Service        bool          `yaml:"service"`
	ExcludeState   []string      `yaml:"exclude_state"`
	ExcludeVMID    []string      `yaml:"exclude_vmid"`
	ExcludeTags    []string      `yaml:"exclude_tags"`
	IncludeVMID    []string      `yaml:"include_vmid"`
	IncludeTags    []string      `yaml:"include_tags"`
	PVE            PVEConfig     `yaml:"pve"`
	Metrics        MetricsConfig `yaml:"metrics"`
	Consul         ConsulConfig  `yaml:"consul"`

	// ConfigFile is the file that was read, empty when none was found.
	ConfigFile string `yaml:"-"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warning error critical"`
	Format string `yaml:"format" validate:"oneof=console simple json"`
}

type PVEConfig struct {
	// Server is a comma separated list of API endpoints.
	Server      string  `yaml:"server"`
	User        string  `yaml:"user"`
	Password    string  `yaml:"password"`
	TokenName   string  `yaml:"token_name"`
	TokenValue  string  `yaml:"token_value"`
	AuthTimeout int     `yaml:"auth_timeout" validate:"min=1"`
	VerifySSL   bool    `yaml:"verify_ssl"`
	RateLimit   float64 `yaml:"rate_limit" validate:"min=0"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address" validate:"required_if=Enabled true"`
	Port    int    `yaml:"port" validate:"min=0,max=65535"`
}

type ConsulConfig struct {
	Enabled bool `yaml:"enabled"`
	// Address defaults to CONSUL_HTTP_ADDR or the local agent when empty.
	Address string `yaml:"address"`
	Service string `yaml:"service" validate:"required_if=Enabled true"`
	AuthKey string `yaml:"auth_key" validate:"required_if=Enabled true"`
}

// Overrides carries command line values. Nil fields were not given.
type Overrides struct {
	ConfigFile     *string
	OutputFile     *string
	OutputFileMode *string
	LoopDelay      *int
	Service        *bool
	LogFormat      *string
	// Verbosity shifts the log level: positive is more verbose.
	Verbosity int
}

type ConfigError struct {
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func Defaults() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "warning",
			Format: "console",
		},
		OutputFile:     filepath.Join(userDir(os.UserCacheDir), appName, outputName),
		OutputFileMode: "0640",
		LoopDelay:      300,
		Service:        true,
		ExcludeState:   []string{},
		ExcludeVMID:    []string{},
		ExcludeTags:    []string{},
		IncludeVMID:    []string{},
		IncludeTags:    []string{},
		PVE: PVEConfig{
			AuthTimeout: 5,
			VerifySSL:   true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: "127.0.0.1",
			Port:    8000,
		},
		Consul: ConsulConfig{
			Service: "proxmox-pve",
			AuthKey: appName + "/config/proxmox/auth",
		},
	}
}

// DefaultConfigFile is config.yml in the user configuration directory.
func DefaultConfigFile() string {
	return filepath.Join(userDir(os.UserConfigDir), appName, configName)
}

func userDir(lookup func() (string, error)) string {
	dir, err := lookup()
	if err != nil {
		return "."
	}
	return dir
}

// Load builds the configuration from every source and validates it.
func Load(overrides Overrides) (*Config, error) {
	cfg := Defaults()
	env := newEnv()

	path, explicit, err := configFilePath(env, overrides)
	if err != nil {
		return nil, err
	}

	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}

	cfg.applyOverrides(overrides)
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func configFilePath(env *viper.Viper, overrides Overrides) (string, bool, error) {
	path := DefaultConfigFile()
	explicit := false

	if value := env.GetString("config_file"); value != "" {
		path, explicit = value, true
	}

	if overrides.ConfigFile != nil && *overrides.ConfigFile != "" {
		path, explicit = *overrides.ConfigFile, true
	}

	if !explicit {
		return path, false, nil
	}

	abs, err := normalizePath(path)
	if err != nil {
		return "", false, &ConfigError{Message: "invalid config file path", Err: err}
	}

	return abs, true, nil
}

func normalizePath(path string) (string, error) {
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}

	return filepath.Abs(path)
}

// loadFile decodes path on top of the current values. A missing default file
// is skipped, a missing explicit file is an error.
func (c *Config) loadFile(path string, explicit bool) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return &ConfigError{Message: fmt.Sprintf("unable to read config file %s", path), Err: err}
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return &ConfigError{Message: fmt.Sprintf("unable to read config file %s", path), Err: err}
	}

	c.ConfigFile = path
	return nil
}

func (c *Config) applyOverrides(o Overrides) {
	if o.OutputFile != nil {
		c.OutputFile = *o.OutputFile
	}
	if o.OutputFileMode != nil {
		c.OutputFileMode = *o.OutputFileMode
	}
	if o.LoopDelay != nil {
		c.LoopDelay = *o.LoopDelay
	}
	if o.Service != nil {
		c.Service = *o.Service
	}
	if o.LogFormat != nil {
		c.Logging.Format = *o.LogFormat
	}

	if o.Verbosity != 0 {
		c.Logging.Level = adjustLevel(strings.ToLower(c.Logging.Level), o.Verbosity)
	}
}

// adjustLevel moves level by verbosity steps towards debug, clamped to the
// known levels.
func adjustLevel(level string, verbosity int) string {
	index := 2
	for i, name := range logLevels {
		if name == level {
			index = i
			break
		}
	}

	index -= verbosity
	if index < 0 {
		index = 0
	}
	if index > len(logLevels)-1 {
		index = len(logLevels) - 1
	}

	return logLevels[index]
}

func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "warn" {
		c.Logging.Level = "warning"
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// FileMode parses OutputFileMode as an octal permission.
func (c *Config) FileMode() (os.FileMode, error) {
	return parseFileMode(c.OutputFileMode)
}

func parseFileMode(value string) (os.FileMode, error) {
	mode, err := strconv.ParseUint(strings.TrimSpace(value), 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid file mode %q: %w", value, err)
	}

	if mode > 0o777 {
		return 0, fmt.Errorf("invalid file mode %q: out of range", value)
	}

	return os.FileMode(mode), nil
}
