package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrNotInitialized is returned by Load when the config file does not exist.
var ErrNotInitialized = errors.New("tooldeck is not initialized (run 'tooldeck init')")

// Registry is one metadata directory searched for artifacts.
type Registry struct {
	Name string `mapstructure:"name" yaml:"name"`
	Path string `mapstructure:"path" yaml:"path"`
}

// Config is the in-memory representation of ~/.tooldeck/tooldeck.yaml.
// Values are populated from the file and TOOLDECK_* environment variables.
type Config struct {
	Registries  []Registry `mapstructure:"registries" yaml:"registries"`
	Concurrency int        `mapstructure:"concurrency" yaml:"concurrency"`
	HostFile    string     `mapstructure:"host_file" yaml:"host_file"`
	LogLevel    string     `mapstructure:"log_level" yaml:"log_level,omitempty"`
}

// Dir returns the absolute path to ~/.tooldeck/.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".tooldeck"), nil
}

// Path returns the absolute path to ~/.tooldeck/tooldeck.yaml.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tooldeck.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// DefaultConfig returns the default Config written on first tooldeck init.
func DefaultConfig() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return &Config{
		Registries: []Registry{
			{Name: "local", Path: filepath.Join(dir, "registry")},
		},
		Concurrency: 8,
		HostFile:    filepath.Join(dir, "host.env"),
		LogLevel:    "error",
	}, nil
}

// Load reads ~/.tooldeck/tooldeck.yaml, applying defaults for unset values
// and TOOLDECK_* environment overrides (TOOLDECK_CONCURRENCY,
// TOOLDECK_HOST_FILE, TOOLDECK_LOG_LEVEL).
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	def, err := DefaultConfig()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("concurrency", def.Concurrency)
	v.SetDefault("host_file", def.HostFile)
	v.SetDefault("log_level", def.LogLevel)
	v.SetEnvPrefix("TOOLDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s not found", ErrNotInitialized, path)
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}

	// Expand ~ at load time.
	for i := range cfg.Registries {
		if cfg.Registries[i].Path, err = ExpandPath(cfg.Registries[i].Path); err != nil {
			return nil, err
		}
	}
	if cfg.HostFile, err = ExpandPath(cfg.HostFile); err != nil {
		return nil, err
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = def.Concurrency
	}
	return &cfg, nil
}

// Save marshals cfg and writes it to ~/.tooldeck/tooldeck.yaml.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}

// FindRegistry returns the configured registry called name.
func (c *Config) FindRegistry(name string) (Registry, bool) {
	for _, r := range c.Registries {
		if r.Name == name {
			return r, true
		}
	}
	return Registry{}, false
}
