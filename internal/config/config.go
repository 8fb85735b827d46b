package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Watch  WatchConfig  `yaml:"watch"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

type WatchConfig struct {
	Root     string        `yaml:"root"`
	Debounce time.Duration `yaml:"debounce"`
	// Ignore holds glob patterns matched against every path segment.
	Ignore []string `yaml:"ignore"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8000,
			Host: "127.0.0.1",
		},
		Watch: WatchConfig{
			Root:     ".",
			Debounce: 100 * time.Millisecond,
			Ignore:   []string{".git"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML config file on top of Default. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.Host == "" {
		errs = append(errs, errors.New("server.host is empty"))
	}
	if c.Watch.Root == "" {
		errs = append(errs, errors.New("watch.root is empty"))
	}
	if c.Watch.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must be positive, got %s", c.Watch.Debounce))
	}
	return errors.Join(errs...)
}
