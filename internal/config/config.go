package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFileName = "hookrelay.yaml"
	DefaultListenAddr     = ":8080"
	DefaultNATSURL        = "nats://localhost:4222"
	DefaultRequestTimeout = 15
)

type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	DatabaseURL string `yaml:"database_url"`
	NATSURL     string `yaml:"nats_url"`
	LogFile     string `yaml:"log_file"`

	// RequestTimeout bounds each outbound webhook POST, in seconds.
	RequestTimeout int `yaml:"request_timeout"`

	// Enabled is the global intake switch; when off, no event is accepted.
	Enabled bool `yaml:"enabled"`

	// Events is the set of observed event names; empty observes all.
	Events []string `yaml:"events"`
}

func DefaultConfig() *Config {
	return &Config{
		ListenAddr:     DefaultListenAddr,
		NATSURL:        DefaultNATSURL,
		RequestTimeout: DefaultRequestTimeout,
		Enabled:        true,
	}
}

func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required")
	}
	if c.NATSURL == "" {
		return fmt.Errorf("nats_url is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	return nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultConfigFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if addr := os.Getenv("HOOKRELAY_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if dbURL := os.Getenv("HOOKRELAY_DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if natsURL := os.Getenv("HOOKRELAY_NATS_URL"); natsURL != "" {
		cfg.NATSURL = natsURL
	}
	if logFile := os.Getenv("HOOKRELAY_LOG_FILE"); logFile != "" {
		cfg.LogFile = logFile
	}
	if timeout := os.Getenv("HOOKRELAY_REQUEST_TIMEOUT"); timeout != "" {
		n, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("parse HOOKRELAY_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = n
	}
	if enabled := os.Getenv("HOOKRELAY_ENABLED"); enabled != "" {
		b, err := strconv.ParseBool(enabled)
		if err != nil {
			return nil, fmt.Errorf("parse HOOKRELAY_ENABLED: %w", err)
		}
		cfg.Enabled = b
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
