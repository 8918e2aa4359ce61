package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/haulshare/core/factory"
	"github.com/kilianp07/haulshare/core/proximity"
)

// EnvPrefix marks environment overrides. K_HTTP__ADDR sets http.addr.
const EnvPrefix = "K_"

type Config struct {
	HTTP     HTTPConfig             `json:"http"`
	Store    factory.ModuleConfig   `json:"store"`
	Events   []factory.ModuleConfig `json:"events"`
	Metrics  MetricsConfig          `json:"metrics"`
	Matching proximity.Config       `json:"matching"`
	Sentry   SentryConfig           `json:"sentry"`
	Logging  LoggingConfig          `json:"logging"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// Tokens lists accepted bearer tokens. Empty disables authentication.
	Tokens          []string      `json:"tokens"`
	RequestTimeout  time.Duration `json:"request_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	// env overrides arrive as one comma separated value
	if len(c.Tokens) == 1 && strings.Contains(c.Tokens[0], ",") {
		c.Tokens = strings.Split(c.Tokens[0], ",")
	}
}

// MetricsConfig lists the sinks fed by the engine. When PrometheusPort is
// set /metrics is also served on its own listener.
type MetricsConfig struct {
	Sinks          []factory.ModuleConfig `json:"sinks"`
	PrometheusPort int                    `json:"prometheus_port"`
}

func (c MetricsConfig) Validate() error {
	if c.PrometheusPort < 0 || c.PrometheusPort > 65535 {
		return fmt.Errorf("metrics: invalid prometheus port %d", c.PrometheusPort)
	}
	return nil
}

// Load reads an optional .env file, the yaml or json file at path and the
// K_ environment overrides, then applies defaults and validates. An empty
// path loads defaults and environment only.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) SetDefaults() {
	c.HTTP.SetDefaults()
	c.Logging.SetDefaults()
	c.Matching.SetDefaults()
	c.Sentry.SetDefaults()
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
}

func (c Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("matching: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.Sentry.Validate(); err != nil {
		return err
	}
	for i, e := range c.Events {
		if e.Type == "" {
			return fmt.Errorf("events[%d]: type is required", i)
		}
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d]: type is required", i)
		}
	}
	return nil
}
