package application

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig is the static deployment configuration, loaded once at startup.
// Mutable account settings live in the settings store, not here.
type ServerConfig struct {
	Listen struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"listen"`

	DataDir string `yaml:"data_dir"`

	Postgres struct {
		DSN            string `yaml:"dsn"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"postgres"`

	Redis struct {
		Addr              string `yaml:"addr"`
		DB                int    `yaml:"db"`
		DefaultTTLSeconds int    `yaml:"default_ttl_seconds"`
	} `yaml:"redis"`

	Quotes struct {
		URL               string  `yaml:"url"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
	} `yaml:"quotes"`
}

// DefaultServerConfig returns the configuration used when no config file is
// supplied. Postgres, Redis and the quote refresher stay disabled until
// configured.
func DefaultServerConfig() *ServerConfig {
	c := &ServerConfig{}
	c.Listen.Host = "127.0.0.1"
	c.Listen.Port = 8787
	c.DataDir = "data"
	c.Postgres.TimeoutSeconds = 5
	c.Redis.DefaultTTLSeconds = 300
	c.Quotes.RequestsPerSecond = 2
	c.Quotes.TimeoutSeconds = 5
	return c
}

// LoadServerConfig reads a yaml config file and applies environment overrides.
func LoadServerConfig(path string) (*ServerConfig, error) {
	c := DefaultServerConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, err
		}
	}
	if portStr := os.Getenv("PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			c.Listen.Port = p
		}
	}
	return c, nil
}

func (c *ServerConfig) RedisTTL() time.Duration {
	return time.Duration(c.Redis.DefaultTTLSeconds) * time.Second
}

func (c *ServerConfig) PostgresTimeout() time.Duration {
	return time.Duration(c.Postgres.TimeoutSeconds) * time.Second
}
