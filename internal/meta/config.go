package meta

import (
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v3"
)

// ApplicationConfig is a top-level block for application-level meta configuration.
type ApplicationConfig struct {
	SentryDSN string `yaml:"sentry_dsn"`
}

// MetricsConfig is a top-level block for metrics configuration.
type MetricsConfig struct {
	Statsd *struct {
		Address    string  `yaml:"addr"`
		SampleRate float64 `yaml:"sample_rate"`
	} `yaml:"statsd"`
}

// ListenerConfig is a top-level block for server listener configuration. There is exactly one
// listener: the UDP socket the resolver binds to serve client queries on.
type ListenerConfig struct {
	UDP *struct {
		Address      string        `yaml:"addr"`
		Workers      int           `yaml:"workers"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"udp"`
}

// UpstreamConfig is a top-level block for upstream resolver configuration. There is exactly one
// upstream: queries that miss the cache are forwarded to it and nowhere else.
type UpstreamConfig struct {
	Address string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig is a top-level block for name cache configuration.
type CacheConfig struct {
	HostsPath string `yaml:"hosts_path"`
	Capacity  int    `yaml:"capacity"`
}

// Config describes all application configuration options. A config file is optional. Where a field
// also has a positional-argument equivalent (the upstream address and the hosts file path), a
// non-empty config value overrides the positional one.
type Config struct {
	Application *ApplicationConfig `yaml:"application"`
	Metrics     *MetricsConfig     `yaml:"metrics"`
	Listener    *ListenerConfig    `yaml:"listener"`
	Upstream    *UpstreamConfig    `yaml:"upstream"`
	Cache       *CacheConfig       `yaml:"cache"`
}

// ParseConfig parses a Config struct instance from a file specified as a path on disk.
func ParseConfig(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: error reading config: err=%v", err)
	}

	var cfg *Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: error parsing config: err=%v", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate the contents of the configuration. Returns an error if validation failed; nil otherwise.
func (c *Config) validate() error {
	// Users can omit the metrics block entirely to disable metrics reporting.
	if c.Metrics != nil && c.Metrics.Statsd != nil {
		if c.Metrics.Statsd.Address == "" {
			return fmt.Errorf("config: missing metrics statsd address")
		}

		if c.Metrics.Statsd.SampleRate < 0 || c.Metrics.Statsd.SampleRate > 1 {
			return fmt.Errorf("config: statsd sample rate must be in range [0.0, 1.0]")
		}
	}

	if c.Listener != nil && c.Listener.UDP != nil && c.Listener.UDP.Address == "" {
		return fmt.Errorf("config: missing UDP server listening address")
	}

	if c.Upstream != nil && c.Upstream.Address == "" {
		return fmt.Errorf("config: missing upstream resolver address")
	}

	return nil
}
