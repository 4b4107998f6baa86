package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string `toml:"-"`

	Host                  string `toml:"host"`
	Port                  int    `toml:"port"`
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// "*" allows every origin
	AllowedOrigins []string `toml:"allowed_origins"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`

	// redis, used for rate limiting
	RedisHost                   string `toml:"redis_host"`
	RedisPort                   string `toml:"redis_port"`
	EnterWorkoutRateLimitPerMin int    `toml:"enter_workout_rate_limit_per_min"`

	// client side: the records store the CLI talks to
	StoreURL         string `toml:"store_url"`
	ProbeParallelism int    `toml:"probe_parallelism"`
	ProbeCacheSizeMB int    `toml:"probe_cache_size_mb"`
	StrictProbing    bool   `toml:"strict_probing"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	cfg.Environment = env
	return cfg, nil
}

// Load reads the TOML file at path and returns the section for env, with
// defaults filled in for the values left out.
func Load(env, path string) (*Config, error) {
	var t Toml
	meta, err := toml.DecodeFile(path, &t)
	if err != nil {
		return nil, fmt.Errorf("decode config file [%s]: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config keys: %v", undecoded)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default is used when no config file is given.
func Default() *Config {
	cfg := &Config{Environment: "development"}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.PrometheusMetricsHost == "" {
		c.PrometheusMetricsHost = "localhost"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PostgresHost == "" {
		c.PostgresHost = "localhost"
	}
	if c.PostgresPort == "" {
		c.PostgresPort = "5432"
	}
	if c.PostgresDBName == "" {
		c.PostgresDBName = "gymlog"
	}
	if c.RedisHost == "" {
		c.RedisHost = "localhost"
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
	if c.StoreURL == "" {
		c.StoreURL = fmt.Sprintf("http://%s:%d", c.Host, c.Port)
	}
	if c.ProbeParallelism == 0 {
		c.ProbeParallelism = 8
	}
	if c.ProbeCacheSizeMB == 0 {
		c.ProbeCacheSizeMB = 10
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Port))
	}
	if c.ProbeParallelism < 0 {
		errs = append(errs, fmt.Errorf("invalid probe parallelism: %d", c.ProbeParallelism))
	}
	if c.EnterWorkoutRateLimitPerMin < 0 {
		errs = append(errs, fmt.Errorf("invalid enter workout rate limit: %d", c.EnterWorkoutRateLimitPerMin))
	}
	return errors.Join(errs...)
}
