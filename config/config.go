package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Click queue backends.
const (
	ClickQueueInline = "inline"
	ClickQueueNATS   = "nats"
	ClickQueueRedis  = "redis"
)

type Config struct {
	// HTTP server
	Server ServerConfig `mapstructure:"server"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Store call bounds
	Store StoreConfig `mapstructure:"store"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Click recording
	Clicks ClicksConfig `mapstructure:"clicks"`

	// Link policies
	Links LinksConfig `mapstructure:"links"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	BaseURL      string `mapstructure:"base_url"`
	ProxyHeader  string `mapstructure:"proxy_header"`
	Interstitial bool   `mapstructure:"interstitial"`
}

type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type StoreConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type ClicksConfig struct {
	Queue    string `mapstructure:"queue"`
	RedisKey string `mapstructure:"redis_key"`
	Workers  int    `mapstructure:"workers"`
}

type LinksConfig struct {
	// StrictDelete requires a credential to delete unowned links too.
	StrictDelete bool `mapstructure:"strict_delete"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every missing or inconsistent required setting at once.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Server.BaseURL) == "" {
		problems = append(problems, "server.base_url (SHRTNR_BASE_URL) is required")
	}
	if c.Postgres.URL == "" {
		if c.Postgres.Host == "" {
			problems = append(problems, "postgres.host (PG_HOST) or postgres.url (DATABASE_URL) is required")
		}
		if c.Postgres.User == "" {
			problems = append(problems, "postgres.user (PG_USER) is required")
		}
		if c.Postgres.Database == "" {
			problems = append(problems, "postgres.database (PG_DB) is required")
		}
	}
	if c.Store.Timeout <= 0 {
		problems = append(problems, "store.timeout must be positive")
	}

	switch c.Clicks.Queue {
	case ClickQueueInline:
	case ClickQueueNATS:
		if c.NATS.Host == "" {
			problems = append(problems, "nats.host (NATS_HOST) is required when clicks.queue=nats")
		}
	case ClickQueueRedis:
		if c.Redis.Host == "" {
			problems = append(problems, "redis.host (REDIS_HOST) is required when clicks.queue=redis")
		}
		if c.Clicks.RedisKey == "" {
			problems = append(problems, "clicks.redis_key is required when clicks.queue=redis")
		}
	default:
		problems = append(problems, fmt.Sprintf("clicks.queue %q is not one of inline, nats, redis", c.Clicks.Queue))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// Addr is the listen address for the public HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.interstitial", true)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("store.timeout", 3*time.Second)
	v.SetDefault("clicks.queue", ClickQueueInline)
	v.SetDefault("clicks.redis_key", "shrtnr:clicks")
	v.SetDefault("clicks.workers", 1)
	v.SetDefault("prometheus.port", 9090)
	v.SetDefault("prometheus.enabled", true)
}

func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.base_url", "SHRTNR_BASE_URL")
	v.BindEnv("server.proxy_header", "PROXY_HEADER")

	// PostgreSQL
	v.BindEnv("postgres.url", "DATABASE_URL")
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	// Clicks
	v.BindEnv("clicks.queue", "CLICK_QUEUE")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")
	v.BindEnv("prometheus.enabled", "PROM_ENABLED")
}
