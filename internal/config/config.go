package config

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	// DefaultCacheTTL is the expiry attached to a response-cache hash the
	// first time any field is written to it.
	DefaultCacheTTL = 3600 * time.Second

	// MetricsDB is the Redis logical database holding adoption metrics,
	// kept separate from the cache data in the default database.
	MetricsDB = 1
)

type Config struct {
	Redis struct {
		Host            string `mapstructure:"host"`
		Port            int    `mapstructure:"port"`
		Key             string `mapstructure:"key"` // auth secret, empty for no auth
		TLSEnabled      bool   `mapstructure:"tls_enabled"`
		MaxRetries      int    `mapstructure:"max_retries"`
		RetryBackoffCap string `mapstructure:"retry_backoff_cap"` // Go duration string like "5s"
	} `mapstructure:"redis"`
	Cache struct {
		TTL string `mapstructure:"ttl"` // Go duration string like "1h"
	} `mapstructure:"cache"`
	Obs struct {
		Enabled bool   `mapstructure:"enabled"`
		Address string `mapstructure:"address"`
		Port    int    `mapstructure:"port"`
	} `mapstructure:"obs"`
	LogLevel string `mapstructure:"log_level"`
}

// RedisConfigured reports whether both a host and a port were supplied.
// Absent either, the store layer runs permanently disabled.
func (c *Config) RedisConfigured() bool {
	return c.Redis.Host != "" && c.Redis.Port != 0
}

// CacheTTL parses the configured TTL, falling back to DefaultCacheTTL.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTL != "" {
		if d, err := time.ParseDuration(c.Cache.TTL); err == nil && d > 0 {
			return d
		}
	}
	return DefaultCacheTTL
}

// RetryBackoffCap parses the configured backoff cap, falling back to 5s.
func (c *Config) RetryBackoffCap() time.Duration {
	if c.Redis.RetryBackoffCap != "" {
		if d, err := time.ParseDuration(c.Redis.RetryBackoffCap); err == nil && d > 0 {
			return d
		}
	}
	return 5 * time.Second
}

var (
	globalConfig *Config
	logger       zerolog.Logger
)

func init() {
	// Initialize zerolog with console writer for human-readable output
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stdout,
		NoColor: false,
	}).With().Timestamp().Logger()

	config, err := LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	// Parse and set log level from config
	level := zerolog.InfoLevel // default
	if config.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", config.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}

	zerolog.SetGlobalLevel(level)
	logger = logger.Level(level)

	globalConfig = config
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variable support
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The deployed environment uses these exact variable names; bind them
	// directly so existing deployments keep working without the APP_ prefix.
	_ = viper.BindEnv("redis.host", "REDIS_HOST")
	_ = viper.BindEnv("redis.port", "REDIS_PORT")
	_ = viper.BindEnv("redis.key", "REDIS_KEY")
	_ = viper.BindEnv("redis.tls_enabled", "REDIS_TLS_ENABLED")
	_ = viper.BindEnv("redis.max_retries", "REDIS_MAX_RETRIES")
	_ = viper.BindEnv("redis.retry_backoff_cap", "REDIS_RETRY_BACKOFF_CAP")
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.retry_backoff_cap", "5s")
	viper.SetDefault("cache.ttl", "1h")
	viper.SetDefault("obs.enabled", true)
	viper.SetDefault("obs.address", "")
	viper.SetDefault("obs.port", 9090)

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func GetConfig() *Config {
	return globalConfig
}

func GetLogger() zerolog.Logger {
	return logger
}
