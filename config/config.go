package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Database  DatabaseConfig
	PriceAPI  PriceAPIConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Collector CollectorConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AuthConfig holds token validation configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// DatabaseConfig holds Postgres connection configuration
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PriceAPIConfig holds configuration for the state price-search API
type PriceAPIConfig struct {
	Token      string `mapstructure:"token"`
	BaseURL    string `mapstructure:"base_url"`
	SearchDays int    `mapstructure:"search_days"`
	PageSize   int    `mapstructure:"page_size"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type          string        `mapstructure:"type"` // "memory" or "redis"
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisUsername string        `mapstructure:"redis_username"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP    int     `mapstructure:"per_ip"`   // requests per minute per client IP
	Upstream float64 `mapstructure:"upstream"` // requests per second against the price API
	Burst    int     `mapstructure:"burst"`
}

// CollectorConfig holds price-collection configuration
type CollectorConfig struct {
	SearchTerms   []string      `mapstructure:"search_terms"`
	MarketTimeout time.Duration `mapstructure:"market_timeout"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/precosal/")

	v.SetEnvPrefix("PRECOSAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional, env vars cover everything
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://127.0.0.1:5500", "http://localhost:8000"})

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")

	// Database defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)

	// Price API defaults
	v.SetDefault("priceapi.token", "")
	v.SetDefault("priceapi.base_url", "http://api.sefaz.al.gov.br/sfz-economiza-alagoas-api/api/public")
	v.SetDefault("priceapi.search_days", 3)
	v.SetDefault("priceapi.page_size", 50)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "10m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.upstream", 3.0)
	v.SetDefault("ratelimit.burst", 10)

	// Collector defaults
	v.SetDefault("collector.search_terms", []string{
		"arroz", "feijao", "acucar", "oleo", "farinha", "macarrao", "sal",
		"leite", "cafe", "pao", "carne", "frango", "ovo", "manteiga",
	})
	v.SetDefault("collector.market_timeout", "20m")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.PriceAPI.Token == "" {
		return fmt.Errorf("price API token is required (set PRECOSAL_PRICEAPI_TOKEN)")
	}

	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required (set PRECOSAL_AUTH_JWT_SECRET)")
	}

	if config.Database.URL == "" {
		return fmt.Errorf("database URL is required (set PRECOSAL_DATABASE_URL)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisAddr == "" {
		return fmt.Errorf("Redis address is required when cache type is 'redis'")
	}

	if config.PriceAPI.SearchDays < 1 || config.PriceAPI.SearchDays > 7 {
		return fmt.Errorf("price API search days must be between 1 and 7, got: %d", config.PriceAPI.SearchDays)
	}

	return nil
}
