package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Extractor ExtractorConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Jobs      JobsConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ExtractorConfig feeds the engine options. Thresholds are policy and
// live here rather than as constants in the engine.
type ExtractorConfig struct {
	DefaultCurrency        string
	LowStockThreshold      int
	MaxImages              int
	AllowEqualComparePrice bool
	FetchTimeout           time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
	Stream   string
}

type JobsConfig struct {
	Workers  int
	QueueMax int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Extractor: ExtractorConfig{
			DefaultCurrency:        getEnvOrDefault("EXTRACTOR_DEFAULT_CURRENCY", "EUR"),
			LowStockThreshold:      getIntOrDefault("EXTRACTOR_LOW_STOCK_THRESHOLD", 10),
			MaxImages:              getIntOrDefault("EXTRACTOR_MAX_IMAGES", 25),
			AllowEqualComparePrice: getBoolOrDefault("EXTRACTOR_ALLOW_EQUAL_COMPARE_PRICE", false),
			FetchTimeout:           getDurationOrDefault("EXTRACTOR_FETCH_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", ""),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "product_extractor"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			CacheTTL: getDurationOrDefault("REDIS_CACHE_TTL", 15*time.Minute),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:product_imports"),
		},
		Jobs: JobsConfig{
			Workers:  getIntOrDefault("JOBS_WORKERS", 4),
			QueueMax: getIntOrDefault("JOBS_QUEUE_MAX", 1000),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Extractor.LowStockThreshold < 1 {
		return fmt.Errorf("EXTRACTOR_LOW_STOCK_THRESHOLD must be at least 1")
	}
	if c.Extractor.MaxImages < 1 {
		return fmt.Errorf("EXTRACTOR_MAX_IMAGES must be at least 1")
	}
	if c.Jobs.Workers < 1 {
		return fmt.Errorf("JOBS_WORKERS must be at least 1")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
