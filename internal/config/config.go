package config

import (
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds application configuration from environment.
type Config struct {
	HTTPPort        string
	Version         string
	LogLevel        string
	StoreBackend    string
	DatabaseURL     string
	DBPoolSize      int
	RedisURL        string
	RedisPoolSize   int
	CacheTTL        time.Duration
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaPartitions int
	KafkaGroupID    string
	RateLimitRPS    float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration
}

// CacheEnabled reports whether a Redis URL was configured.
func (c *Config) CacheEnabled() bool { return c.RedisURL != "" }

// EventsEnabled reports whether Kafka brokers were configured.
func (c *Config) EventsEnabled() bool { return len(c.KafkaBrokers) > 0 }

var (
	cfg     *Config
	cfgOnce sync.Once
)

// Get returns the application config (loads once from env).
func Get() *Config {
	cfgOnce.Do(func() {
		cfg = Load()
	})
	return cfg
}

// LoadDotEnv reads a .env file into the environment without overriding variables already set.
func LoadDotEnv(path string) {
	_ = godotenv.Load(path)
}

// Load reads the configuration from the environment on every call.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("DB_POOL_SIZE", 20)
	v.SetDefault("REDIS_POOL_SIZE", 50)
	v.SetDefault("CACHE_TTL_SEC", 60)
	v.SetDefault("KAFKA_TODO_TOPIC", "todo-events")
	v.SetDefault("KAFKA_PARTITIONS", 4)
	v.SetDefault("KAFKA_GROUP_ID", "todo-cache-invalidators")
	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("SHUTDOWN_TIMEOUT_SEC", 15)

	return &Config{
		HTTPPort:        v.GetString("HTTP_PORT"),
		Version:         v.GetString("APP_VERSION"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		StoreBackend:    strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		DBPoolSize:      v.GetInt("DB_POOL_SIZE"),
		RedisURL:        v.GetString("REDIS_URL"),
		RedisPoolSize:   v.GetInt("REDIS_POOL_SIZE"),
		CacheTTL:        time.Duration(v.GetInt("CACHE_TTL_SEC")) * time.Second,
		KafkaBrokers:    splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:      v.GetString("KAFKA_TODO_TOPIC"),
		KafkaPartitions: v.GetInt("KAFKA_PARTITIONS"),
		KafkaGroupID:    v.GetString("KAFKA_GROUP_ID"),
		RateLimitRPS:    v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:  v.GetInt("RATE_LIMIT_BURST"),
		ShutdownTimeout: time.Duration(v.GetInt("SHUTDOWN_TIMEOUT_SEC")) * time.Second,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
