package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	Port string
	Mode string

	DB    DBConfig
	Redis RedisConfig
	JWT   JWTConfig

	Dispatch  DispatchConfig
	RateLimit RateLimitConfig
	Monitor   MonitorConfig
	Kafka     KafkaConfig
	GeoIP     GeoIPConfig
}

type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type JWTConfig struct {
	Secret      string
	ExpireHours int
}

type DispatchConfig struct {
	// CacheTTL bounds the staleness of cached link reads on the hot path.
	CacheTTL time.Duration
	// LogBuffer is the access log emitter's channel capacity; entries beyond
	// it are dropped rather than blocking the redirect response.
	LogBuffer int
	// RequestTimeout bounds one full resolution.
	RequestTimeout time.Duration
	// LogRetentionDays bounds how long access log rows are kept.
	LogRetentionDays int
}

type RateLimitConfig struct {
	RedirectPerHour int
	APIPerHour      int
}

type MonitorConfig struct {
	CheckInterval         time.Duration
	AlertCooldown         time.Duration
	ErrorRateThreshold    float64
	ResponseTimeThreshold time.Duration
	TrafficSpikeThreshold float64
	LinkCapThreshold      float64
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type GeoIPConfig struct {
	Enabled   bool
	CacheSize int
}

func Load(log *zap.Logger) *Config {
	return &Config{
		Port: getEnvDefault("APP_PORT", ":8080"),
		Mode: getEnvDefault("GIN_MODE", "release"),
		DB: DBConfig{
			Host:            getEnv("DB_HOST", log),
			Port:            getEnv("DB_PORT", log),
			User:            getEnv("DB_USER", log),
			Password:        getEnv("DB_PASSWORD", log),
			Name:            getEnv("DB_NAME", log),
			SSLMode:         getEnvDefault("DB_SSLMODE", "disable"),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 600),
		},
		Redis: RedisConfig{
			Addr:     getEnvDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", log),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Dispatch: DispatchConfig{
			CacheTTL:         getEnvDuration("DISPATCH_CACHE_TTL", time.Minute),
			LogBuffer:        getEnvInt("DISPATCH_LOG_BUFFER", 4096),
			RequestTimeout:   getEnvDuration("DISPATCH_REQUEST_TIMEOUT", 5*time.Second),
			LogRetentionDays: getEnvInt("DISPATCH_LOG_RETENTION_DAYS", 90),
		},
		RateLimit: RateLimitConfig{
			RedirectPerHour: getEnvInt("RATE_LIMIT_REDIRECT_PER_HOUR", 1000),
			APIPerHour:      getEnvInt("RATE_LIMIT_API_PER_HOUR", 100),
		},
		Monitor: MonitorConfig{
			CheckInterval:         getEnvDuration("MONITOR_CHECK_INTERVAL", time.Minute),
			AlertCooldown:         getEnvDuration("MONITOR_ALERT_COOLDOWN", 10*time.Minute),
			ErrorRateThreshold:    getEnvFloat("MONITOR_ERROR_RATE_THRESHOLD", 0.05),
			ResponseTimeThreshold: getEnvDuration("MONITOR_RESPONSE_TIME_THRESHOLD", time.Second),
			TrafficSpikeThreshold: getEnvFloat("MONITOR_TRAFFIC_SPIKE_THRESHOLD", 2.0),
			LinkCapThreshold:      getEnvFloat("MONITOR_LINK_CAP_THRESHOLD", 0.9),
		},
		Kafka: KafkaConfig{
			Brokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnvDefault("KAFKA_TOPIC_ALERTS", "dispatch.alerts"),
		},
		GeoIP: GeoIPConfig{
			Enabled:   getEnvDefault("GEOIP_ENABLED", "true") == "true",
			CacheSize: getEnvInt("GEOIP_CACHE_SIZE", 10000),
		},
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("required environment variable is not set", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if val, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
