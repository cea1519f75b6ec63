package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string
	ServiceName string
	Port        string
	Timezone    *time.Location

	DB    DBConfig
	Redis RedisConfig
	Kafka KafkaConfig
	JWT   JWTConfig
	Cache CacheConfig
	Admin AdminConfig

	OTELEndpoint  string
	RBACModelPath string
	ConnRetries   int
}

type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Broker        string
	ConsumerGroup string
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// AdminConfig is the account cmd/setup creates when it is missing.
type AdminConfig struct {
	SecretID string
	Password string
}

type CacheConfig struct {
	TTL      time.Duration
	Capacity int
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads the optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can feed a map.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	loc, err := time.LoadLocation(get("TZ", "UTC"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TZ: %w", err)
	}

	jwtExpiry, err := parseDuration(get("JWT_EXPIRE", "7d"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid JWT_EXPIRE: %w", err)
	}

	cacheTTL, err := parseDuration(get("ANALYTICS_CACHE_TTL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid ANALYTICS_CACHE_TTL: %w", err)
	}

	cacheCap, err := strconv.Atoi(get("ANALYTICS_CACHE_CAPACITY", "5"))
	if err != nil || cacheCap < 1 {
		return Config{}, fmt.Errorf("invalid ANALYTICS_CACHE_CAPACITY: %q", getenv("ANALYTICS_CACHE_CAPACITY"))
	}

	retries, err := strconv.Atoi(get("CONNECT_RETRIES", "5"))
	if err != nil || retries < 1 {
		return Config{}, fmt.Errorf("invalid CONNECT_RETRIES: %q", getenv("CONNECT_RETRIES"))
	}

	cfg := Config{
		AppEnv:      get("APP_ENV", "development"),
		ServiceName: get("SERVICE_NAME", "go-safety"),
		Port:        get("PORT", "3000"),
		Timezone:    loc,
		DB: DBConfig{
			Host:     get("DB_HOST", "localhost"),
			User:     get("DB_USER", "postgres"),
			Password: getenv("DB_PASSWORD"),
			Name:     get("DB_NAME", "safety"),
			Port:     get("DB_PORT", "5432"),
			SSLMode:  get("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{Addr: get("REDIS_ADDR", "localhost:6379")},
		Kafka: KafkaConfig{
			Broker:        getenv("KAFKA_BROKER"),
			ConsumerGroup: get("KAFKA_CONSUMER_GROUP", "go-safety-record-audit"),
		},
		JWT: JWTConfig{
			Secret: getenv("JWT_SECRET"),
			Expiry: jwtExpiry,
		},
		Cache: CacheConfig{
			TTL:      cacheTTL,
			Capacity: cacheCap,
		},
		Admin: AdminConfig{
			SecretID: getenv("SECRET_ID"),
			Password: get("SECRET_PASSWORD", "admin123456"),
		},
		OTELEndpoint:  getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RBACModelPath: getenv("RBAC_MODEL_PATH"),
		ConnRetries:   retries,
	}

	if cfg.JWT.Secret == "" && cfg.IsProduction() {
		return Config{}, fmt.Errorf("JWT_SECRET is required in production")
	}

	return cfg, nil
}

// parseDuration accepts Go durations plus a plain day suffix ("7d") as used by JWT_EXPIRE.
func parseDuration(v string) (time.Duration, error) {
	if n := len(v); n > 1 && v[n-1] == 'd' {
		days, err := strconv.Atoi(v[:n-1])
		if err != nil {
			return 0, err
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(v)
}
