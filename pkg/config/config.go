package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	CORS        CORSConfig
	Log         LogConfig
	Assignments AssignmentsConfig
	Workload    WorkloadConfig
	Consistency ConsistencyConfig
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	// ConnectTimeout bounds the initial connection and ping.
	ConnectTimeout time.Duration
	SQLitePath     string
	AutoMigrate    bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// CORSConfig lists browser origins and the extra headers they may send or read.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAge         time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// AssignmentsConfig tunes the retry policy around assignment transactions.
type AssignmentsConfig struct {
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// WorkloadConfig governs caching of instructor workload summaries.
type WorkloadConfig struct {
	CacheTTL time.Duration
}

// ConsistencyConfig controls the periodic consistency audit.
type ConsistencyConfig struct {
	Enabled   bool
	Interval  time.Duration
	Workers   int
	Reconcile bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Driver:         strings.ToLower(v.GetString("DB_DRIVER")),
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnectTimeout: parseDuration(v.GetString("DB_CONNECT_TIMEOUT"), 5*time.Second),
		SQLitePath:     v.GetString("DB_SQLITE_PATH"),
		AutoMigrate:    v.GetBool("DB_AUTO_MIGRATE"),
	}
	if cfg.Database.Driver != DriverSQLite {
		cfg.Database.Driver = DriverPostgres
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS")),
		AllowedHeaders: splitAndTrim(v.GetString("CORS_ALLOWED_HEADERS")),
		ExposedHeaders: splitAndTrim(v.GetString("CORS_EXPOSED_HEADERS")),
		MaxAge:         parseDuration(v.GetString("CORS_MAX_AGE"), 10*time.Minute),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Assignments = AssignmentsConfig{
		MaxRetries:     v.GetInt("ASSIGNMENTS_MAX_RETRIES"),
		RetryBaseDelay: parseDuration(v.GetString("ASSIGNMENTS_RETRY_BASE_DELAY"), 20*time.Millisecond),
		RetryMaxDelay:  parseDuration(v.GetString("ASSIGNMENTS_RETRY_MAX_DELAY"), 500*time.Millisecond),
	}

	cfg.Workload = WorkloadConfig{
		CacheTTL: parseDuration(v.GetString("WORKLOAD_CACHE_TTL"), 5*time.Minute),
	}

	workers := v.GetInt("CONSISTENCY_AUDIT_WORKERS")
	if workers <= 0 {
		workers = 1
	}
	cfg.Consistency = ConsistencyConfig{
		Enabled:   v.GetBool("ENABLE_CONSISTENCY_AUDIT"),
		Interval:  parseDuration(v.GetString("CONSISTENCY_AUDIT_INTERVAL"), 24*time.Hour),
		Workers:   workers,
		Reconcile: v.GetBool("CONSISTENCY_AUDIT_RECONCILE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "class_scheduling")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")
	v.SetDefault("DB_SQLITE_PATH", "./scheduling.db")
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("CORS_ALLOWED_HEADERS", "")
	v.SetDefault("CORS_EXPOSED_HEADERS", "")
	v.SetDefault("CORS_MAX_AGE", "10m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ASSIGNMENTS_MAX_RETRIES", 3)
	v.SetDefault("ASSIGNMENTS_RETRY_BASE_DELAY", "20ms")
	v.SetDefault("ASSIGNMENTS_RETRY_MAX_DELAY", "500ms")
	v.SetDefault("WORKLOAD_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_CONSISTENCY_AUDIT", false)
	v.SetDefault("CONSISTENCY_AUDIT_INTERVAL", "24h")
	v.SetDefault("CONSISTENCY_AUDIT_WORKERS", 1)
	v.SetDefault("CONSISTENCY_AUDIT_RECONCILE", false)
}

// isMissingFile reports viper's os-level error when .env is absent (SetConfigFile bypasses ConfigFileNotFoundError).
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory") ||
		strings.Contains(err.Error(), "cannot find the file")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
