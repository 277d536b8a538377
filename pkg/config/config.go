package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backends
const (
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
	CacheBackendSQLite   = "sqlite"
	CacheBackendBadger   = "badger"
	CacheBackendMemory   = "memory"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Result cache
	Cache CacheConfig

	// Analysis runs
	Analysis AnalysisConfig

	// Completion notification
	Notify NotifyConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// CacheConfig selects the analysis result cache backend
type CacheConfig struct {
	Backend    string // postgres, redis, sqlite, badger, memory
	SQLitePath string
	BadgerPath string
	TTL        time.Duration // redis only, 0 = no expiry
}

// AnalysisConfig holds analysis run defaults and project paths
type AnalysisConfig struct {
	ProjectPath   string
	DebugDir      string // 프로젝트 기준 상대 경로 (디버그 스냅샷)
	ReportPath    string
	CatalogPath   string
	PollInterval  time.Duration
	LookbackYears int
	Schedule      string // cron spec (초 단위 포함), 빈 값이면 스케줄 실행 안 함

	// 0 이면 스냅샷 정리 안 함
	SnapshotRetention time.Duration
}

// NotifyConfig holds completion webhook configuration
type NotifyConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// DebugPath returns the absolute debug snapshot directory
func (a AnalysisConfig) DebugPath() string {
	if filepath.IsAbs(a.DebugDir) {
		return a.DebugDir
	}
	return filepath.Join(a.ProjectPath, a.DebugDir)
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "sas"),
			User:            getEnv("DB_USER", "sas"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Cache: CacheConfig{
			Backend:    strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendPostgres)),
			SQLitePath: getEnv("CACHE_SQLITE_PATH", "sas_cache.db"),
			BadgerPath: getEnv("CACHE_BADGER_PATH", "sas_cache"),
			TTL:        getEnvAsDuration("CACHE_TTL", "0s"),
		},

		Analysis: AnalysisConfig{
			ProjectPath:   getEnv("SAS_PROJECT_PATH", defaultProjectPath()),
			DebugDir:      getEnv("SAS_DEBUG_DIR", "TestData"),
			ReportPath:    getEnv("SAS_REPORT_PATH", "analysis_report.xlsx"),
			CatalogPath:   getEnv("SAS_CATALOG_PATH", ""),
			PollInterval:  getEnvAsDuration("ANALYSIS_POLL_INTERVAL", "1s"),
			LookbackYears: getEnvAsInt("ANALYSIS_LOOKBACK_YEARS", 5),
			Schedule:      getEnv("ANALYSIS_SCHEDULE", ""),

			SnapshotRetention: getEnvAsDuration("SAS_SNAPSHOT_RETENTION", "0s"),
		},

		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Timeout:    getEnvAsDuration("NOTIFY_TIMEOUT", "10s"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required (market data lives in PostgreSQL)
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Cache.Backend {
	case CacheBackendPostgres, CacheBackendSQLite, CacheBackendBadger, CacheBackendMemory:
	case CacheBackendRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("CACHE_BACKEND=redis requires REDIS_ENABLED=true")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of: postgres, redis, sqlite, badger, memory")
	}

	if c.Analysis.PollInterval <= 0 {
		return fmt.Errorf("ANALYSIS_POLL_INTERVAL must be positive")
	}
	if c.Analysis.LookbackYears <= 0 {
		return fmt.Errorf("ANALYSIS_LOOKBACK_YEARS must be positive")
	}
	if c.Analysis.SnapshotRetention < 0 {
		return fmt.Errorf("SAS_SNAPSHOT_RETENTION must not be negative")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func defaultProjectPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
