package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Curve pipeline
	Curve CurveConfig

	// MCX bhavcopy source
	MCX MCXConfig

	// Optional sinks / infra
	Database DatabaseConfig
	Redis    RedisConfig
	S3       S3Config

	// Logging
	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxAgeDays int
}

// CurveConfig holds paths and overrides for the premium pipeline
type CurveConfig struct {
	DataDir    string // per-contract CSV 디렉토리
	OutputFile string // dashboard data.json
	ConfigFile string // YAML domain config (empty = embedded default)
	Workers    int    // 파일 로딩 동시성

	// Overrides for the YAML values (0 = keep YAML value)
	RollThresholdDays int
	LookbackDays      int
}

// MCXConfig holds MCX India bhavcopy endpoint configuration
type MCXConfig struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	RequestsPerSec float64
	Workers        int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Enabled  bool
	URL      string
	MaxConns int
	MinConns int

	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// S3Config holds object storage configuration for publishing the series
type S3Config struct {
	Enabled        bool
	Endpoint       string
	Region         string
	Bucket         string
	Prefix         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Curve: CurveConfig{
			DataDir:           getEnv("DATA_DIR", "gold_daily_ohlc"),
			OutputFile:        getEnv("OUTPUT_FILE", filepath.Join("gold_analysis_dashboard", "public", "data.json")),
			ConfigFile:        getEnv("CURVE_CONFIG", ""),
			Workers:           getEnvAsInt("CURVE_WORKERS", 4),
			RollThresholdDays: getEnvAsInt("ROLL_THRESHOLD_DAYS", 0),
			LookbackDays:      getEnvAsInt("LOOKBACK_DAYS", 0),
		},

		MCX: MCXConfig{
			BaseURL:        getEnv("MCX_BASE_URL", "https://www.mcxindia.com"),
			Timeout:        getEnvAsDuration("MCX_TIMEOUT", "30s"),
			MaxRetries:     getEnvAsInt("MCX_MAX_RETRIES", 3),
			RetryDelay:     getEnvAsDuration("MCX_RETRY_DELAY", "2s"),
			RequestsPerSec: getEnvAsFloat("MCX_RPS", 0.66),
			Workers:        getEnvAsInt("MCX_WORKERS", 1),
		},

		Database: DatabaseConfig{
			Enabled:         getEnvAsBool("DB_ENABLED", false),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		S3: S3Config{
			Enabled:        getEnvAsBool("S3_ENABLED", false),
			Endpoint:       getEnv("S3_ENDPOINT", ""),
			Region:         getEnv("S3_REGION", "ap-south-1"),
			Bucket:         getEnv("S3_BUCKET", ""),
			Prefix:         getEnv("S3_PREFIX", "gold"),
			AccessKey:      getEnv("S3_ACCESS_KEY", ""),
			SecretKey:      getEnv("S3_SECRET_KEY", ""),
			ForcePathStyle: getEnvAsBool("S3_FORCE_PATH_STYLE", false),
		},

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 14),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Curve.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.Curve.OutputFile == "" {
		return fmt.Errorf("OUTPUT_FILE is required")
	}
	if c.Curve.Workers < 1 {
		return fmt.Errorf("CURVE_WORKERS must be >= 1")
	}
	if c.Curve.RollThresholdDays < 0 || c.Curve.LookbackDays < 0 {
		return fmt.Errorf("ROLL_THRESHOLD_DAYS and LOOKBACK_DAYS must be >= 0")
	}

	if c.MCX.Workers < 1 {
		return fmt.Errorf("MCX_WORKERS must be >= 1")
	}
	if c.MCX.RequestsPerSec <= 0 {
		return fmt.Errorf("MCX_RPS must be > 0")
	}

	// Optional sinks: only validated when enabled
	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when DB_ENABLED=true")
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when S3_ENABLED=true")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
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
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
