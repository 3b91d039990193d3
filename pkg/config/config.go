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
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Engine   EngineConfig
	Detector DetectorConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EngineConfig tunes the slot allocation engine.
type EngineConfig struct {
	// DefaultExaminerID is the examiner a booking without an explicit
	// examiner is attributed to for all conflict checks.
	DefaultExaminerID string
	SearchHorizonDays int
	TargetDates       int
	MultiTargetDates  int
	InsertRetries     int
	SlotLockTTL       time.Duration
	ExaminerCacheTTL  time.Duration
}

// DetectorConfig governs the periodic problem-detection sweep.
type DetectorConfig struct {
	Enabled    bool
	Interval   time.Duration
	RangeDays  int
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Engine = EngineConfig{
		DefaultExaminerID: v.GetString("ENGINE_DEFAULT_EXAMINER_ID"),
		SearchHorizonDays: v.GetInt("ENGINE_SEARCH_HORIZON_DAYS"),
		TargetDates:       v.GetInt("ENGINE_TARGET_DATES"),
		MultiTargetDates:  v.GetInt("ENGINE_MULTI_TARGET_DATES"),
		InsertRetries:     v.GetInt("ENGINE_INSERT_RETRIES"),
		SlotLockTTL:       parseDuration(v.GetString("ENGINE_SLOT_LOCK_TTL"), 5*time.Second),
		ExaminerCacheTTL:  parseDuration(v.GetString("ENGINE_EXAMINER_CACHE_TTL"), time.Minute),
	}

	cfg.Detector = DetectorConfig{
		Enabled:    v.GetBool("ENABLE_DETECTOR"),
		Interval:   parseDuration(v.GetString("DETECTOR_INTERVAL"), time.Hour),
		RangeDays:  v.GetInt("DETECTOR_RANGE_DAYS"),
		Workers:    v.GetInt("DETECTOR_WORKERS"),
		MaxRetries: v.GetInt("DETECTOR_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("DETECTOR_RETRY_DELAY"), 30*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tahfidz_exam")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENGINE_DEFAULT_EXAMINER_ID", "")
	v.SetDefault("ENGINE_SEARCH_HORIZON_DAYS", 30)
	v.SetDefault("ENGINE_TARGET_DATES", 5)
	v.SetDefault("ENGINE_MULTI_TARGET_DATES", 10)
	v.SetDefault("ENGINE_INSERT_RETRIES", 3)
	v.SetDefault("ENGINE_SLOT_LOCK_TTL", "5s")
	v.SetDefault("ENGINE_EXAMINER_CACHE_TTL", "1m")

	v.SetDefault("ENABLE_DETECTOR", false)
	v.SetDefault("DETECTOR_INTERVAL", "1h")
	v.SetDefault("DETECTOR_RANGE_DAYS", 60)
	v.SetDefault("DETECTOR_WORKERS", 1)
	v.SetDefault("DETECTOR_MAX_RETRIES", 3)
	v.SetDefault("DETECTOR_RETRY_DELAY", "30s")
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
