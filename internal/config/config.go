// Package config provides configuration management for the demand radar.
// It loads configuration from environment variables and .env files.
// Malformed threshold values fail loading; they are never deferred to a pass.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/demand-radar/internal/errors"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Providers  ProvidersConfig
	Evaluation EvaluationConfig
	Logging    LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// ProvidersConfig holds external signal provider configuration
type ProvidersConfig struct {
	Weather  ProviderConfig
	Trends   ProviderConfig
	Holidays ProviderConfig
}

// ProviderConfig holds configuration for one signal provider
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	QPS     float64 // client-side rate limit
}

// HourRange is a half-open local-time window [Start, End).
type HourRange struct {
	Start int
	End   int
}

// Contains reports whether hour falls inside the window.
func (r HourRange) Contains(hour int) bool {
	return hour >= r.Start && hour < r.End
}

// EvaluationConfig holds the rule thresholds and scheduler settings.
// Every numeric/time threshold is overridable via environment.
type EvaluationConfig struct {
	Interval    time.Duration
	Concurrency int           // bounded worker pool size per pass
	DedupWindow time.Duration // 0 means one active alert per key regardless of age

	RainThreshold    float64 // strict > comparison
	RainMinHours     int
	RainMaxHours     int
	HeatThresholdC   float64
	ColdThresholdC   float64
	TempWindowHours  int
	TrendThreshold   float64 // strict > comparison
	TrendHighScore   float64 // "trending" vs "rising" boundary
	TrendRiseDelta   float64 // sentiment peak: current must exceed previous by this
	FestivalLookahead int    // days
	PrimingMinDays   int
	PrimingMaxDays   int

	FootfallWeekday []HourRange
	FootfallWeekend []HourRange

	SignalCacheTTL time.Duration // adapter-side forecast/holiday cache
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:     getEnv("POSTGRES_HOST", "localhost"),
				Port:     getEnv("POSTGRES_PORT", "5432"),
				Database: getEnv("POSTGRES_DB", "demand_radar"),
				User:     getEnv("POSTGRES_USER", "radar"),
				Password: getEnv("POSTGRES_PASSWORD", ""),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "demand_radar"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:     getEnv("REDIS_HOST", "localhost"),
				Port:     getEnv("REDIS_PORT", "6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
			},
		},
		Providers: ProvidersConfig{
			Weather: ProviderConfig{
				BaseURL: getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
				APIKey:  getEnv("OPENWEATHER_API_KEY", ""),
			},
			Trends: ProviderConfig{
				BaseURL: getEnv("TRENDS_BASE_URL", "https://trends.googleapis.com/trends/api"),
				APIKey:  getEnv("TRENDS_API_KEY", ""),
			},
			Holidays: ProviderConfig{
				BaseURL: getEnv("CALENDARIFIC_BASE_URL", "https://calendarific.com/api/v2"),
				APIKey:  getEnv("CALENDARIFIC_API_KEY", ""),
			},
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	var err error
	if config.Database.Postgres.MaxConnections, err = getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50); err != nil {
		return nil, err
	}
	if config.Database.Redis.DB, err = getEnvAsInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if config.Database.Redis.MaxConnections, err = getEnvAsInt("REDIS_MAX_CONNECTIONS", 20); err != nil {
		return nil, err
	}

	if err := loadProviderTimings(config); err != nil {
		return nil, err
	}
	if err := loadEvaluationConfig(&config.Evaluation); err != nil {
		return nil, err
	}

	return config, nil
}

func loadProviderTimings(config *Config) error {
	providers := []struct {
		prefix string
		cfg    *ProviderConfig
	}{
		{"OPENWEATHER", &config.Providers.Weather},
		{"TRENDS", &config.Providers.Trends},
		{"CALENDARIFIC", &config.Providers.Holidays},
	}

	var err error
	for _, p := range providers {
		if p.cfg.Timeout, err = getEnvAsDuration(p.prefix+"_TIMEOUT", 10*time.Second); err != nil {
			return err
		}
		if p.cfg.QPS, err = getEnvAsFloat(p.prefix+"_QPS", 2.0); err != nil {
			return err
		}
	}
	return nil
}

func loadEvaluationConfig(eval *EvaluationConfig) error {
	var (
		err             error
		intervalMinutes int
	)

	if intervalMinutes, err = getEnvAsInt("EVAL_INTERVAL_MINUTES", 30); err != nil {
		return err
	}
	if intervalMinutes <= 0 {
		return errors.NewConfigurationError("EVAL_INTERVAL_MINUTES", "must be positive")
	}
	eval.Interval = time.Duration(intervalMinutes) * time.Minute

	if eval.Concurrency, err = getEnvAsInt("EVAL_CONCURRENCY", 4); err != nil {
		return err
	}
	if eval.Concurrency <= 0 {
		return errors.NewConfigurationError("EVAL_CONCURRENCY", "must be positive")
	}
	if eval.DedupWindow, err = getEnvAsDuration("DEDUP_WINDOW", 0); err != nil {
		return err
	}

	if eval.RainThreshold, err = getEnvAsFloat("RAIN_THRESHOLD", 0.70); err != nil {
		return err
	}
	if eval.RainThreshold < 0 || eval.RainThreshold > 1 {
		return errors.NewConfigurationError("RAIN_THRESHOLD", "must be in [0,1]")
	}
	if eval.RainMinHours, err = getEnvAsInt("RAIN_ALERT_MIN_HOURS", 3); err != nil {
		return err
	}
	if eval.RainMaxHours, err = getEnvAsInt("RAIN_ALERT_MAX_HOURS", 6); err != nil {
		return err
	}
	if eval.RainMinHours > eval.RainMaxHours {
		return errors.NewConfigurationError("RAIN_ALERT_MIN_HOURS", "must not exceed RAIN_ALERT_MAX_HOURS")
	}
	if eval.HeatThresholdC, err = getEnvAsFloat("HEAT_THRESHOLD_C", 35); err != nil {
		return err
	}
	if eval.ColdThresholdC, err = getEnvAsFloat("COLD_THRESHOLD_C", 10); err != nil {
		return err
	}
	if eval.TempWindowHours, err = getEnvAsInt("TEMP_WINDOW_HOURS", 12); err != nil {
		return err
	}
	if eval.TrendThreshold, err = getEnvAsFloat("TREND_THRESHOLD", 60); err != nil {
		return err
	}
	if eval.TrendThreshold < 0 || eval.TrendThreshold > 100 {
		return errors.NewConfigurationError("TREND_THRESHOLD", "must be in [0,100]")
	}
	if eval.TrendHighScore, err = getEnvAsFloat("TREND_HIGH_THRESHOLD", 80); err != nil {
		return err
	}
	if eval.TrendRiseDelta, err = getEnvAsFloat("TREND_RISE_DELTA", 10); err != nil {
		return err
	}
	if eval.FestivalLookahead, err = getEnvAsInt("FESTIVAL_LOOKAHEAD_DAYS", 10); err != nil {
		return err
	}
	if eval.PrimingMinDays, err = getEnvAsInt("PRIMING_WINDOW_MIN_DAYS", 3); err != nil {
		return err
	}
	if eval.PrimingMaxDays, err = getEnvAsInt("PRIMING_WINDOW_MAX_DAYS", 7); err != nil {
		return err
	}
	if eval.PrimingMinDays > eval.PrimingMaxDays {
		return errors.NewConfigurationError("PRIMING_WINDOW_MIN_DAYS", "must not exceed PRIMING_WINDOW_MAX_DAYS")
	}

	if eval.FootfallWeekday, err = getEnvAsHourRanges("FOOTFALL_WEEKDAY_WINDOWS", "10-12,18-21"); err != nil {
		return err
	}
	if eval.FootfallWeekend, err = getEnvAsHourRanges("FOOTFALL_WEEKEND_WINDOWS", "10-20"); err != nil {
		return err
	}

	if eval.SignalCacheTTL, err = getEnvAsDuration("SIGNAL_CACHE_TTL", 10*time.Minute); err != nil {
		return err
	}

	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.NewConfigurationError(key, fmt.Sprintf("not an integer: %q", valueStr))
	}
	return value, nil
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, errors.NewConfigurationError(key, fmt.Sprintf("not a number: %q", valueStr))
	}
	return value, nil
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, errors.NewConfigurationError(key, fmt.Sprintf("not a duration: %q", valueStr))
	}
	return value, nil
}

// getEnvAsHourRanges parses a comma-separated list of "start-end" hour windows,
// e.g. "10-12,18-21".
func getEnvAsHourRanges(key string, defaultValue string) ([]HourRange, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	ranges, err := ParseHourRanges(valueStr)
	if err != nil {
		return nil, errors.NewConfigurationError(key, err.Error())
	}
	return ranges, nil
}

// ParseHourRanges parses "10-12,18-21" into hour windows.
func ParseHourRanges(s string) ([]HourRange, error) {
	var ranges []HourRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("malformed hour range %q (want start-end)", part)
		}

		start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if err != nil {
			return nil, fmt.Errorf("malformed hour range %q: %v", part, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if err != nil {
			return nil, fmt.Errorf("malformed hour range %q: %v", part, err)
		}
		if start < 0 || end > 24 || start >= end {
			return nil, fmt.Errorf("hour range %q out of order or outside 0-24", part)
		}

		ranges = append(ranges, HourRange{Start: start, End: end})
	}

	if len(ranges) == 0 {
		return nil, fmt.Errorf("no hour ranges in %q", s)
	}
	return ranges, nil
}
