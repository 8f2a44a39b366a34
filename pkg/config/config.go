package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Analysis AnalysisConfig
	SMS      SMSConfig
	Voice    VoiceConfig
	Dispatch DispatchConfig
	Triage   TriageConfig
	OTEL     OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AnalysisConfig holds analysis provider configuration
type AnalysisConfig struct {
	APIKey         string
	Model          string
	RateLimitRPM   int
	RateLimitBurst int
}

// SMSConfig holds SMS gateway configuration
type SMSConfig struct {
	BaseURL  string
	APIKey   string
	SenderID string
}

// VoiceConfig holds voice call gateway configuration
type VoiceConfig struct {
	BaseURL string
	APIKey  string
}

// DispatchConfig holds notification dispatcher tuning
type DispatchConfig struct {
	QueueSize int
	Workers   int
}

// TriageConfig holds severity keyword table configuration
type TriageConfig struct {
	KeywordTablePath string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "healthbridge"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Analysis: AnalysisConfig{
			APIKey:         getEnv("ANALYSIS_API_KEY", ""),
			Model:          getEnv("ANALYSIS_MODEL", "gpt-4o-mini"),
			RateLimitRPM:   getEnvAsInt("ANALYSIS_RATE_LIMIT_RPM", 60),
			RateLimitBurst: getEnvAsInt("ANALYSIS_RATE_LIMIT_BURST", 5),
		},
		SMS: SMSConfig{
			BaseURL:  getEnv("SMS_GATEWAY_URL", ""),
			APIKey:   getEnv("SMS_GATEWAY_API_KEY", ""),
			SenderID: getEnv("SMS_SENDER_ID", "HLTHBRDG"),
		},
		Voice: VoiceConfig{
			BaseURL: getEnv("VOICE_GATEWAY_URL", ""),
			APIKey:  getEnv("VOICE_GATEWAY_API_KEY", ""),
		},
		Dispatch: DispatchConfig{
			QueueSize: getEnvAsInt("DISPATCH_QUEUE_SIZE", 256),
			Workers:   getEnvAsInt("DISPATCH_WORKERS", 4),
		},
		Triage: TriageConfig{
			KeywordTablePath: getEnv("TRIAGE_KEYWORD_TABLE", "configs/severity_keywords.yaml"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "healthbridge-triage"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
